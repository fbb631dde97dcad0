package chat

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized bucket a per-conversation fetch error
// falls into. Categories are what the caller reports when every
// conversation failed, so the user can be told which scope or token
// problem to fix.
type ErrorCategory string

const (
	CategoryMissingScope       ErrorCategory = "missing_scope"
	CategoryNotInChannel       ErrorCategory = "not_in_channel"
	CategoryWrongTokenType     ErrorCategory = "not_allowed_token_type"
	CategoryHistoryUnavailable ErrorCategory = "history_unavailable"
)

// APIError is a platform-level error response: either a non-200 status
// or an ok=false envelope with an error code.
type APIError struct {
	Method     string
	Code       string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("platform API %s error: %s", e.Method, e.Code)
	}
	return fmt.Sprintf("platform API %s failed (%d)", e.Method, e.StatusCode)
}

// Category maps the raw error code onto the normalized taxonomy.
func (e *APIError) Category() ErrorCategory {
	switch e.Code {
	case "missing_scope":
		return CategoryMissingScope
	case "not_in_channel":
		return CategoryNotInChannel
	case "not_allowed_token_type":
		return CategoryWrongTokenType
	default:
		return CategoryHistoryUnavailable
	}
}

// Categorize extracts the normalized category from any error chain.
func Categorize(err error) ErrorCategory {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Category()
	}
	return CategoryHistoryUnavailable
}
