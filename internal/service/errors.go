package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"pulseboard.app/signals/internal/chat"
)

// ErrMissingEncryptionKey is returned before any network call when the
// app encryption key is absent; stored tokens cannot be opened without it.
var ErrMissingEncryptionKey = errors.New("app encryption key is not configured")

// CredentialError means the stored connection cannot serve the sync and
// the user has to reconnect. The message is safe to surface verbatim.
type CredentialError struct {
	Message string
}

func (e *CredentialError) Error() string {
	return e.Message
}

// FetchError aggregates per-conversation history failures. It is only
// returned when a run produced zero signals, so partial success always
// wins over partial failure.
type FetchError struct {
	Categories []string
	Count      int
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("chat history unavailable for all %d conversations (%s)",
		e.Count, strings.Join(e.Categories, ", "))
}

func newFetchError(errs []error) *FetchError {
	seen := make(map[string]bool, len(errs))
	var categories []string
	for _, err := range errs {
		category := string(chat.Categorize(err))
		if !seen[category] {
			seen[category] = true
			categories = append(categories, category)
		}
	}
	sort.Strings(categories)
	return &FetchError{Categories: categories, Count: len(errs)}
}
