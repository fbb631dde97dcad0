package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields travels on the context so every log statement inside a
// sync run carries the run's identifiers without threading them
// through call signatures.
type LogFields struct {
	UserID         *string // board owner the sync runs for
	Source         *string // activity source being synced
	ConversationID *string // conversation currently being fetched
	SyncRunID      *int64  // snowflake id of the sync run
	Component      string
}

// WithLogFields merges fields into the context. Newer non-nil and
// non-empty values win; cancellation and deadlines are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := mergeFields(GetLogFields(ctx), fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields on ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, incoming LogFields) LogFields {
	result := existing

	if incoming.UserID != nil {
		result.UserID = incoming.UserID
	}
	if incoming.Source != nil {
		result.Source = incoming.Source
	}
	if incoming.ConversationID != nil {
		result.ConversationID = incoming.ConversationID
	}
	if incoming.SyncRunID != nil {
		result.SyncRunID = incoming.SyncRunID
	}
	if incoming.Component != "" {
		result.Component = incoming.Component
	}

	return result
}

// Ptr builds a pointer inline, for LogFields literals.
func Ptr[T any](v T) *T {
	return &v
}

// Truncate caps s at maxLen bytes, appending "..." when cut. Used to
// keep message bodies out of full length in logs and metadata.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
