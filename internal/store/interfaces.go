package store

import (
	"context"
	"errors"
	"time"

	"pulseboard.app/signals/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// SignalStore defines the contract for activity signal data access.
// All mutating methods participate in whatever transaction the backing
// querier is bound to; the sync service runs the replace/purge/upsert
// sequence inside a single transaction so partial application is never
// observable.
type SignalStore interface {
	// Upsert writes a signal by its natural key (user_id, source,
	// source_id): update if present, insert if absent.
	Upsert(ctx context.Context, signal *model.ActivitySignal) error

	// DeleteBySourceInWindow removes a user's signals for one source
	// with event_at inside the window (full-replace semantics).
	DeleteBySourceInWindow(ctx context.Context, userID string, source model.Source, windowStart time.Time) error

	// DeleteByIDPrefixes removes signals whose source_id starts with
	// any of the given legacy/placeholder prefixes, regardless of
	// window.
	DeleteByIDPrefixes(ctx context.Context, userID string, prefixes []string) error

	// DeleteBySourceIDs removes the named placeholder rows for one source.
	DeleteBySourceIDs(ctx context.Context, userID string, source model.Source, sourceIDs []string) error

	// DeleteBySources removes all of a user's signals for the given sources.
	DeleteBySources(ctx context.Context, userID string, sources []model.Source) error

	// ListForBoard returns board-eligible signals: inside the window,
	// chat-style sources filtered to mentions and direct messages,
	// ordered by event time descending, capped at limit.
	ListForBoard(ctx context.Context, userID string, windowStart time.Time, limit int32) ([]model.ActivitySignal, error)

	// CountReal counts a user's live (non-placeholder) signals for one
	// source inside the window.
	CountReal(ctx context.Context, userID string, source model.Source, windowStart time.Time, placeholderIDs []string, legacyPrefixes []string) (int64, error)
}

// ConnectionStore defines the contract for provider connection access.
type ConnectionStore interface {
	GetByUserAndProvider(ctx context.Context, userID string, provider model.Provider) (*model.Connection, error)

	// MarkDisconnected flips the connection to DISCONNECTED and clears
	// scopes, account label, and sealed token material.
	MarkDisconnected(ctx context.Context, id int64) error
}
