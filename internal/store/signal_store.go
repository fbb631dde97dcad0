package store

import (
	"context"
	"fmt"
	"time"

	"pulseboard.app/signals/core/db"
	"pulseboard.app/signals/internal/model"
)

type pgSignalStore struct {
	q db.Querier
}

// NewSignalStore returns a Postgres-backed SignalStore bound to the
// given querier, which may be a pool or an open transaction.
func NewSignalStore(q db.Querier) SignalStore {
	return &pgSignalStore{q: q}
}

const signalColumns = `id, user_id, source, source_id, title, body, url, author, channel,
	priority_hint, due_at, event_at, metadata,
	is_unread, is_flagged, is_mention, is_dm, is_starred,
	created_at, updated_at`

func (s *pgSignalStore) Upsert(ctx context.Context, signal *model.ActivitySignal) error {
	query := `
		INSERT INTO activity_signals (
			id, user_id, source, source_id, title, body, url, author, channel,
			priority_hint, due_at, event_at, metadata,
			is_unread, is_flagged, is_mention, is_dm, is_starred
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18
		)
		ON CONFLICT (user_id, source, source_id) DO UPDATE SET
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			url = EXCLUDED.url,
			author = EXCLUDED.author,
			channel = EXCLUDED.channel,
			priority_hint = EXCLUDED.priority_hint,
			due_at = EXCLUDED.due_at,
			event_at = EXCLUDED.event_at,
			metadata = EXCLUDED.metadata,
			is_unread = EXCLUDED.is_unread,
			is_flagged = EXCLUDED.is_flagged,
			is_mention = EXCLUDED.is_mention,
			is_dm = EXCLUDED.is_dm,
			is_starred = EXCLUDED.is_starred,
			updated_at = now()
		RETURNING id, created_at, updated_at`

	row := s.q.QueryRow(ctx, query,
		signal.ID, signal.UserID, signal.Source, signal.SourceID,
		signal.Title, signal.Body, signal.URL, signal.Author, signal.Channel,
		signal.PriorityHint, signal.DueAt, signal.EventAt, signal.Metadata,
		signal.IsUnread, signal.IsFlagged, signal.IsMention, signal.IsDirectMessage, signal.IsStarred,
	)
	if err := row.Scan(&signal.ID, &signal.CreatedAt, &signal.UpdatedAt); err != nil {
		return fmt.Errorf("upsert signal %s/%s: %w", signal.Source, signal.SourceID, err)
	}
	return nil
}

func (s *pgSignalStore) DeleteBySourceInWindow(ctx context.Context, userID string, source model.Source, windowStart time.Time) error {
	query := `DELETE FROM activity_signals WHERE user_id = $1 AND source = $2 AND event_at >= $3`
	if _, err := s.q.Exec(ctx, query, userID, source, windowStart); err != nil {
		return fmt.Errorf("delete %s signals in window: %w", source, err)
	}
	return nil
}

func (s *pgSignalStore) DeleteByIDPrefixes(ctx context.Context, userID string, prefixes []string) error {
	if len(prefixes) == 0 {
		return nil
	}
	patterns := make([]string, len(prefixes))
	for i, p := range prefixes {
		patterns[i] = p + "%"
	}
	query := `DELETE FROM activity_signals WHERE user_id = $1 AND source_id LIKE ANY($2)`
	if _, err := s.q.Exec(ctx, query, userID, patterns); err != nil {
		return fmt.Errorf("delete signals by id prefix: %w", err)
	}
	return nil
}

func (s *pgSignalStore) DeleteBySourceIDs(ctx context.Context, userID string, source model.Source, sourceIDs []string) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	query := `DELETE FROM activity_signals WHERE user_id = $1 AND source = $2 AND source_id = ANY($3)`
	if _, err := s.q.Exec(ctx, query, userID, source, sourceIDs); err != nil {
		return fmt.Errorf("delete %s signals by id: %w", source, err)
	}
	return nil
}

func (s *pgSignalStore) DeleteBySources(ctx context.Context, userID string, sources []model.Source) error {
	if len(sources) == 0 {
		return nil
	}
	names := make([]string, len(sources))
	for i, src := range sources {
		names[i] = string(src)
	}
	query := `DELETE FROM activity_signals WHERE user_id = $1 AND source = ANY($2)`
	if _, err := s.q.Exec(ctx, query, userID, names); err != nil {
		return fmt.Errorf("delete signals by source: %w", err)
	}
	return nil
}

func (s *pgSignalStore) ListForBoard(ctx context.Context, userID string, windowStart time.Time, limit int32) ([]model.ActivitySignal, error) {
	query := `
		SELECT ` + signalColumns + `
		FROM activity_signals
		WHERE user_id = $1
		  AND event_at >= $2
		  AND (source NOT IN ('CHAT', 'DIRECT') OR is_mention OR is_dm)
		ORDER BY event_at DESC
		LIMIT $3`

	rows, err := s.q.Query(ctx, query, userID, windowStart, limit)
	if err != nil {
		return nil, fmt.Errorf("list signals for board: %w", err)
	}
	defer rows.Close()

	var signals []model.ActivitySignal
	for rows.Next() {
		var sig model.ActivitySignal
		if err := rows.Scan(
			&sig.ID, &sig.UserID, &sig.Source, &sig.SourceID, &sig.Title, &sig.Body, &sig.URL, &sig.Author, &sig.Channel,
			&sig.PriorityHint, &sig.DueAt, &sig.EventAt, &sig.Metadata,
			&sig.IsUnread, &sig.IsFlagged, &sig.IsMention, &sig.IsDirectMessage, &sig.IsStarred,
			&sig.CreatedAt, &sig.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}
	return signals, nil
}

func (s *pgSignalStore) CountReal(ctx context.Context, userID string, source model.Source, windowStart time.Time, placeholderIDs []string, legacyPrefixes []string) (int64, error) {
	patterns := make([]string, len(legacyPrefixes))
	for i, p := range legacyPrefixes {
		patterns[i] = p + "%"
	}
	query := `
		SELECT count(*)
		FROM activity_signals
		WHERE user_id = $1
		  AND source = $2
		  AND event_at >= $3
		  AND NOT (source_id = ANY($4))
		  AND NOT (source_id LIKE ANY($5))`

	var count int64
	if err := s.q.QueryRow(ctx, query, userID, source, windowStart, placeholderIDs, patterns).Scan(&count); err != nil {
		return 0, fmt.Errorf("count live %s signals: %w", source, err)
	}
	return count, nil
}
