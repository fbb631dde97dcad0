package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pulseboard.app/signals/core/db"
	"pulseboard.app/signals/internal/model"
)

type pgConnectionStore struct {
	q db.Querier
}

// NewConnectionStore returns a Postgres-backed ConnectionStore bound to
// the given querier.
func NewConnectionStore(q db.Querier) ConnectionStore {
	return &pgConnectionStore{q: q}
}

func (s *pgConnectionStore) GetByUserAndProvider(ctx context.Context, userID string, provider model.Provider) (*model.Connection, error) {
	query := `
		SELECT id, user_id, provider, status, account_id, account_name, scopes,
		       encrypted_access_token, encrypted_refresh_token, token_expires_at,
		       created_at, updated_at
		FROM connections
		WHERE user_id = $1 AND provider = $2`

	var conn model.Connection
	err := s.q.QueryRow(ctx, query, userID, provider).Scan(
		&conn.ID, &conn.UserID, &conn.Provider, &conn.Status,
		&conn.AccountID, &conn.AccountName, &conn.Scopes,
		&conn.EncryptedAccessToken, &conn.EncryptedRefreshToken, &conn.TokenExpiresAt,
		&conn.CreatedAt, &conn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s connection: %w", provider, err)
	}
	return &conn, nil
}

func (s *pgConnectionStore) MarkDisconnected(ctx context.Context, id int64) error {
	query := `
		UPDATE connections
		SET status = 'DISCONNECTED',
		    scopes = '{}',
		    account_name = NULL,
		    encrypted_access_token = NULL,
		    encrypted_refresh_token = NULL,
		    token_expires_at = NULL,
		    updated_at = now()
		WHERE id = $1`

	tag, err := s.q.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark connection %d disconnected: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
