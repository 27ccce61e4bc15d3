package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/playperu/alias/internal/alias"
)

// SaveRefreshToken records an issued refresh token id until it expires.
func (s *DocStore) SaveRefreshToken(ctx context.Context, id, userID string, ttl time.Duration) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO refresh_tokens (id, user_id, expires_at) VALUES (?, ?, ?)`,
			id, userID, time.Now().Add(ttl).UnixNano(),
		)
		return err
	})
}

// ConsumeRefreshToken deletes a live refresh token id. It returns
// alias.ErrNotFound when the id is unknown, already consumed or expired.
func (s *DocStore) ConsumeRefreshToken(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`DELETE FROM refresh_tokens WHERE id = ? AND expires_at > ?`,
			id, time.Now().UnixNano(),
		)
		if err != nil {
			return err
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			return alias.ErrNotFound
		}
		return nil
	})
}
