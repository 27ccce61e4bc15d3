// Package store persists the game entities as JSON documents in per-entity
// libSQL tables. Columns outside data exist only for uniqueness and lookups.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/alias/internal/alias"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DocStore implements every store the game needs on one database.
// Tables are created by the migrations package.
type DocStore struct {
	db *sql.DB
}

func New(db *sql.DB) *DocStore {
	return &DocStore{db: db}
}

func (s *DocStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func newID() string {
	return uuid.NewString()
}

func get(ctx context.Context, q querier, table, id string, dest any) error {
	var data string
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, table), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return alias.ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(data), dest)
}

func del(ctx context.Context, q querier, table, id string) error {
	result, err := q.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return alias.ErrNotFound
	}
	return nil
}

// list runs query and decodes each json(data) row into a T. Rows are fully
// drained before returning so callers may issue further queries.
func list[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(data), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

const (
	maxBusyRetries = 25
	busyBackoff    = 2 * time.Millisecond
)

// inTx runs fn inside a transaction and commits when fn returns nil. When
// SQLite reports the database as locked by another connection the whole
// transaction, fn included, is run again after a jittered backoff, so fn must
// not have side effects outside tx.
func (s *DocStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	for attempt := 0; ; attempt++ {
		err := s.tryTx(ctx, fn)
		if !isBusy(err) || attempt == maxBusyRetries {
			return err
		}
		wait := busyBackoff << min(attempt, 5)
		wait += rand.N(wait)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (s *DocStore) tryTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// isBusy reports whether err is SQLite refusing a lock held by another
// connection. A read transaction cannot upgrade to a write while another
// writer is active, and busy_timeout does not cover that case.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database is busy") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func conflictOr(err error, format string, args ...any) error {
	if isUniqueViolation(err) {
		return alias.Errorf(alias.ErrConflict, format, args...)
	}
	return err
}
