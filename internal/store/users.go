package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/playperu/alias/internal/alias"
)

type userDoc struct {
	alias.User
	PasswordHash string `json:"passwordHash"`
}

type deletedUserDoc struct {
	userDoc
	DeletedAt time.Time `json:"deletedAt"`
}

// UserUpdate carries the optional fields of a profile update.
type UserUpdate struct {
	Username     *string
	PasswordHash *string
}

func putUser(ctx context.Context, q querier, u userDoc) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO users (id, username, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET username = excluded.username, data = excluded.data`,
		u.ID, u.Username, string(data),
	)
	return conflictOr(err, "username %q is taken", u.Username)
}

func (s *DocStore) CreateUser(ctx context.Context, username, passwordHash string) (alias.User, error) {
	u := userDoc{
		User: alias.User{
			ID:        newID(),
			Username:  username,
			CreatedAt: time.Now().UTC(),
		},
		PasswordHash: passwordHash,
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return putUser(ctx, tx, u)
	})
	if err != nil {
		return alias.User{}, err
	}
	return u.User, nil
}

func (s *DocStore) User(ctx context.Context, id string) (alias.User, error) {
	var u userDoc
	if err := get(ctx, s.db, "users", id, &u); err != nil {
		return alias.User{}, err
	}
	return u.User, nil
}

// Credentials returns the user with the given username and its password hash.
func (s *DocStore) Credentials(ctx context.Context, username string) (alias.User, string, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM users WHERE username = ?`, username,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return alias.User{}, "", alias.ErrNotFound
	}
	if err != nil {
		return alias.User{}, "", err
	}
	var u userDoc
	if err := json.Unmarshal([]byte(data), &u); err != nil {
		return alias.User{}, "", err
	}
	return u.User, u.PasswordHash, nil
}

func (s *DocStore) ListUsers(ctx context.Context) ([]alias.User, error) {
	docs, err := list[userDoc](ctx, s.db, `SELECT json(data) FROM users ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	users := make([]alias.User, len(docs))
	for i, d := range docs {
		users[i] = d.User
	}
	return users, nil
}

// Leaderboard returns the limit highest scoring users. Equal scores keep
// insertion order.
func (s *DocStore) Leaderboard(ctx context.Context, limit int) ([]alias.User, error) {
	docs, err := list[userDoc](ctx, s.db,
		`SELECT json(data) FROM users
		 ORDER BY json_extract(data, '$.score') DESC, rowid
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	users := make([]alias.User, len(docs))
	for i, d := range docs {
		users[i] = d.User
	}
	return users, nil
}

func (s *DocStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (alias.User, error) {
	var u userDoc
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := get(ctx, tx, "users", id, &u); err != nil {
			return err
		}
		if upd.Username != nil {
			u.Username = *upd.Username
		}
		if upd.PasswordHash != nil {
			u.PasswordHash = *upd.PasswordHash
		}
		return putUser(ctx, tx, u)
	})
	return u.User, err
}

// RecordRound applies a round outcome to every listed user: played is always
// incremented, score and wins only when won.
func (s *DocStore) RecordRound(ctx context.Context, userIDs []string, won bool, reward int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range userIDs {
			var u userDoc
			err := get(ctx, tx, "users", id, &u)
			if errors.Is(err, alias.ErrNotFound) {
				// Users are referenced weakly; a deleted member is skipped.
				continue
			}
			if err != nil {
				return err
			}
			u.Played++
			if won {
				u.Score += reward
				u.Wins++
			}
			if err := putUser(ctx, tx, u); err != nil {
				return err
			}
		}
		return nil
	})
}

// SoftDeleteUser moves the user into the deleted_users archive.
func (s *DocStore) SoftDeleteUser(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var u userDoc
		if err := get(ctx, tx, "users", id, &u); err != nil {
			return err
		}
		data, err := json.Marshal(deletedUserDoc{userDoc: u, DeletedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO deleted_users (id, data) VALUES (?, jsonb(?))`,
			u.ID, string(data),
		); err != nil {
			return err
		}
		return del(ctx, tx, "users", id)
	})
}

func (s *DocStore) DeleteUser(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return del(ctx, tx, "users", id)
	})
}

func (s *DocStore) DeletedUser(ctx context.Context, id string) (alias.DeletedUser, error) {
	var d deletedUserDoc
	if err := get(ctx, s.db, "deleted_users", id, &d); err != nil {
		return alias.DeletedUser{}, err
	}
	return alias.DeletedUser{User: d.User, DeletedAt: d.DeletedAt}, nil
}
