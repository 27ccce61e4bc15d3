package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/playperu/alias/internal/alias"
)

// WordUpdate carries the optional fields of a word edit.
type WordUpdate struct {
	Word         *string
	SimilarWords []string
}

func putWord(ctx context.Context, q querier, w alias.Word) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO words (id, word, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET word = excluded.word, data = excluded.data`,
		w.ID, alias.Normalize(w.Word), string(data),
	)
	return conflictOr(err, "word %q already exists", w.Word)
}

func (s *DocStore) CreateWord(ctx context.Context, word string, similar []string) (alias.Word, error) {
	if similar == nil {
		similar = []string{}
	}
	w := alias.Word{ID: newID(), Word: word, SimilarWords: similar}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		return putWord(ctx, tx, w)
	})
	if err != nil {
		return alias.Word{}, err
	}
	return w, nil
}

func (s *DocStore) Word(ctx context.Context, id string) (alias.Word, error) {
	var w alias.Word
	err := get(ctx, s.db, "words", id, &w)
	return w, err
}

func (s *DocStore) ListWords(ctx context.Context) ([]alias.Word, error) {
	return list[alias.Word](ctx, s.db, `SELECT json(data) FROM words ORDER BY rowid`)
}

func (s *DocStore) CountWords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM words`).Scan(&n)
	return n, err
}

func (s *DocStore) UpdateWord(ctx context.Context, id string, upd WordUpdate) (alias.Word, error) {
	var w alias.Word
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := get(ctx, tx, "words", id, &w); err != nil {
			return err
		}
		if upd.Word != nil {
			w.Word = *upd.Word
		}
		if upd.SimilarWords != nil {
			w.SimilarWords = upd.SimilarWords
		}
		return putWord(ctx, tx, w)
	})
	return w, err
}

func (s *DocStore) DeleteWord(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return del(ctx, tx, "words", id)
	})
}

// RandomUnusedWord picks a word uniformly at random among those whose id is
// not in tried. It returns alias.ErrNoUnusedWords when every word was tried.
func (s *DocStore) RandomUnusedWord(ctx context.Context, tried []string) (alias.Word, error) {
	if tried == nil {
		tried = []string{}
	}
	triedJSON, err := json.Marshal(tried)
	if err != nil {
		return alias.Word{}, err
	}

	var data string
	err = s.db.QueryRowContext(ctx,
		`SELECT json(data) FROM words
		 WHERE id NOT IN (SELECT value FROM json_each(?))
		 ORDER BY random()
		 LIMIT 1`, string(triedJSON),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return alias.Word{}, alias.ErrNoUnusedWords
	}
	if err != nil {
		return alias.Word{}, err
	}

	var w alias.Word
	err = json.Unmarshal([]byte(data), &w)
	return w, err
}
