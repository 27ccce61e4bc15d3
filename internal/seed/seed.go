// Package seed fills an empty database with playable rooms and words.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/playperu/alias/internal/alias"
)

//go:embed words.yaml
var defaultWords []byte

type Store interface {
	CountRooms(ctx context.Context) (int, error)
	CountWords(ctx context.Context) (int, error)
	CreateWord(ctx context.Context, word string, similar []string) (alias.Word, error)
}

// Provisioner opens a new room with the default teams.
type Provisioner interface {
	ProvisionRoom(ctx context.Context) (alias.Room, error)
}

type Entry struct {
	Word         string   `yaml:"word"`
	SimilarWords []string `yaml:"similarWords"`
}

// LoadWords reads a YAML list of words. An empty path yields the built-in
// list.
func LoadWords(path string) ([]Entry, error) {
	data := defaultWords
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading words file: %w", err)
		}
		data = b
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing words: %w", err)
	}
	return entries, nil
}

// Words stores every entry and returns how many were added. Words already
// in the store are skipped quietly; any other failure is logged and skipped.
func Words(ctx context.Context, logger *slog.Logger, s Store, entries []Entry) int {
	added := 0
	for _, e := range entries {
		_, err := s.CreateWord(ctx, e.Word, e.SimilarWords)
		switch {
		case errors.Is(err, alias.ErrConflict):
			logger.Debug("word already present", "word", e.Word)
			continue
		case err != nil:
			logger.Warn("skipping word", "word", e.Word, "error", err)
			continue
		}
		added++
	}
	return added
}

// Rooms opens n rooms if there are none yet.
func Rooms(ctx context.Context, logger *slog.Logger, s Store, p Provisioner, n int) error {
	count, err := s.CountRooms(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for range n {
		if _, err := p.ProvisionRoom(ctx); err != nil {
			return err
		}
	}
	logger.Info("rooms seeded", "count", n)
	return nil
}

// Run seeds rooms and the words from wordsFile. The built-in list is only
// loaded into a store without words; an explicit file is always merged in.
func Run(ctx context.Context, logger *slog.Logger, s Store, p Provisioner, rooms int, wordsFile string) error {
	if err := Rooms(ctx, logger, s, p, rooms); err != nil {
		return fmt.Errorf("seeding rooms: %w", err)
	}
	if wordsFile == "" {
		n, err := s.CountWords(ctx)
		if err != nil {
			return fmt.Errorf("counting words: %w", err)
		}
		if n > 0 {
			logger.Debug("words already seeded", "count", n)
			return nil
		}
	}
	entries, err := LoadWords(wordsFile)
	if err != nil {
		return err
	}
	added := Words(ctx, logger, s, entries)
	logger.Info("words seeded", "added", added, "skipped", len(entries)-added)
	return nil
}
