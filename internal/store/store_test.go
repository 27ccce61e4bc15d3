package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/playperu/alias/internal/alias"
	"github.com/playperu/alias/internal/database"
	"github.com/playperu/alias/internal/migrations"
)

func setupStore(t *testing.T) *DocStore {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

// setupFileStore uses a database file so that concurrent callers get
// separate connections, unlike the pinned in-memory database.
func setupFileStore(t *testing.T) *DocStore {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "alias.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func TestWordRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, err := s.CreateWord(ctx, "bicycle", []string{"bike", "cycle"})
	if err != nil {
		t.Fatalf("create word: %v", err)
	}

	got, err := s.Word(ctx, created.ID)
	if err != nil {
		t.Fatalf("find word: %v", err)
	}
	if diff := cmp.Diff(created, got); diff != "" {
		t.Errorf("word mismatch (-created +found):\n%s", diff)
	}
}

func TestWordDuplicateIsConflict(t *testing.T) {
	tests := []struct {
		name string
		word string
	}{
		{"same text", "apple"},
		{"different case", "Apple"},
		{"padded upper case", " APPLE "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupStore(t)
			ctx := context.Background()

			if _, err := s.CreateWord(ctx, "apple", nil); err != nil {
				t.Fatalf("create word: %v", err)
			}
			_, err := s.CreateWord(ctx, tt.word, nil)
			if !errors.Is(err, alias.ErrConflict) {
				t.Fatalf("expected ErrConflict, got %v", err)
			}
		})
	}
}

func TestRenameWordToCaseVariantIsConflict(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if _, err := s.CreateWord(ctx, "bicycle", nil); err != nil {
		t.Fatalf("create word: %v", err)
	}
	car, err := s.CreateWord(ctx, "car", nil)
	if err != nil {
		t.Fatalf("create word: %v", err)
	}

	name := "Bicycle"
	if _, err := s.UpdateWord(ctx, car.ID, WordUpdate{Word: &name}); !errors.Is(err, alias.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Changing only the case of a word's own text is allowed and kept.
	name = "CAR"
	got, err := s.UpdateWord(ctx, car.ID, WordUpdate{Word: &name})
	if err != nil {
		t.Fatalf("recase word: %v", err)
	}
	if got.Word != "CAR" {
		t.Errorf("word = %q, want CAR", got.Word)
	}
}

func TestUpdateAndDeleteWord(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	w, _ := s.CreateWord(ctx, "car", []string{"auto"})
	name := "automobile"
	updated, err := s.UpdateWord(ctx, w.ID, WordUpdate{Word: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Word != "automobile" || len(updated.SimilarWords) != 1 {
		t.Errorf("unexpected word after update: %+v", updated)
	}

	if err := s.DeleteWord(ctx, w.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Word(ctx, w.ID); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteWord(ctx, w.ID); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestRandomUnusedWordExcludesTried(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	var ids []string
	for _, w := range []string{"one", "two", "three"} {
		created, err := s.CreateWord(ctx, w, nil)
		if err != nil {
			t.Fatalf("create %s: %v", w, err)
		}
		ids = append(ids, created.ID)
	}

	for i := 0; i < 20; i++ {
		w, err := s.RandomUnusedWord(ctx, ids[:2])
		if err != nil {
			t.Fatalf("draw: %v", err)
		}
		if w.ID != ids[2] {
			t.Fatalf("drew tried word %q", w.Word)
		}
	}

	_, err := s.RandomUnusedWord(ctx, ids)
	if !errors.Is(err, alias.ErrNoUnusedWords) || !errors.Is(err, alias.ErrNotFound) {
		t.Fatalf("expected ErrNoUnusedWords, got %v", err)
	}
}

func TestLeaderboard(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	// Scores 0..4 repeated, so ties exist.
	for i := 0; i < 15; i++ {
		u, err := s.CreateUser(ctx, fmt.Sprintf("user%02d", i), "hash")
		if err != nil {
			t.Fatalf("create user: %v", err)
		}
		for j := 0; j < i%5; j++ {
			if err := s.RecordRound(ctx, []string{u.ID}, true, 1); err != nil {
				t.Fatalf("record: %v", err)
			}
		}
	}

	board, err := s.Leaderboard(ctx, alias.LeaderboardSize)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 10 {
		t.Fatalf("expected 10 entries, got %d", len(board))
	}

	var got []string
	for i, u := range board {
		got = append(got, u.Username)
		if i > 0 && board[i-1].Score < u.Score {
			t.Errorf("not sorted at %d: %d < %d", i, board[i-1].Score, u.Score)
		}
	}
	want := []string{
		"user04", "user09", "user14",
		"user03", "user08", "user13",
		"user02", "user07", "user12",
		"user01",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("leaderboard order (-want +got):\n%s", diff)
	}
}

func TestUserDuplicateAndSoftDelete(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "alice", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.CreateUser(ctx, "alice", "hash"); !errors.Is(err, alias.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := s.SoftDeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	if _, err := s.User(ctx, u.ID); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("expected user gone, got %v", err)
	}
	archived, err := s.DeletedUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("archived user: %v", err)
	}
	if archived.Username != "alice" || archived.DeletedAt.IsZero() {
		t.Errorf("unexpected archive record: %+v", archived)
	}

	// The username is free again.
	if _, err := s.CreateUser(ctx, "alice", "hash"); err != nil {
		t.Errorf("recreate after soft delete: %v", err)
	}
}

func TestCredentials(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	created, _ := s.CreateUser(ctx, "bob", "secret-hash")
	u, hash, err := s.Credentials(ctx, "bob")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	if u.ID != created.ID || hash != "secret-hash" {
		t.Errorf("got %+v / %q", u, hash)
	}
	if _, _, err := s.Credentials(ctx, "nobody"); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomWithTeamsAndCascade(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	room, err := s.CreateRoom(ctx, "Room1", 60, []string{"Team1", "Team2"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if len(room.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(room.Teams))
	}
	if _, err := s.CreateRoom(ctx, "Room1", 60, nil); !errors.Is(err, alias.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate room name, got %v", err)
	}

	teams, err := s.ListTeams(ctx, room.ID)
	if err != nil {
		t.Fatalf("list teams: %v", err)
	}
	if teams[0].Name != "Team1" || teams[1].Name != "Team2" {
		t.Errorf("unexpected teams: %+v", teams)
	}

	other, _ := s.CreateRoom(ctx, "Room2", 60, nil)
	if _, err := s.Team(ctx, other.ID, teams[0].ID); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("team resolved through the wrong room: %v", err)
	}

	if err := s.DeleteRoom(ctx, room.ID); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if _, err := s.TeamByID(ctx, teams[0].ID); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("team survived room deletion: %v", err)
	}
}

func TestDeleteTeamUpdatesRoom(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	room, _ := s.CreateRoom(ctx, "Room1", 60, []string{"A", "B"})
	if err := s.DeleteTeam(ctx, room.ID, room.Teams[0]); err != nil {
		t.Fatalf("delete team: %v", err)
	}
	got, _ := s.Room(ctx, room.ID)
	if diff := cmp.Diff(room.Teams[1:], got.Teams); diff != "" {
		t.Errorf("room teams (-want +got):\n%s", diff)
	}
}

func TestLeaveRoomIsIdempotent(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	room, _ := s.CreateRoom(ctx, "Room1", 60, []string{"A"})
	room, _ = s.ModifyRoom(ctx, room.ID, func(r *alias.Room) error {
		r.JoinedUsers = append(r.JoinedUsers, "u1", "u2")
		return nil
	})
	s.ModifyTeam(ctx, room.ID, room.Teams[0], func(t *alias.Team) error {
		t.AddPlayer("u1")
		return nil
	})

	first, err := s.LeaveRoom(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	second, err := s.LeaveRoom(ctx, room.ID, "u1")
	if err != nil {
		t.Fatalf("leave again: %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second leave changed state:\n%s", diff)
	}
	team, _ := s.Team(ctx, room.ID, room.Teams[0])
	if team.HasPlayer("u1") {
		t.Error("user still on team after leaving room")
	}

	if _, err := s.LeaveRoom(ctx, "missing", "u1"); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing room, got %v", err)
	}
}

func TestModifyTeamRollsBackOnError(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	room, _ := s.CreateRoom(ctx, "Room1", 60, []string{"A"})
	boom := errors.New("boom")
	_, err := s.ModifyTeam(ctx, room.ID, room.Teams[0], func(t *alias.Team) error {
		t.Score = 100
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	team, _ := s.Team(ctx, room.ID, room.Teams[0])
	if team.Score != 0 {
		t.Errorf("score persisted despite error: %d", team.Score)
	}
}

func TestMessagesByTeam(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	s.CreateMessage(ctx, "u1", "r1", "t1", "hello")
	s.CreateMessage(ctx, "u2", "r1", "t2", "other team")
	s.CreateMessage(ctx, "u2", "r1", "t1", "hi")

	msgs, err := s.ListMessages(ctx, "r1", "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Text != "hello" || msgs[1].Text != "hi" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	if msgs[0].ID == "" || msgs[0].Timestamp.IsZero() {
		t.Errorf("message missing id or timestamp: %+v", msgs[0])
	}
}

func TestRefreshTokens(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	if err := s.SaveRefreshToken(ctx, "jti-1", "u1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.ConsumeRefreshToken(ctx, "jti-1"); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := s.ConsumeRefreshToken(ctx, "jti-1"); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("expected ErrNotFound on reuse, got %v", err)
	}

	s.SaveRefreshToken(ctx, "jti-2", "u1", -time.Second)
	if err := s.ConsumeRefreshToken(ctx, "jti-2"); !errors.Is(err, alias.ErrNotFound) {
		t.Errorf("expected expired token to be rejected, got %v", err)
	}
}

func TestConcurrentModifyTeamOnFile(t *testing.T) {
	s := setupFileStore(t)
	ctx := context.Background()
	room, err := s.CreateRoom(ctx, "Room1", 60, []string{"Team1"})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	teamID := room.Teams[0]

	const writers = 8
	for round := range 10 {
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			ok, phase int
			other     []error
		)
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.ModifyTeam(ctx, room.ID, teamID, func(tm *alias.Team) error {
					if tm.Turn != round {
						return alias.ErrPhase
					}
					tm.Turn++
					return nil
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, alias.ErrConflict):
					phase++
				default:
					other = append(other, err)
				}
			}()
		}
		wg.Wait()

		if len(other) > 0 {
			t.Fatalf("round %d: unexpected errors: %v", round, other)
		}
		if ok != 1 || phase != writers-1 {
			t.Fatalf("round %d: ok=%d conflict=%d, want 1 and %d", round, ok, phase, writers-1)
		}
	}
}

func TestConcurrentMessagesOnFile(t *testing.T) {
	s := setupFileStore(t)
	ctx := context.Background()

	const senders = 16
	errs := make(chan error, senders)
	var wg sync.WaitGroup
	for i := range senders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateMessage(ctx, fmt.Sprintf("u%d", i), "r1", "t1", "hello")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("create message: %v", err)
		}
	}

	msgs, err := s.ListMessages(ctx, "r1", "t1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != senders {
		t.Errorf("messages = %d, want %d", len(msgs), senders)
	}
}
