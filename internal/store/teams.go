package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/playperu/alias/internal/alias"
)

func newTeam(roomID, name string, now time.Time) alias.Team {
	return alias.Team{
		ID:         newID(),
		RoomID:     roomID,
		Name:       name,
		Players:    []string{},
		Phase:      alias.PhaseIdle,
		TryedWords: []string{},
		CreatedAt:  now,
	}
}

func putTeam(ctx context.Context, q querier, t alias.Team) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO teams (id, room_id, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET room_id = excluded.room_id, data = excluded.data`,
		t.ID, t.RoomID, string(data),
	)
	return err
}

// getTeam loads a team and checks that it belongs to roomID.
func getTeam(ctx context.Context, q querier, roomID, teamID string) (alias.Team, error) {
	var t alias.Team
	if err := get(ctx, q, "teams", teamID, &t); err != nil {
		return alias.Team{}, err
	}
	if t.RoomID != roomID {
		return alias.Team{}, alias.ErrNotFound
	}
	return t, nil
}

// CreateTeam adds a new team to an existing room.
func (s *DocStore) CreateTeam(ctx context.Context, roomID, name string) (alias.Team, error) {
	var team alias.Team
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var r alias.Room
		if err := get(ctx, tx, "rooms", roomID, &r); err != nil {
			return err
		}
		team = newTeam(roomID, name, time.Now().UTC())
		if err := putTeam(ctx, tx, team); err != nil {
			return err
		}
		r.Teams = append(r.Teams, team.ID)
		return putRoom(ctx, tx, r)
	})
	if err != nil {
		return alias.Team{}, err
	}
	return team, nil
}

func (s *DocStore) Team(ctx context.Context, roomID, teamID string) (alias.Team, error) {
	return getTeam(ctx, s.db, roomID, teamID)
}

// TeamByID loads a team without knowing its room.
func (s *DocStore) TeamByID(ctx context.Context, teamID string) (alias.Team, error) {
	var t alias.Team
	err := get(ctx, s.db, "teams", teamID, &t)
	return t, err
}

func (s *DocStore) ListTeams(ctx context.Context, roomID string) ([]alias.Team, error) {
	return list[alias.Team](ctx, s.db,
		`SELECT json(data) FROM teams WHERE room_id = ? ORDER BY rowid`, roomID)
}

// ModifyTeam loads a team of roomID, applies fn, and saves it in a
// transaction. Nothing is written when fn fails.
func (s *DocStore) ModifyTeam(ctx context.Context, roomID, teamID string, fn func(*alias.Team) error) (alias.Team, error) {
	var t alias.Team
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		t, err = getTeam(ctx, tx, roomID, teamID)
		if err != nil {
			return err
		}
		if err := fn(&t); err != nil {
			return err
		}
		return putTeam(ctx, tx, t)
	})
	return t, err
}

// DeleteTeam removes the team and its id from the room.
func (s *DocStore) DeleteTeam(ctx context.Context, roomID, teamID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getTeam(ctx, tx, roomID, teamID); err != nil {
			return err
		}
		var r alias.Room
		if err := get(ctx, tx, "rooms", roomID, &r); err != nil {
			return err
		}
		r.Teams = removeID(r.Teams, teamID)
		if err := putRoom(ctx, tx, r); err != nil {
			return err
		}
		return del(ctx, tx, "teams", teamID)
	})
}
