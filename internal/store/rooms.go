package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/playperu/alias/internal/alias"
)

func putRoom(ctx context.Context, q querier, r alias.Room) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO rooms (id, name, data) VALUES (?, ?, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, data = excluded.data`,
		r.ID, r.Name, string(data),
	)
	return conflictOr(err, "room %q already exists", r.Name)
}

// CreateRoom creates a room with one team per entry of teamNames.
func (s *DocStore) CreateRoom(ctx context.Context, name string, turnTime int, teamNames []string) (alias.Room, error) {
	now := time.Now().UTC()
	room := alias.Room{
		ID:          newID(),
		Name:        name,
		JoinedUsers: []string{},
		Teams:       []string{},
		TurnTime:    turnTime,
		CreatedAt:   now,
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, tn := range teamNames {
			team := newTeam(room.ID, tn, now)
			if err := putTeam(ctx, tx, team); err != nil {
				return err
			}
			room.Teams = append(room.Teams, team.ID)
		}
		return putRoom(ctx, tx, room)
	})
	if err != nil {
		return alias.Room{}, err
	}
	return room, nil
}

func (s *DocStore) Room(ctx context.Context, id string) (alias.Room, error) {
	var r alias.Room
	err := get(ctx, s.db, "rooms", id, &r)
	return r, err
}

// ListRooms returns all rooms in creation order.
func (s *DocStore) ListRooms(ctx context.Context) ([]alias.Room, error) {
	return list[alias.Room](ctx, s.db, `SELECT json(data) FROM rooms ORDER BY rowid`)
}

func (s *DocStore) CountRooms(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n)
	return n, err
}

// ModifyRoom loads a room, applies fn, and saves it in a transaction.
func (s *DocStore) ModifyRoom(ctx context.Context, id string, fn func(*alias.Room) error) (alias.Room, error) {
	var r alias.Room
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := get(ctx, tx, "rooms", id, &r); err != nil {
			return err
		}
		if err := fn(&r); err != nil {
			return err
		}
		return putRoom(ctx, tx, r)
	})
	return r, err
}

// DeleteRoom removes the room together with its teams.
func (s *DocStore) DeleteRoom(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := del(ctx, tx, "rooms", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM teams WHERE room_id = ?`, id)
		return err
	})
}

// LeaveRoom removes userID from the room and from every team in it. Absent
// members are ignored.
func (s *DocStore) LeaveRoom(ctx context.Context, roomID, userID string) (alias.Room, error) {
	var r alias.Room
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := get(ctx, tx, "rooms", roomID, &r); err != nil {
			return err
		}
		r.JoinedUsers = removeID(r.JoinedUsers, userID)
		if err := putRoom(ctx, tx, r); err != nil {
			return err
		}

		teams, err := list[alias.Team](ctx, tx,
			`SELECT json(data) FROM teams WHERE room_id = ? ORDER BY rowid`, roomID)
		if err != nil {
			return err
		}
		for _, t := range teams {
			if !t.HasPlayer(userID) {
				continue
			}
			t.RemovePlayer(userID)
			if err := putTeam(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
	return r, err
}

func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
