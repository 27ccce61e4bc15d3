package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/playperu/alias/internal/alias"
)

const maxProvisionAttempts = 5

// Lobby admits users into rooms and teams.
type Lobby struct {
	store  Store
	logger *slog.Logger
}

func NewLobby(store Store, logger *slog.Logger) *Lobby {
	return &Lobby{store: store, logger: logger}
}

// AddUserToRoom seats the user in the fullest room that still has space.
// When that room is one seat short of capacity a fresh room is opened so the
// next user always finds a place.
func (l *Lobby) AddUserToRoom(ctx context.Context, userID string) (alias.Room, error) {
	rooms, err := l.store.ListRooms(ctx)
	if err != nil {
		return alias.Room{}, err
	}
	for _, r := range rooms {
		if r.HasUser(userID) {
			return r, nil
		}
	}

	for {
		target, ok := pickRoom(rooms)
		if !ok {
			return alias.Room{}, alias.Errorf(alias.ErrNotFound, "no room with a free seat")
		}

		room, err := l.store.ModifyRoom(ctx, target.ID, func(r *alias.Room) error {
			if r.HasUser(userID) {
				return nil
			}
			if r.IsFull() {
				return errRoomFull
			}
			r.JoinedUsers = append(r.JoinedUsers, userID)
			return nil
		})
		if errors.Is(err, errRoomFull) {
			// Filled up since the listing; try the next candidate.
			rooms = withoutRoom(rooms, target.ID)
			continue
		}
		if err != nil {
			return alias.Room{}, err
		}

		if len(room.JoinedUsers) == alias.MaxUsersInRoom-1 {
			if _, err := l.ProvisionRoom(ctx); err != nil {
				l.logger.Error("provisioning spare room", "error", err)
			}
		}
		return room, nil
	}
}

var errRoomFull = errors.New("room is full")

// pickRoom returns the room with the most members among those with a free
// seat. Ties keep store order.
func pickRoom(rooms []alias.Room) (alias.Room, bool) {
	var best alias.Room
	found := false
	for _, r := range rooms {
		if r.IsFull() {
			continue
		}
		if !found || len(r.JoinedUsers) > len(best.JoinedUsers) {
			best = r
			found = true
		}
	}
	return best, found
}

func withoutRoom(rooms []alias.Room, id string) []alias.Room {
	out := make([]alias.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

// ProvisionRoom opens "Room N" with the default teams.
func (l *Lobby) ProvisionRoom(ctx context.Context) (alias.Room, error) {
	n, err := l.store.CountRooms(ctx)
	if err != nil {
		return alias.Room{}, err
	}
	teams := make([]string, alias.DefaultTeamCount)
	for i := range teams {
		teams[i] = fmt.Sprintf("Team %d", i+1)
	}

	for attempt := range maxProvisionAttempts {
		name := fmt.Sprintf("Room %d", n+1+attempt)
		room, err := l.store.CreateRoom(ctx, name, alias.DefaultTurnTime, teams)
		if errors.Is(err, alias.ErrConflict) {
			continue
		}
		if err != nil {
			return alias.Room{}, err
		}
		l.logger.Info("room provisioned", "room_id", room.ID, "name", room.Name)
		return room, nil
	}
	return alias.Room{}, fmt.Errorf("no free room name after %d attempts", maxProvisionAttempts)
}

// RemoveUserFromRoom is a no-op when the user is not in the room.
func (l *Lobby) RemoveUserFromRoom(ctx context.Context, userID, roomID string) (alias.Room, error) {
	return l.store.LeaveRoom(ctx, roomID, userID)
}

// AddPlayer adds the user to the team without checking capacity.
func (l *Lobby) AddPlayer(ctx context.Context, roomID, teamID, userID string) (alias.Team, error) {
	return l.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		t.AddPlayer(userID)
		return nil
	})
}

func (l *Lobby) RemovePlayer(ctx context.Context, roomID, teamID, userID string) (alias.Team, error) {
	return l.store.ModifyTeam(ctx, roomID, teamID, func(t *alias.Team) error {
		t.RemovePlayer(userID)
		return nil
	})
}

// JoinTeam is the user-facing join. Unlike AddPlayer it refuses a full team.
func (l *Lobby) JoinTeam(ctx context.Context, userID, teamID string) (alias.Team, error) {
	team, err := l.store.TeamByID(ctx, teamID)
	if err != nil {
		return alias.Team{}, err
	}
	return l.store.ModifyTeam(ctx, team.RoomID, teamID, func(t *alias.Team) error {
		if t.HasPlayer(userID) {
			return nil
		}
		if t.IsFull() {
			return alias.Errorf(alias.ErrConflict, "team %s is full", t.Name)
		}
		t.AddPlayer(userID)
		return nil
	})
}

func (l *Lobby) LeaveTeam(ctx context.Context, userID, teamID string) (alias.Team, error) {
	team, err := l.store.TeamByID(ctx, teamID)
	if err != nil {
		return alias.Team{}, err
	}
	return l.RemovePlayer(ctx, team.RoomID, teamID, userID)
}

// IsRoomReady reports whether the room has teams and every one of them is
// full.
func (l *Lobby) IsRoomReady(ctx context.Context, roomID string) (bool, error) {
	if _, err := l.store.Room(ctx, roomID); err != nil {
		return false, err
	}
	teams, err := l.store.ListTeams(ctx, roomID)
	if err != nil {
		return false, err
	}
	if len(teams) == 0 {
		return false, nil
	}
	for _, t := range teams {
		if len(t.Players) < alias.MaxPlayersInTeam {
			return false, nil
		}
	}
	return true, nil
}
