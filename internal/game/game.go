// Package game drives rooms and teams through Alias rounds: role
// assignment, word draw, description, answer, scoring and reset, plus room
// and team membership.
package game

import (
	"context"

	"github.com/playperu/alias/internal/alias"
)

// Store is the persistence the game needs. store.DocStore implements it.
type Store interface {
	Room(ctx context.Context, id string) (alias.Room, error)
	ListRooms(ctx context.Context) ([]alias.Room, error)
	CountRooms(ctx context.Context) (int, error)
	CreateRoom(ctx context.Context, name string, turnTime int, teamNames []string) (alias.Room, error)
	ModifyRoom(ctx context.Context, id string, fn func(*alias.Room) error) (alias.Room, error)
	LeaveRoom(ctx context.Context, roomID, userID string) (alias.Room, error)
	DeleteRoom(ctx context.Context, id string) error

	Team(ctx context.Context, roomID, teamID string) (alias.Team, error)
	TeamByID(ctx context.Context, teamID string) (alias.Team, error)
	ListTeams(ctx context.Context, roomID string) ([]alias.Team, error)
	ModifyTeam(ctx context.Context, roomID, teamID string, fn func(*alias.Team) error) (alias.Team, error)
	DeleteTeam(ctx context.Context, roomID, teamID string) error

	Word(ctx context.Context, id string) (alias.Word, error)
	RandomUnusedWord(ctx context.Context, tried []string) (alias.Word, error)

	RecordRound(ctx context.Context, userIDs []string, won bool, reward int) error
}

// Notifier is told about every round transition so clients can follow along.
type Notifier interface {
	RoundUpdated(team alias.Team)
}

type nopNotifier struct{}

func (nopNotifier) RoundUpdated(alias.Team) {}
