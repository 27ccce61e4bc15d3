// Package alias defines the core domain types of the Alias word-guessing game
// together with the answer and description checks. It has no external
// dependencies.
package alias

import (
	"slices"
	"time"
)

const (
	MaxUsersInRoom   = 9
	MaxPlayersInTeam = 3
	DefaultTeamCount = 3

	MinTurnTime     = 15
	MaxTurnTime     = 250
	DefaultTurnTime = 60

	MinMessageLength = 1
	MaxMessageLength = 500

	MinUsernameLength = 3
	MinPasswordLength = 6
	// MaxPasswordBytes is the most bcrypt will hash.
	MaxPasswordBytes = 72

	LeaderboardSize = 10

	// RoundReward is added to the team and to every member on a correct answer.
	RoundReward = 1

	FillerDescription = "The describer ran out of time. Take a wild guess!"
)

type User struct {
	ID        string    `json:"_id"`
	Username  string    `json:"username"`
	Score     int       `json:"score"`
	Played    int       `json:"played"`
	Wins      int       `json:"wins"`
	CreatedAt time.Time `json:"createdAt"`
}

type DeletedUser struct {
	User
	DeletedAt time.Time `json:"deletedAt"`
}

type Room struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	JoinedUsers []string  `json:"joinedUsers"`
	Teams       []string  `json:"teams"`
	TurnTime    int       `json:"turnTime"`
	CreatedAt   time.Time `json:"createdAt"`
}

// HasUser reports whether userID is in the room's member list.
func (r *Room) HasUser(userID string) bool {
	return slices.Contains(r.JoinedUsers, userID)
}

func (r *Room) IsFull() bool {
	return len(r.JoinedUsers) >= MaxUsersInRoom
}

// Team holds its membership, cumulative score and the state of the current
// round. The per-round fields are nil outside of a round.
type Team struct {
	ID           string    `json:"_id"`
	RoomID       string    `json:"room"`
	Name         string    `json:"name"`
	Score        int       `json:"score"`
	Players      []string  `json:"players"`
	Phase        Phase     `json:"phase"`
	Turn         int       `json:"turn"`
	SelectedWord *string   `json:"selectedWord"`
	Describer    *string   `json:"describer"`
	Leader       *string   `json:"leader"`
	Description  *string   `json:"description"`
	TryedWords   []string  `json:"tryedWords"`
	Answer       *string   `json:"answer"`
	Success      *bool     `json:"success"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (t *Team) HasPlayer(userID string) bool {
	return slices.Contains(t.Players, userID)
}

func (t *Team) IsFull() bool {
	return len(t.Players) >= MaxPlayersInTeam
}

func (t *Team) IsDescriber(userID string) bool {
	return t.Describer != nil && *t.Describer == userID
}

func (t *Team) IsLeader(userID string) bool {
	return t.Leader != nil && *t.Leader == userID
}

// AddPlayer appends userID unless already present.
func (t *Team) AddPlayer(userID string) {
	if !t.HasPlayer(userID) {
		t.Players = append(t.Players, userID)
	}
}

func (t *Team) RemovePlayer(userID string) {
	t.Players = slices.DeleteFunc(t.Players, func(id string) bool { return id == userID })
}

// ResetRound clears the per-round fields. TryedWords and Turn survive so
// words never repeat within a game and roles keep rotating.
func (t *Team) ResetRound() {
	t.Phase = PhaseIdle
	t.SelectedWord = nil
	t.Describer = nil
	t.Leader = nil
	t.Description = nil
	t.Answer = nil
	t.Success = nil
}

type Word struct {
	ID           string   `json:"_id"`
	Word         string   `json:"word"`
	SimilarWords []string `json:"similarWords"`
}

type Message struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	RoomID    string    `json:"roomId"`
	TeamID    string    `json:"teamId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Channel returns the chat channel key for a team within a room.
func Channel(roomID, teamID string) string {
	return roomID + "-" + teamID
}
