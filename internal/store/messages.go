package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/playperu/alias/internal/alias"
)

// CreateMessage assigns an id and timestamp and persists the message.
func (s *DocStore) CreateMessage(ctx context.Context, userID, roomID, teamID, text string) (alias.Message, error) {
	m := alias.Message{
		ID:        newID(),
		UserID:    userID,
		RoomID:    roomID,
		TeamID:    teamID,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(m)
	if err != nil {
		return alias.Message{}, err
	}
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO messages (id, room_id, team_id, data) VALUES (?, ?, ?, jsonb(?))`,
			m.ID, m.RoomID, m.TeamID, string(data),
		)
		return err
	})
	if err != nil {
		return alias.Message{}, err
	}
	return m, nil
}

// ListMessages returns a team's chat history, oldest first.
func (s *DocStore) ListMessages(ctx context.Context, roomID, teamID string) ([]alias.Message, error) {
	return list[alias.Message](ctx, s.db,
		`SELECT json(data) FROM messages WHERE room_id = ? AND team_id = ? ORDER BY rowid`,
		roomID, teamID)
}
