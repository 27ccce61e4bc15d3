package chat

import "encoding/json"

const (
	EventJoinTeam       = "joinTeam"
	EventSendMessage    = "sendMessage"
	EventJoinedTeam     = "joinedTeam"
	EventReceiveMessage = "receiveMessage"
	EventRoundUpdate    = "roundUpdate"
	EventError          = "error"
)

// Frame is the envelope of every websocket message in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type TeamRef struct {
	RoomID string `json:"roomId"`
	TeamID string `json:"teamId"`
}

type SendMessage struct {
	TeamRef
	Text string `json:"text"`
}

type RoundUpdate struct {
	RoomID string `json:"roomId"`
	TeamID string `json:"teamId"`
	Phase  string `json:"phase"`
}

type ErrorData struct {
	Message string `json:"message"`
}

func encode(event string, data any) []byte {
	b, _ := json.Marshal(outFrame{Event: event, Data: data})
	return b
}
