package websocket

import (
	"encoding/json"

	"github.com/Sprey412/backup-be/internal/models"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewEventMessage encodes a persisted system event for the wire.
func NewEventMessage(event models.Event) []byte {
	return mustMarshal(Message{Action: "event", Payload: event})
}

// NewLogMessage encodes a transient log line for the wire.
func NewLogMessage(message string) []byte {
	return mustMarshal(Message{Action: "log", Payload: map[string]string{"message": message}})
}

// NewErrorMessage encodes an error notification for the wire.
func NewErrorMessage(message string) []byte {
	return mustMarshal(Message{Action: "error", Payload: map[string]string{"message": message}})
}

// mustMarshal encodes a message; the payload types above cannot fail to marshal.
func mustMarshal(m Message) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return []byte(`{"action":"error","payload":{"message":"encoding failure"}}`)
	}
	return b
}
