package chat

import "time"

// Sender tags which side of the conversation authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one persisted turn within a session. Messages are append-only
// and never mutated after creation.
type Message struct {
	ID        string    `json:"id" bson:"_id,omitempty"`
	SessionID string    `json:"sessionId" bson:"sessionId"`
	Content   string    `json:"content" bson:"content"`
	Sender    Sender    `json:"sender" bson:"sender"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Read      bool      `json:"read" bson:"read"`
}

// LocalMessage is the in-memory transcript shape mirrored to the UI. Gate
// prompts and remote-call failures appear here without ever being persisted;
// Error marks the latter so the rendering layer can style them.
type LocalMessage struct {
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Error     bool      `json:"error,omitempty"`
}
