package models

import (
	"time"

	"github.com/google/uuid"
)

// AgentMessage is a single message between two workers. Messages are
// immutable once created; the collaboration store orders them by
// priority descending, then creation time ascending.
type AgentMessage struct {
	// ID uniquely identifies the message.
	ID string `json:"id"`
	// From is the sending worker's id.
	From string `json:"from"`
	// To is the receiving worker's id.
	To string `json:"to"`
	// Payload is the message body, arbitrary structured data.
	Payload any `json:"payload"`
	// Priority is the urgency, 0-255, higher drains first.
	Priority int `json:"priority"`
	// CreatedAt is when the message was created.
	CreatedAt time.Time `json:"created_at"`
	// Read marks whether the recipient has drained this message.
	Read bool `json:"read"`
}

// NewMessage builds an AgentMessage with a fresh id and the current
// time. Priority is clamped to [0, 255].
func NewMessage(from, to string, payload any, priority int) AgentMessage {
	if priority < 0 {
		priority = 0
	}
	if priority > 255 {
		priority = 255
	}
	return AgentMessage{
		ID:        uuid.New().String(),
		From:      from,
		To:        to,
		Payload:   payload,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
}
