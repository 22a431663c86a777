package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types, also used as routing keys on the exchange.
const (
	TypeMessageCreated      = "message.created"
	TypeConversationRead    = "conversation.read"
	TypeConversationDeleted = "conversation.deleted"
	TypeConversationsPurged = "conversations.purged"
)

// Envelope is the JSON body of every published domain event.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

// NewEnvelope stamps an event with a fresh id and the current time.
func NewEnvelope(eventType string, data any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// ConversationRef identifies the conversation an event is about.
type ConversationRef struct {
	OwnerID string `json:"owner_id"`
	Count   int64  `json:"count"`
}
