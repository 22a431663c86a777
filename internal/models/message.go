package models

import "time"

// Direction identifies which party authored a message.
type Direction string

const (
	DirectionUser     Direction = "user"
	DirectionOperator Direction = "operator"
)

// Valid reports whether d is one of the two known parties.
func (d Direction) Valid() bool {
	return d == DirectionUser || d == DirectionOperator
}

// Message is a single chat message in a user's conversation. OwnerID is the
// conversation key shared by both parties' messages in the thread.
type Message struct {
	ID           int64       `json:"id,string"`
	OwnerID      string      `json:"owner_id"`
	Direction    Direction   `json:"direction"`
	Content      *string     `json:"content,omitempty"`
	AttachmentID *int64      `json:"attachment_id,string,omitempty"`
	Attachment   *Attachment `json:"attachment,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	Seen         bool        `json:"seen"`
}

// Newer reports whether m sorts after other: later timestamp first, then
// higher id when timestamps collide.
func (m *Message) Newer(other *Message) bool {
	if !m.Timestamp.Equal(other.Timestamp) {
		return m.Timestamp.After(other.Timestamp)
	}
	return m.ID > other.ID
}
