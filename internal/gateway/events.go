package gateway

import (
	"encoding/json"
	"time"

	"github.com/victorivanov/supportline/internal/models"
)

// Op codes for gateway payloads.
const (
	OpDispatch     = 0
	OpHeartbeat    = 1
	OpIdentify     = 2
	OpSendMessage  = 3
	OpTyping       = 4
	OpReconnect    = 7
	OpHello        = 10
	OpHeartbeatAck = 11
)

// Event names for DISPATCH payloads.
const (
	EventReady             = "READY"
	EventMessageCreate     = "MESSAGE_CREATE"
	EventMessageAck        = "MESSAGE_ACK"
	EventMessageSendFailed = "MESSAGE_SEND_FAILED"
	EventMessagesSeen      = "MESSAGES_SEEN"
	EventTypingStart       = "TYPING_START"
)

// GatewayPayload is the envelope for all gateway messages.
type GatewayPayload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int64          `json:"s,omitempty"`
	Event    *string         `json:"t,omitempty"`
}

// IdentifyData is sent by the client in an Op 2 IDENTIFY.
type IdentifyData struct {
	Token string `json:"token"`
}

// HelloData is sent by the server after WebSocket connect.
type HelloData struct {
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// ReadyData is sent by the server after successful IDENTIFY.
type ReadyData struct {
	SessionID string      `json:"session_id"`
	OwnerID   string      `json:"owner_id,omitempty"`
	Role      models.Role `json:"role"`
}

// MessageAckData confirms a send to its sender once the message is persisted.
type MessageAckData struct {
	ID        int64     `json:"id,string"`
	OwnerID   string    `json:"owner_id"`
	Timestamp time.Time `json:"timestamp"`
	Nonce     string    `json:"nonce,omitempty"`
}

// SendFailedData tells the sender a send was rejected or not persisted.
type SendFailedData struct {
	Nonce   string `json:"nonce,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessagesSeenData tells a user the operator has read their thread.
type MessagesSeenData struct {
	OwnerID string    `json:"owner_id"`
	SeenAt  time.Time `json:"seen_at"`
}

// ClientTyping is sent by the client in an Op 4 TYPING. Operators name the
// thread they are typing in.
type ClientTyping struct {
	OwnerID string `json:"owner_id,omitempty"`
}

// TypingStartData is the payload for TYPING_START events.
type TypingStartData struct {
	OwnerID   string           `json:"owner_id"`
	Direction models.Direction `json:"direction"`
	Timestamp int64            `json:"timestamp"`
}
