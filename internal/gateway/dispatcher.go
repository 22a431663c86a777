package gateway

import (
	"context"
	"errors"

	"github.com/victorivanov/supportline/internal/models"
)

// ErrChannelUnavailable is returned by Push when the channel is closed or
// cannot accept more events.
var ErrChannelUnavailable = errors.New("channel unavailable")

// Channel is a live outbound stream to one connected party. Push never blocks.
type Channel interface {
	Push(event string, data any) error
}

// Presence resolves the live channel registered under a key.
type Presence interface {
	Lookup(key string) (Channel, bool)
}

// MessageSender handles SEND_MESSAGE payloads. ack is the sending channel;
// the sender is expected to acknowledge or report failure on it.
type MessageSender interface {
	Send(ctx context.Context, sender models.Identity, ack Channel, req models.SendRequest) (*models.Message, error)
}
