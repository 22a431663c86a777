package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/events"
	"github.com/victorivanov/supportline/internal/gateway"
	"github.com/victorivanov/supportline/internal/metrics"
	"github.com/victorivanov/supportline/internal/models"
)

const publishTimeout = 5 * time.Second

// BrokerOptions tunes the delivery broker.
type BrokerOptions struct {
	PersistTimeout   time.Duration
	MaxContentLength int
}

// Broker validates, persists and routes messages between a user and the
// operator. A message reaches the counterpart only after it is persisted,
// and a send is acknowledged only after persistence succeeds.
type Broker struct {
	messages  database.MessageStore
	presence  gateway.Presence
	publisher events.Publisher
	metrics   *metrics.Metrics
	validate  *validator.Validate

	persistTimeout   time.Duration
	maxContentLength int
}

// NewBroker creates a Broker.
func NewBroker(
	messages database.MessageStore,
	presence gateway.Presence,
	publisher events.Publisher,
	m *metrics.Metrics,
	opts BrokerOptions,
) *Broker {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = 2000
	}
	return &Broker{
		messages:         messages,
		presence:         presence,
		publisher:        publisher,
		metrics:          m,
		validate:         newValidator(),
		persistTimeout:   opts.PersistTimeout,
		maxContentLength: opts.MaxContentLength,
	}
}

// Send runs one message through validation, persistence, live delivery and
// acknowledgement. ack is the sender's channel, or nil for senders that read
// the result from the return value. On failure nothing is delivered and,
// when ack is set, a MESSAGE_SEND_FAILED event is pushed to it.
func (b *Broker) Send(ctx context.Context, sender models.Identity, ack gateway.Channel, req models.SendRequest) (*models.Message, error) {
	msg, err := b.persist(ctx, sender, &req)
	if err != nil {
		code, message := codeOf(err)
		b.metrics.SendFailures.WithLabelValues(code).Inc()
		if ack != nil {
			_ = ack.Push(gateway.EventMessageSendFailed, gateway.SendFailedData{
				Nonce:   req.Nonce,
				Code:    code,
				Message: message,
			})
		}
		return nil, err
	}

	b.deliver(sender, msg)

	if ack != nil {
		if err := ack.Push(gateway.EventMessageAck, gateway.MessageAckData{
			ID:        msg.ID,
			OwnerID:   msg.OwnerID,
			Timestamp: msg.Timestamp,
			Nonce:     req.Nonce,
		}); err != nil {
			slog.Debug("ack not delivered", "owner", msg.OwnerID, "id", msg.ID, "error", err)
		}
	}

	b.publish(events.TypeMessageCreated, msg)
	return msg, nil
}

func (b *Broker) persist(ctx context.Context, sender models.Identity, req *models.SendRequest) (*models.Message, error) {
	owner, err := b.resolveSend(sender, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.persistTimeout)
	defer cancel()

	start := time.Now()
	msg, err := b.messages.Append(ctx, owner, sender.Direction(), req.Content, req.AttachmentID)
	b.metrics.PersistLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, database.ErrEmptyMessage):
			return nil, Validation("EMPTY_MESSAGE", "message needs content or an attachment")
		case errors.Is(err, database.ErrUnknownAttachment):
			return nil, Validation("UNKNOWN_ATTACHMENT", "attachment_id does not reference an upload")
		}
		slog.Error("failed to persist message", "owner", owner, "direction", sender.Direction(), "error", err)
		return nil, storageUnavailable()
	}

	b.metrics.MessagesPersisted.WithLabelValues(string(msg.Direction)).Inc()
	return msg, nil
}

// deliver pushes msg to the counterpart if connected. An absent or
// unavailable channel leaves the message queued in the store.
func (b *Broker) deliver(sender models.Identity, msg *models.Message) {
	target := models.OperatorKey
	if sender.IsOperator() {
		target = msg.OwnerID
	}

	ch, ok := b.presence.Lookup(target)
	if !ok {
		b.metrics.Deliveries.WithLabelValues(metrics.OutcomeQueued).Inc()
		return
	}
	if err := ch.Push(gateway.EventMessageCreate, msg); err != nil {
		if !errors.Is(err, ErrChannelUnavailable) {
			slog.Warn("push failed", "target", target, "id", msg.ID, "error", err)
		}
		b.metrics.Deliveries.WithLabelValues(metrics.OutcomeQueued).Inc()
		return
	}
	b.metrics.Deliveries.WithLabelValues(metrics.OutcomeDelivered).Inc()
}

// publish emits a domain event without holding up the caller.
func (b *Broker) publish(eventType string, data any) {
	publishAsync(b.publisher, events.NewEnvelope(eventType, data))
}

func publishAsync(p events.Publisher, env events.Envelope) {
	if p == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, env); err != nil {
			slog.Warn("failed to publish event", "type", env.Type, "error", err)
		}
	}()
}
