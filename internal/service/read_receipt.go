package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/events"
	"github.com/victorivanov/supportline/internal/gateway"
	"github.com/victorivanov/supportline/internal/metrics"
	"github.com/victorivanov/supportline/internal/models"
)

// ReadReceiptService marks threads as read when the operator opens them.
type ReadReceiptService struct {
	messages  database.MessageStore
	presence  gateway.Presence
	publisher events.Publisher
	metrics   *metrics.Metrics
}

// NewReadReceiptService creates a ReadReceiptService.
func NewReadReceiptService(
	messages database.MessageStore,
	presence gateway.Presence,
	publisher events.Publisher,
	m *metrics.Metrics,
) *ReadReceiptService {
	return &ReadReceiptService{
		messages:  messages,
		presence:  presence,
		publisher: publisher,
		metrics:   m,
	}
}

// MarkRead sets seen on every message of the owner's thread. A thread with
// nothing to mark, or no messages at all, is still a success. When messages
// changed and the user is connected they get a MESSAGES_SEEN event.
func (s *ReadReceiptService) MarkRead(ctx context.Context, owner string) (*models.ReadReceipt, error) {
	if err := validOwner(owner); err != nil {
		return nil, err
	}

	n, err := s.messages.MarkSeen(ctx, owner)
	if err != nil {
		slog.Error("failed to mark conversation read", "owner", owner, "error", err)
		return nil, storageUnavailable()
	}

	receipt := &models.ReadReceipt{OwnerID: owner, Marked: n, SeenAt: time.Now().UTC()}
	if n == 0 {
		return receipt, nil
	}

	s.metrics.ReadReceipts.Inc()
	if ch, ok := s.presence.Lookup(owner); ok {
		_ = ch.Push(gateway.EventMessagesSeen, gateway.MessagesSeenData{OwnerID: owner, SeenAt: receipt.SeenAt})
	}
	publishAsync(s.publisher, events.NewEnvelope(events.TypeConversationRead, events.ConversationRef{OwnerID: owner, Count: n}))
	return receipt, nil
}
