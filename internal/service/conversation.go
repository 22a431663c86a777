package service

import (
	"context"
	"log/slog"

	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/events"
	"github.com/victorivanov/supportline/internal/models"
)

// ConversationService builds the operator's inbox and per-user threads.
// Results are recomputed from the store on every call.
type ConversationService struct {
	messages  database.MessageStore
	publisher events.Publisher
}

// NewConversationService creates a ConversationService.
func NewConversationService(messages database.MessageStore, publisher events.Publisher) *ConversationService {
	return &ConversationService{messages: messages, publisher: publisher}
}

// Build returns the latest message of every conversation, keyed by owner.
// Entries are ordered by ascending timestamp of that latest message.
func (s *ConversationService) Build(ctx context.Context) (*models.Inbox, error) {
	latest, err := s.messages.LatestPerOwner(ctx)
	if err != nil {
		slog.Error("failed to load inbox", "error", err)
		return nil, storageUnavailable()
	}

	inbox := models.NewInbox()
	for i := len(latest) - 1; i >= 0; i-- {
		inbox.Put(latest[i])
	}
	return inbox, nil
}

// BuildFor returns the full thread of one user, newest first.
func (s *ConversationService) BuildFor(ctx context.Context, owner string) ([]models.Message, error) {
	if err := validOwner(owner); err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByOwner(ctx, owner)
	if err != nil {
		slog.Error("failed to load conversation", "owner", owner, "error", err)
		return nil, storageUnavailable()
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

// Delete removes one user's conversation and reports how many messages went.
func (s *ConversationService) Delete(ctx context.Context, owner string) (int64, error) {
	if err := validOwner(owner); err != nil {
		return 0, err
	}
	n, err := s.messages.DeleteByOwner(ctx, owner)
	if err != nil {
		slog.Error("failed to delete conversation", "owner", owner, "error", err)
		return 0, storageUnavailable()
	}
	if n == 0 {
		return 0, NotFound("NOT_FOUND", "conversation not found")
	}
	publishAsync(s.publisher, events.NewEnvelope(events.TypeConversationDeleted, events.ConversationRef{OwnerID: owner, Count: n}))
	return n, nil
}

// PurgeAll removes every message. It is idempotent.
func (s *ConversationService) PurgeAll(ctx context.Context) error {
	if err := s.messages.PurgeAll(ctx); err != nil {
		slog.Error("failed to purge messages", "error", err)
		return storageUnavailable()
	}
	publishAsync(s.publisher, events.NewEnvelope(events.TypeConversationsPurged, nil))
	return nil
}
