package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/victorivanov/supportline/internal/models"
)

// MemoryStore is a process-local MessageStore and AttachmentRepository. It
// backs development runs without DATABASE_URL and the service tests.
type MemoryStore struct {
	mu          sync.RWMutex
	messages    []models.Message
	attachments map[int64]models.Attachment
	nextMsgID   int64
	nextAttID   int64
	now         func() time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		attachments: make(map[int64]models.Attachment),
		now:         time.Now,
	}
}

// SetClock replaces the timestamp source. Tests use it to force collisions.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) Append(ctx context.Context, ownerID string, direction models.Direction, content *string, attachmentID *int64) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hasBody(content, attachmentID) {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var att *models.Attachment
	if attachmentID != nil {
		a, ok := s.attachments[*attachmentID]
		if !ok {
			return nil, ErrUnknownAttachment
		}
		att = &a
	}

	s.nextMsgID++
	msg := models.Message{
		ID:           s.nextMsgID,
		OwnerID:      ownerID,
		Direction:    direction,
		Content:      content,
		AttachmentID: attachmentID,
		Timestamp:    s.now(),
	}
	s.messages = append(s.messages, msg)

	msg.Attachment = att
	return &msg, nil
}

func (s *MemoryStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Message
	for _, m := range s.messages {
		if m.OwnerID == ownerID {
			out = append(out, s.resolve(m))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) LatestPerOwner(ctx context.Context) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	latest := make(map[string]models.Message)
	for _, m := range s.messages {
		cur, ok := latest[m.OwnerID]
		if !ok || m.Newer(&cur) {
			latest[m.OwnerID] = m
		}
	}

	out := make([]models.Message, 0, len(latest))
	for _, m := range latest {
		out = append(out, s.resolve(m))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) MarkSeen(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.messages {
		if s.messages[i].OwnerID == ownerID && !s.messages[i].Seen {
			s.messages[i].Seen = true
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.messages[:0]
	var n int64
	for _, m := range s.messages {
		if m.OwnerID == ownerID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	s.messages = kept
	return n, nil
}

func (s *MemoryStore) PurgeAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, a *models.Attachment) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextAttID++
	a.ID = s.nextAttID
	a.CreatedAt = s.now()
	s.attachments[a.ID] = *a
	return nil
}

func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attachments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// resolve must be called with s.mu held.
func (s *MemoryStore) resolve(m models.Message) models.Message {
	if m.AttachmentID != nil {
		if a, ok := s.attachments[*m.AttachmentID]; ok {
			m.Attachment = &a
		}
	}
	return m
}

func sortNewestFirst(msgs []models.Message) {
	sort.Slice(msgs, func(i, j int) bool {
		return msgs[i].Newer(&msgs[j])
	})
}
