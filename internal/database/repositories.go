package database

import (
	"context"
	"errors"

	"github.com/victorivanov/supportline/internal/models"
)

var (
	// ErrEmptyMessage is returned by Append when neither content nor an attachment is given.
	ErrEmptyMessage = errors.New("message has no content and no attachment")
	// ErrUnknownAttachment is returned by Append when the attachment reference does not resolve.
	ErrUnknownAttachment = errors.New("attachment not found")
)

// MessageStore is the append-only log of chat messages. Every returned
// message carries its resolved Attachment, if any.
type MessageStore interface {
	Append(ctx context.Context, ownerID string, direction models.Direction, content *string, attachmentID *int64) (*models.Message, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Message, error)
	LatestPerOwner(ctx context.Context) ([]models.Message, error)
	MarkSeen(ctx context.Context, ownerID string) (int64, error)
	DeleteByOwner(ctx context.Context, ownerID string) (int64, error)
	PurgeAll(ctx context.Context) error
}

// AttachmentRepository records uploaded files so messages can reference them.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id int64) (*models.Attachment, error)
}

func hasBody(content *string, attachmentID *int64) bool {
	return (content != nil && *content != "") || attachmentID != nil
}
