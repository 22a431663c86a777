package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/supportline/internal/models"
)

const foreignKeyViolation = "23503"

const messageColumns = `m.id, m.owner_id, m.direction, m.content, m.attachment_id, m.created_at, m.seen,
		        a.id, a.url, a.file_name, a.media_type, a.storage_key, a.created_at`

type messageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) MessageStore {
	return &messageRepo{pool: pool}
}

func (r *messageRepo) Append(ctx context.Context, ownerID string, direction models.Direction, content *string, attachmentID *int64) (*models.Message, error) {
	if !hasBody(content, attachmentID) {
		return nil, ErrEmptyMessage
	}

	msg := &models.Message{
		OwnerID:      ownerID,
		Direction:    direction,
		Content:      content,
		AttachmentID: attachmentID,
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO messages (owner_id, direction, content, attachment_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, seen`,
		ownerID, direction, content, attachmentID,
	).Scan(&msg.ID, &msg.Timestamp, &msg.Seen)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, ErrUnknownAttachment
		}
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	if attachmentID != nil {
		a, err := NewAttachmentRepository(r.pool).GetByID(ctx, *attachmentID)
		if err != nil {
			return nil, err
		}
		msg.Attachment = a
	}
	return msg, nil
}

func (r *messageRepo) ListByOwner(ctx context.Context, ownerID string) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+`
		 FROM messages m
		 LEFT JOIN attachments a ON a.id = m.attachment_id
		 WHERE m.owner_id = $1
		 ORDER BY m.created_at DESC, m.id DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *messageRepo) LatestPerOwner(ctx context.Context) ([]models.Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+`
		 FROM (
		     SELECT DISTINCT ON (owner_id) *
		     FROM messages
		     ORDER BY owner_id, created_at DESC, id DESC
		 ) m
		 LEFT JOIN attachments a ON a.id = m.attachment_id
		 ORDER BY m.created_at DESC, m.id DESC`,
	)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (r *messageRepo) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *messageRepo) PurgeAll(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM messages`)
	return err
}

func collectMessages(rows pgx.Rows) ([]models.Message, error) {
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanMessage(row pgx.Row) (models.Message, error) {
	var (
		m        models.Message
		aID      *int64
		aURL     *string
		aName    *string
		aMedia   *string
		aKey     *string
		aCreated *time.Time
	)
	if err := row.Scan(
		&m.ID, &m.OwnerID, &m.Direction, &m.Content, &m.AttachmentID, &m.Timestamp, &m.Seen,
		&aID, &aURL, &aName, &aMedia, &aKey, &aCreated,
	); err != nil {
		return m, err
	}
	if aID != nil {
		m.Attachment = &models.Attachment{
			ID:         *aID,
			URL:        deref(aURL),
			FileName:   deref(aName),
			MediaType:  models.MediaType(deref(aMedia)),
			StorageKey: deref(aKey),
		}
		if aCreated != nil {
			m.Attachment.CreatedAt = *aCreated
		}
	}
	return m, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
