package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/victorivanov/supportline/internal/models"
)

type attachmentRepo struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepo{pool: pool}
}

func (r *attachmentRepo) Create(ctx context.Context, a *models.Attachment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attachments (url, file_name, media_type, storage_key)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		a.URL, a.FileName, a.MediaType, a.StorageKey,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *attachmentRepo) GetByID(ctx context.Context, id int64) (*models.Attachment, error) {
	a := &models.Attachment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, url, file_name, media_type, storage_key, created_at
		 FROM attachments
		 WHERE id = $1`, id,
	).Scan(&a.ID, &a.URL, &a.FileName, &a.MediaType, &a.StorageKey, &a.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return a, err
}
