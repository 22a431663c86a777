package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/models"
	"github.com/victorivanov/supportline/internal/storage"
)

const maxUploadSize = 25 << 20 // 25 MB

// FileStorage abstracts object storage operations for testability.
type FileStorage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetURL(key string) string
	Delete(ctx context.Context, key string) error
}

// UploadService stores files and registers them as attachments that
// messages can reference by id.
type UploadService struct {
	attachments database.AttachmentRepository
	storage     FileStorage
}

// NewUploadService creates an UploadService.
func NewUploadService(attachments database.AttachmentRepository, storage FileStorage) *UploadService {
	return &UploadService{attachments: attachments, storage: storage}
}

// Upload stores the file and records it. The media type is derived from the
// file extension.
func (s *UploadService) Upload(ctx context.Context, owner, filename string, size int64, contentType string, reader io.Reader) (*models.Attachment, error) {
	if size <= 0 {
		return nil, Validation("EMPTY_FILE", "file is empty")
	}
	if size > maxUploadSize {
		return nil, Validation("FILE_TOO_LARGE", "file must be under 25 MB")
	}

	cleanFilename := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if cleanFilename == "." || cleanFilename == "/" || cleanFilename == "" {
		return nil, Validation("INVALID_FILENAME", "file name is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	storageKey := storage.ObjectKey(owner, uuid.NewString(), cleanFilename)
	if err := s.storage.Upload(ctx, storageKey, reader, size, contentType); err != nil {
		slog.Error("failed to store upload", "owner", owner, "key", storageKey, "error", err)
		return nil, Storage("UPLOAD_FAILED", "failed to upload file")
	}

	attachment := &models.Attachment{
		URL:        s.storage.GetURL(storageKey),
		FileName:   cleanFilename,
		MediaType:  models.MediaTypeFor(cleanFilename),
		StorageKey: storageKey,
	}

	if err := s.attachments.Create(ctx, attachment); err != nil {
		slog.Error("failed to record attachment", "owner", owner, "key", storageKey, "error", err)
		if delErr := s.storage.Delete(ctx, storageKey); delErr != nil {
			slog.Warn("failed to remove orphaned upload", "key", storageKey, "error", delErr)
		}
		return nil, storageUnavailable()
	}

	return attachment, nil
}
