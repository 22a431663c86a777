package models

import (
	"path/filepath"
	"strings"
	"time"
)

// MediaType is the coarse classification used by clients to render an attachment.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaFile  MediaType = "file"
)

// Attachment is an uploaded file a message may reference. Immutable once created.
type Attachment struct {
	ID         int64     `json:"id,string"`
	URL        string    `json:"url"`
	FileName   string    `json:"file_name"`
	MediaType  MediaType `json:"media_type"`
	StorageKey string    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

var extensionMedia = map[string]MediaType{
	"jpg": MediaImage, "jpeg": MediaImage, "png": MediaImage, "gif": MediaImage,
	"webp": MediaImage, "bmp": MediaImage, "svg": MediaImage, "heic": MediaImage,
	"mp4": MediaVideo, "mov": MediaVideo, "avi": MediaVideo, "mkv": MediaVideo,
	"webm": MediaVideo, "m4v": MediaVideo, "3gp": MediaVideo,
}

// MediaTypeFor classifies a file name by its extension.
func MediaTypeFor(fileName string) MediaType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if mt, ok := extensionMedia[ext]; ok {
		return mt
	}
	return MediaFile
}
