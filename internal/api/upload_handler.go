package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/service"
)

// UploadHandler handles file upload endpoints.
type UploadHandler struct {
	uploads *service.UploadService
}

// NewUploadHandler creates an UploadHandler.
func NewUploadHandler(uploads *service.UploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// uploadResponse mirrors what chat clients need to render the file.
type uploadResponse struct {
	ID        int64  `json:"id,string"`
	URL       string `json:"url"`
	FileName  string `json:"fileName"`
	MediaType string `json:"mediaType"`
}

// Upload handles POST /api/v1/uploads.
func (h *UploadHandler) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return Error(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
	}

	src, err := file.Open()
	if err != nil {
		return Error(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
	defer src.Close()

	id := auth.GetIdentity(c)
	attachment, err := h.uploads.Upload(c.Request().Context(), id.PresenceKey(), file.Filename, file.Size, file.Header.Get("Content-Type"), src)
	if err != nil {
		return mapServiceError(c, err)
	}

	return successJSON(c, http.StatusCreated, uploadResponse{
		ID:        attachment.ID,
		URL:       attachment.URL,
		FileName:  attachment.FileName,
		MediaType: string(attachment.MediaType),
	})
}
