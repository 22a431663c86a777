package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/supportline/internal/service"
)

// ReadStateHandler handles read receipt endpoints.
type ReadStateHandler struct {
	service *service.ReadReceiptService
}

// NewReadStateHandler creates a ReadStateHandler.
func NewReadStateHandler(svc *service.ReadReceiptService) *ReadStateHandler {
	return &ReadStateHandler{service: svc}
}

// MarkRead handles PUT /api/v1/admin/conversations/:owner/read.
func (h *ReadStateHandler) MarkRead(c echo.Context) error {
	receipt, err := h.service.MarkRead(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, receipt)
}
