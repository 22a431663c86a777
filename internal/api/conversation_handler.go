package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/service"
)

// PresenceReader reports whether a party is connected. The gateway Manager
// implements it.
type PresenceReader interface {
	Online(key string) bool
	Status(ctx context.Context, key string) string
}

// ConversationHandler serves threads and the operator inbox.
type ConversationHandler struct {
	convos   *service.ConversationService
	presence PresenceReader
}

// NewConversationHandler creates a ConversationHandler.
func NewConversationHandler(convos *service.ConversationService, presence PresenceReader) *ConversationHandler {
	return &ConversationHandler{convos: convos, presence: presence}
}

// GetMine handles GET /api/v1/conversations/@me.
func (h *ConversationHandler) GetMine(c echo.Context) error {
	id := auth.GetIdentity(c)
	if id.IsOperator() {
		return Error(c, http.StatusBadRequest, "NO_OWN_CONVERSATION", "the operator has no conversation of its own")
	}

	msgs, err := h.convos.BuildFor(c.Request().Context(), id.Address)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, msgs)
}

// List handles GET /api/v1/admin/conversations.
func (h *ConversationHandler) List(c echo.Context) error {
	inbox, err := h.convos.Build(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, inbox)
}

// Get handles GET /api/v1/admin/conversations/:owner.
func (h *ConversationHandler) Get(c echo.Context) error {
	msgs, err := h.convos.BuildFor(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, msgs)
}

// Delete handles DELETE /api/v1/admin/conversations/:owner.
func (h *ConversationHandler) Delete(c echo.Context) error {
	n, err := h.convos.Delete(c.Request().Context(), c.Param("owner"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusOK, map[string]int64{"deleted": n})
}

// Purge handles DELETE /api/v1/admin/conversations.
func (h *ConversationHandler) Purge(c echo.Context) error {
	if err := h.convos.PurgeAll(c.Request().Context()); err != nil {
		return mapServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// presenceResponse is the body of the presence endpoint.
type presenceResponse struct {
	OwnerID string `json:"owner_id"`
	Online  bool   `json:"online"`
	Status  string `json:"status"`
}

// Presence handles GET /api/v1/admin/conversations/:owner/presence.
func (h *ConversationHandler) Presence(c echo.Context) error {
	owner := c.Param("owner")
	if owner == "" {
		return Error(c, http.StatusBadRequest, "INVALID_OWNER", "owner is required")
	}
	return successJSON(c, http.StatusOK, presenceResponse{
		OwnerID: owner,
		Online:  h.presence.Online(owner),
		Status:  h.presence.Status(c.Request().Context(), owner),
	})
}
