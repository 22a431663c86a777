package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/models"
	"github.com/victorivanov/supportline/internal/service"
)

// MessageHandler accepts sends over HTTP for clients without a socket.
type MessageHandler struct {
	broker *service.Broker
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(broker *service.Broker) *MessageHandler {
	return &MessageHandler{broker: broker}
}

// sendResponse acknowledges an HTTP send: the persisted message plus the
// client's nonce.
type sendResponse struct {
	*models.Message
	Nonce string `json:"nonce,omitempty"`
}

// SendMine handles POST /api/v1/conversations/@me/messages.
func (h *MessageHandler) SendMine(c echo.Context) error {
	var req models.SendRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	return h.send(c, req)
}

// SendToOwner handles POST /api/v1/admin/conversations/:owner/messages.
func (h *MessageHandler) SendToOwner(c echo.Context) error {
	var req models.SendRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "INVALID_BODY", "invalid request body")
	}
	req.OwnerID = c.Param("owner")
	return h.send(c, req)
}

func (h *MessageHandler) send(c echo.Context, req models.SendRequest) error {
	msg, err := h.broker.Send(c.Request().Context(), auth.GetIdentity(c), nil, req)
	if err != nil {
		return mapServiceError(c, err)
	}
	return successJSON(c, http.StatusCreated, sendResponse{Message: msg, Nonce: req.Nonce})
}
