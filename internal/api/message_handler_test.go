package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/victorivanov/supportline/internal/gateway"
	"github.com/victorivanov/supportline/internal/models"
)

type sendEnvelope struct {
	Data struct {
		ID        string `json:"id"`
		OwnerID   string `json:"owner_id"`
		Direction string `json:"direction"`
		Content   string `json:"content"`
		Seen      bool   `json:"seen"`
		Nonce     string `json:"nonce"`
	} `json:"data"`
}

func TestSendMine_Success(t *testing.T) {
	app := newTestApp(t, newMockPresence(models.OperatorKey))

	c, rec := newTestContext(http.MethodPost, "/api/v1/conversations/@me/messages",
		strings.NewReader(`{"content":"hello","nonce":"n-1"}`))
	setAuthUser(c, testUser)

	if err := app.deps.Messages.SendMine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp sendEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.OwnerID != testAddress {
		t.Errorf("expected owner_id %q, got %q", testAddress, resp.Data.OwnerID)
	}
	if resp.Data.Direction != string(models.DirectionUser) {
		t.Errorf("expected direction user, got %q", resp.Data.Direction)
	}
	if resp.Data.Nonce != "n-1" {
		t.Errorf("expected nonce n-1, got %q", resp.Data.Nonce)
	}
	if resp.Data.ID == "" || resp.Data.Seen {
		t.Errorf("expected an unseen message with an id, got %+v", resp.Data)
	}

	pushed := app.presence.Events()
	if len(pushed) != 1 {
		t.Fatalf("expected 1 push to the operator, got %d", len(pushed))
	}
	if pushed[0].Key != models.OperatorKey || pushed[0].Event != gateway.EventMessageCreate {
		t.Errorf("unexpected push %+v", pushed[0])
	}
}

func TestSendMine_OperatorOfflineStillPersists(t *testing.T) {
	app := newTestApp(t, newMockPresence())

	c, rec := newTestContext(http.MethodPost, "/api/v1/conversations/@me/messages",
		strings.NewReader(`{"content":"anyone there?"}`))
	setAuthUser(c, testUser)

	if err := app.deps.Messages.SendMine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	msgs, err := app.store.ListByOwner(c.Request().Context(), testAddress)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 stored message, got %d", len(msgs))
	}
	if len(app.presence.Events()) != 0 {
		t.Error("expected no pushes while the operator is offline")
	}
}

func TestSendMine_Errors(t *testing.T) {
	tests := []struct {
		name     string
		identity models.Identity
		body     string
		status   int
		code     string
	}{
		{"empty content", testUser, `{"content":"   "}`, http.StatusBadRequest, "EMPTY_MESSAGE"},
		{"no content", testUser, `{}`, http.StatusBadRequest, "EMPTY_MESSAGE"},
		{"malformed body", testUser, `{"content":`, http.StatusBadRequest, "INVALID_BODY"},
		{"other thread", testUser, `{"owner_id":"0xb0b","content":"hi"}`, http.StatusForbidden, "FORBIDDEN"},
		{"unknown attachment", testUser, `{"attachment_id":"42"}`, http.StatusBadRequest, "UNKNOWN_ATTACHMENT"},
		{"operator without owner", testOperator, `{"content":"hi"}`, http.StatusBadRequest, "OWNER_REQUIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, newMockPresence(models.OperatorKey))

			c, rec := newTestContext(http.MethodPost, "/api/v1/conversations/@me/messages", strings.NewReader(tt.body))
			setAuthUser(c, tt.identity)

			if err := app.deps.Messages.SendMine(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}

			var errResp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if errResp.Error.Code != tt.code {
				t.Errorf("expected error code %q, got %q", tt.code, errResp.Error.Code)
			}
			if len(app.presence.Events()) != 0 {
				t.Error("expected nothing delivered on failure")
			}
		})
	}
}

func TestSendToOwner_Success(t *testing.T) {
	app := newTestApp(t, newMockPresence(testAddress))

	c, rec := newTestContext(http.MethodPost, "/", strings.NewReader(`{"content":"how can I help?"}`))
	c.SetPath("/api/v1/admin/conversations/:owner/messages")
	c.SetParamNames("owner")
	c.SetParamValues(testAddress)
	setAuthUser(c, testOperator)

	if err := app.deps.Messages.SendToOwner(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var resp sendEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Data.OwnerID != testAddress || resp.Data.Direction != string(models.DirectionOperator) {
		t.Errorf("unexpected message %+v", resp.Data)
	}

	pushed := app.presence.Events()
	if len(pushed) != 1 || pushed[0].Key != testAddress {
		t.Fatalf("expected one push to the user, got %+v", pushed)
	}
}

func TestSendToOwner_ParamOverridesBody(t *testing.T) {
	app := newTestApp(t, newMockPresence())

	c, rec := newTestContext(http.MethodPost, "/", strings.NewReader(`{"owner_id":"0xb0b","content":"hi"}`))
	c.SetParamNames("owner")
	c.SetParamValues(testAddress)
	setAuthUser(c, testOperator)

	if err := app.deps.Messages.SendToOwner(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	msgs, _ := app.store.ListByOwner(c.Request().Context(), "0xb0b")
	if len(msgs) != 0 {
		t.Errorf("expected nothing written to the body's owner, got %d", len(msgs))
	}
}

func TestSendToOwner_ReservedOwner(t *testing.T) {
	app := newTestApp(t, newMockPresence())

	c, rec := newTestContext(http.MethodPost, "/", strings.NewReader(`{"content":"hi"}`))
	c.SetParamNames("owner")
	c.SetParamValues(models.OperatorKey)
	setAuthUser(c, testOperator)

	if err := app.deps.Messages.SendToOwner(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rec.Code, rec.Body.String())
	}
}
