package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/victorivanov/supportline/internal/gateway"
	"github.com/victorivanov/supportline/internal/models"
)

// seed appends messages at increasing timestamps.
func seed(t *testing.T, app *testApp, msgs ...seedMsg) {
	t.Helper()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	i := 0
	app.store.SetClock(func() time.Time {
		i++
		return base.Add(time.Duration(i) * time.Minute)
	})
	for _, m := range msgs {
		if _, err := app.store.Append(context.Background(), m.owner, m.dir, strPtr(m.text), nil); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

type seedMsg struct {
	owner string
	dir   models.Direction
	text  string
}

func TestConversationList_OrderedByLatestActivity(t *testing.T) {
	app := newTestApp(t, newMockPresence())
	seed(t, app,
		seedMsg{"0xb0b", models.DirectionUser, "first"},
		seedMsg{testAddress, models.DirectionUser, "second"},
		seedMsg{"0xb0b", models.DirectionOperator, "third"},
	)

	c, rec := newTestContext(http.MethodGet, "/api/v1/admin/conversations", nil)
	setAuthUser(c, testOperator)
	if err := app.deps.Conversations.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	body := rec.Body.String()
	alice := strings.Index(body, `"`+testAddress+`":`)
	bob := strings.Index(body, `"0xb0b":`)
	if alice < 0 || bob < 0 {
		t.Fatalf("expected both owners in %s", body)
	}
	if alice > bob {
		t.Errorf("expected %s (older activity) before 0xb0b: %s", testAddress, body)
	}

	var resp struct {
		Data map[string]struct {
			Content   string `json:"content"`
			Direction string `json:"direction"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := resp.Data["0xb0b"]; got.Content != "third" || got.Direction != "operator" {
		t.Errorf("expected bob's latest message, got %+v", got)
	}
}

func TestConversationList_Empty(t *testing.T) {
	app := newTestApp(t, newMockPresence())

	c, rec := newTestContext(http.MethodGet, "/api/v1/admin/conversations", nil)
	if err := app.deps.Conversations.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":{}}` {
		t.Errorf("expected empty inbox object, got %s", got)
	}
}

func TestConversationGet_NewestFirst(t *testing.T) {
	app := newTestApp(t, newMockPresence())
	seed(t, app,
		seedMsg{testAddress, models.DirectionUser, "hello"},
		seedMsg{testAddress, models.DirectionOperator, "hi there"},
	)

	c, rec := newTestContext(http.MethodGet, "/", nil)
	c.SetParamNames("owner")
	c.SetParamValues(testAddress)
	if err := app.deps.Conversations.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data []models.Message `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(resp.Data))
	}
	if *resp.Data[0].Content != "hi there" {
		t.Errorf("expected newest message first, got %q", *resp.Data[0].Content)
	}
}

func TestConversationGet_UnknownOwnerIsEmpty(t *testing.T) {
	app := newTestApp(t, newMockPresence())

	c, rec := newTestContext(http.MethodGet, "/", nil)
	c.SetParamNames("owner")
	c.SetParamValues("0xnobody")
	if err := app.deps.Conversations.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":[]}` {
		t.Errorf("expected empty list, got %s", got)
	}
}

func TestConversationGetMine(t *testing.T) {
	app := newTestApp(t, newMockPresence())
	seed(t, app,
		seedMsg{testAddress, models.DirectionUser, "mine"},
		seedMsg{"0xb0b", models.DirectionUser, "not mine"},
	)

	c, rec := newTestContext(http.MethodGet, "/api/v1/conversations/@me", nil)
	setAuthUser(c, testUser)
	if err := app.deps.Conversations.GetMine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data []models.Message `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Data) != 1 || resp.Data[0].OwnerID != testAddress {
		t.Errorf("expected only the caller's thread, got %+v", resp.Data)
	}
}

func TestConversationGetMine_Operator(t *testing.T) {
	app := newTestApp(t, newMockPresence())

	c, rec := newTestContext(http.MethodGet, "/api/v1/conversations/@me", nil)
	setAuthUser(c, testOperator)
	if err := app.deps.Conversations.GetMine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestConversationDelete(t *testing.T) {
	app := newTestApp(t, newMockPresence())
	seed(t, app,
		seedMsg{testAddress, models.DirectionUser, "a"},
		seedMsg{testAddress, models.DirectionOperator, "b"},
		seedMsg{"0xb0b", models.DirectionUser, "c"},
	)

	c, rec := newTestContext(http.MethodDelete, "/", nil)
	c.SetParamNames("owner")
	c.SetParamValues(testAddress)
	if err := app.deps.Conversations.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":{"deleted":2}}` {
		t.Errorf("unexpected body %s", got)
	}

	left, _ := app.store.ListByOwner(context.Background(), "0xb0b")
	if len(left) != 1 {
		t.Errorf("expected other threads untouched, got %d", len(left))
	}

	// A second delete finds nothing.
	c2, rec2 := newTestContext(http.MethodDelete, "/", nil)
	c2.SetParamNames("owner")
	c2.SetParamValues(testAddress)
	if err := app.deps.Conversations.Delete(c2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec2.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rec2.Code)
	}
}

func TestConversationPurge(t *testing.T) {
	app := newTestApp(t, newMockPresence())
	seed(t, app, seedMsg{testAddress, models.DirectionUser, "a"})

	for i := 0; i < 2; i++ {
		c, rec := newTestContext(http.MethodDelete, "/api/v1/admin/conversations", nil)
		if err := app.deps.Conversations.Purge(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.Code != http.StatusNoContent {
			t.Fatalf("purge %d: expected status %d, got %d", i+1, http.StatusNoContent, rec.Code)
		}
	}

	all, _ := app.store.LatestPerOwner(context.Background())
	if len(all) != 0 {
		t.Errorf("expected empty store, got %d", len(all))
	}
}

func TestConversationPresence(t *testing.T) {
	app := newTestApp(t, newMockPresence(testAddress))

	tests := []struct {
		owner  string
		online bool
		status string
	}{
		{testAddress, true, gateway.StatusOnline},
		{"0xb0b", false, gateway.StatusOffline},
	}

	for _, tt := range tests {
		c, rec := newTestContext(http.MethodGet, "/", nil)
		c.SetParamNames("owner")
		c.SetParamValues(tt.owner)
		if err := app.deps.Conversations.Presence(c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var resp struct {
			Data presenceResponse `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Data.OwnerID != tt.owner || resp.Data.Online != tt.online || resp.Data.Status != tt.status {
			t.Errorf("owner %s: unexpected presence %+v", tt.owner, resp.Data)
		}
	}
}
