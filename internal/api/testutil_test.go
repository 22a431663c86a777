package api

import (
	"context"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/events"
	"github.com/victorivanov/supportline/internal/gateway"
	"github.com/victorivanov/supportline/internal/metrics"
	"github.com/victorivanov/supportline/internal/models"
	redisclient "github.com/victorivanov/supportline/internal/redis"
	"github.com/victorivanov/supportline/internal/service"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

const testAddress = "0xa11ce"

var (
	testUser     = models.Identity{Address: testAddress, Role: models.RoleUser}
	testOperator = models.Identity{Role: models.RoleOperator}
)

func newTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func setAuthUser(c echo.Context, id models.Identity) {
	auth.SetIdentity(c, id)
}

func newTestRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := redisclient.NewClient("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("creating test redis client: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

// ---------------------------------------------------------------------------
// Mock presence
// ---------------------------------------------------------------------------

type pushedEvent struct {
	Key   string
	Event string
	Data  any
}

// mockPresence implements gateway.Presence and PresenceReader. Connected
// keys get a channel that records what is pushed to them.
type mockPresence struct {
	mu        sync.Mutex
	connected map[string]bool
	events    []pushedEvent
}

func newMockPresence(keys ...string) *mockPresence {
	p := &mockPresence{connected: make(map[string]bool)}
	for _, k := range keys {
		p.connected[k] = true
	}
	return p
}

type mockChannel struct {
	key string
	p   *mockPresence
}

func (ch mockChannel) Push(event string, data any) error {
	ch.p.mu.Lock()
	defer ch.p.mu.Unlock()
	ch.p.events = append(ch.p.events, pushedEvent{Key: ch.key, Event: event, Data: data})
	return nil
}

func (p *mockPresence) Lookup(key string) (gateway.Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.connected[key] {
		return nil, false
	}
	return mockChannel{key: key, p: p}, true
}

func (p *mockPresence) Online(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected[key]
}

func (p *mockPresence) Status(_ context.Context, key string) string {
	if p.Online(key) {
		return gateway.StatusOnline
	}
	return gateway.StatusOffline
}

func (p *mockPresence) Events() []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushedEvent(nil), p.events...)
}

// ---------------------------------------------------------------------------
// Mock storage
// ---------------------------------------------------------------------------

type mockStorage struct {
	UploadFn func(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetURLFn func(key string) string
	DeleteFn func(ctx context.Context, key string) error
}

func (m *mockStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	if m.UploadFn != nil {
		return m.UploadFn(ctx, key, reader, size, contentType)
	}
	return nil
}

func (m *mockStorage) GetURL(key string) string {
	if m.GetURLFn != nil {
		return m.GetURLFn(key)
	}
	return "http://localhost:9000/supportline/" + key
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Service wiring
// ---------------------------------------------------------------------------

type testApp struct {
	store    *database.MemoryStore
	presence *mockPresence
	storage  *mockStorage
	deps     *Dependencies
}

func newTestApp(t *testing.T, presence *mockPresence) *testApp {
	t.Helper()
	store := database.NewMemoryStore()
	m := metrics.NewUnregistered()
	files := &mockStorage{}

	broker := service.NewBroker(store, presence, events.Nop{}, m, service.BrokerOptions{PersistTimeout: time.Second})
	convos := service.NewConversationService(store, events.Nop{})
	receipts := service.NewReadReceiptService(store, presence, events.Nop{}, m)
	uploads := service.NewUploadService(store, files)

	return &testApp{
		store:    store,
		presence: presence,
		storage:  files,
		deps: &Dependencies{
			Conversations: NewConversationHandler(convos, presence),
			ReadStates:    NewReadStateHandler(receipts),
			Messages:      NewMessageHandler(broker),
			Uploads:       NewUploadHandler(uploads),
			Gateway:       func(c echo.Context) error { return c.NoContent(204) },
			TokenService:  auth.NewTokenService("test-secret"),
			Redis:         newTestRedis(t),
		},
	}
}

func strPtr(s string) *string { return &s }
