package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/victorivanov/supportline/internal/database"
	"github.com/victorivanov/supportline/internal/events"
	"github.com/victorivanov/supportline/internal/gateway"
	"github.com/victorivanov/supportline/internal/metrics"
	"github.com/victorivanov/supportline/internal/models"
)

// ---------------------------------------------------------------------------
// Fake channels and presence
// ---------------------------------------------------------------------------

type pushed struct {
	Event string
	Data  any
}

// fakeChannel records pushes. Setting unavailable makes Push fail the way a
// closed or saturated connection does.
type fakeChannel struct {
	mu          sync.Mutex
	events      []pushed
	unavailable bool
}

func (f *fakeChannel) Push(event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.unavailable {
		return gateway.ErrChannelUnavailable
	}
	f.events = append(f.events, pushed{Event: event, Data: data})
	return nil
}

func (f *fakeChannel) Events() []pushed {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]pushed(nil), f.events...)
}

func (f *fakeChannel) Named(event string) []pushed {
	var out []pushed
	for _, p := range f.Events() {
		if p.Event == event {
			out = append(out, p)
		}
	}
	return out
}

// fakePresence is a map-backed gateway.Presence.
type fakePresence struct {
	mu       sync.Mutex
	channels map[string]gateway.Channel
}

func newFakePresence() *fakePresence {
	return &fakePresence{channels: make(map[string]gateway.Channel)}
}

func (p *fakePresence) Connect(key string) *fakeChannel {
	ch := &fakeChannel{}
	p.mu.Lock()
	p.channels[key] = ch
	p.mu.Unlock()
	return ch
}

func (p *fakePresence) Disconnect(key string) {
	p.mu.Lock()
	delete(p.channels, key)
	p.mu.Unlock()
}

func (p *fakePresence) Lookup(key string) (gateway.Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[key]
	return ch, ok
}

// ---------------------------------------------------------------------------
// Publisher
// ---------------------------------------------------------------------------

type recordingPublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
}

func (r *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.envs))
	for i, e := range r.envs {
		out[i] = e.Type
	}
	return out
}

// ---------------------------------------------------------------------------
// Stores
// ---------------------------------------------------------------------------

var errDown = errors.New("connection refused")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Append(context.Context, string, models.Direction, *string, *int64) (*models.Message, error) {
	return nil, errDown
}
func (brokenStore) ListByOwner(context.Context, string) ([]models.Message, error) { return nil, errDown }
func (brokenStore) LatestPerOwner(context.Context) ([]models.Message, error)      { return nil, errDown }
func (brokenStore) MarkSeen(context.Context, string) (int64, error)              { return 0, errDown }
func (brokenStore) DeleteByOwner(context.Context, string) (int64, error)         { return 0, errDown }
func (brokenStore) PurgeAll(context.Context) error                               { return errDown }

// slowStore blocks Append until the context gives up.
type slowStore struct {
	*database.MemoryStore
}

func (s slowStore) Append(ctx context.Context, _ string, _ models.Direction, _ *string, _ *int64) (*models.Message, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// steppingClock returns strictly increasing times one second apart.
func steppingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var (
	alice    = models.Identity{Address: "0xa11ce", Role: models.RoleUser}
	bob      = models.Identity{Address: "0xb0b", Role: models.RoleUser}
	operator = models.Identity{Role: models.RoleOperator}
)

func strPtr(s string) *string { return &s }

type harness struct {
	store     *database.MemoryStore
	presence  *fakePresence
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	broker    *Broker
	convos    *ConversationService
	receipts  *ReadReceiptService
}

func newHarness() *harness {
	store := database.NewMemoryStore()
	store.SetClock(steppingClock())
	presence := newFakePresence()
	pub := &recordingPublisher{}
	m := metrics.NewUnregistered()

	return &harness{
		store:     store,
		presence:  presence,
		publisher: pub,
		metrics:   m,
		broker:    NewBroker(store, presence, pub, m, BrokerOptions{PersistTimeout: time.Second, MaxContentLength: 2000}),
		convos:    NewConversationService(store, pub),
		receipts:  NewReadReceiptService(store, presence, pub, m),
	}
}
