package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/victorivanov/supportline/internal/auth"
	"github.com/victorivanov/supportline/internal/metrics"
	"github.com/victorivanov/supportline/internal/models"
	"golang.org/x/time/rate"
)

const defaultPresenceGrace = 10 * time.Second

// Options tunes per-connection behaviour.
type Options struct {
	SendRate      float64       // sends per second per connection
	SendBurst     int           // burst allowance per connection
	PresenceGrace time.Duration // delay before a closed party is mirrored offline
}

// Manager accepts WebSocket connections, authenticates them and keeps the
// presence registry current.
type Manager struct {
	registry *Registry
	tokens   *auth.TokenService
	status   *PresenceService
	metrics  *metrics.Metrics

	senderMu sync.RWMutex
	sender   MessageSender

	sendRate      rate.Limit
	sendBurst     int
	presenceGrace time.Duration
}

// NewManager creates a new gateway Manager.
func NewManager(tokens *auth.TokenService, status *PresenceService, m *metrics.Metrics, opts Options) *Manager {
	limit := rate.Inf
	if opts.SendRate > 0 {
		limit = rate.Limit(opts.SendRate)
	}
	burst := opts.SendBurst
	if burst <= 0 {
		burst = 1
	}
	grace := opts.PresenceGrace
	if grace <= 0 {
		grace = defaultPresenceGrace
	}
	return &Manager{
		registry:      NewRegistry(),
		tokens:        tokens,
		status:        status,
		metrics:       m,
		sendRate:      limit,
		sendBurst:     burst,
		presenceGrace: grace,
	}
}

// SetSender installs the handler for SEND_MESSAGE payloads.
func (m *Manager) SetSender(s MessageSender) {
	m.senderMu.Lock()
	defer m.senderMu.Unlock()
	m.sender = s
}

func (m *Manager) messageSender() MessageSender {
	m.senderMu.RLock()
	defer m.senderMu.RUnlock()
	return m.sender
}

// Lookup returns the live channel registered under key.
func (m *Manager) Lookup(key string) (Channel, bool) {
	return m.registry.Lookup(key)
}

// Online reports whether key has a live channel on this process.
func (m *Manager) Online(key string) bool {
	_, ok := m.registry.Lookup(key)
	return ok
}

// Status returns the mirrored presence status for key.
func (m *Manager) Status(ctx context.Context, key string) string {
	if m.Online(key) {
		return StatusOnline
	}
	return m.status.GetStatus(ctx, key)
}

// register makes c the live channel for its identity, superseding any
// previous connection for the same key.
func (m *Manager) register(c *Connection) {
	key := c.Identity.PresenceKey()
	prev := m.registry.Register(key, c)

	if prev != nil {
		if old, ok := prev.(*Connection); ok {
			_ = old.SendPayload(GatewayPayload{Op: OpReconnect})
			old.Close()
		}
		slog.Info("connection superseded", "key", key, "session", c.SessionID)
	} else {
		m.metrics.Connections.WithLabelValues(string(c.Identity.Role)).Inc()
	}

	if err := m.status.SetOnline(key); err != nil {
		slog.Error("failed to set presence", "key", key, "error", err)
	}
}

// unregister removes a connection if it is still the live one for its key.
func (m *Manager) unregister(c *Connection) {
	if !c.identified.Load() {
		return
	}
	key := c.Identity.PresenceKey()
	if !m.registry.Unregister(key, c) {
		return
	}
	m.metrics.Connections.WithLabelValues(string(c.Identity.Role)).Dec()
	time.AfterFunc(m.presenceGrace, func() { m.clearPresence(key) })
}

// clearPresence marks key offline unless it reconnected in the meantime.
func (m *Manager) clearPresence(key string) {
	if m.Online(key) {
		return
	}
	if err := m.status.SetOffline(key); err != nil {
		slog.Error("failed to clear presence", "key", key, "error", err)
	}
}

// handleIdentify processes an IDENTIFY payload from a client.
func (m *Manager) handleIdentify(c *Connection, data json.RawMessage) {
	var identify IdentifyData
	if err := json.Unmarshal(data, &identify); err != nil {
		slog.Warn("invalid identify data", "error", err)
		c.Close()
		return
	}

	claims, err := m.tokens.ValidateAccessToken(identify.Token)
	if err != nil {
		slog.Warn("invalid token in identify", "error", err)
		c.Close()
		return
	}

	c.Identity = claims.Identity()
	c.SessionID = uuid.NewString()
	c.identified.Store(true)

	m.register(c)

	_ = c.Push(EventReady, ReadyData{
		SessionID: c.SessionID,
		OwnerID:   c.Identity.Address,
		Role:      c.Identity.Role,
	})
}

// handleSend forwards a SEND_MESSAGE payload to the message sender. It runs
// on the connection's read loop, so one connection's sends are handled in
// the order they arrived.
func (m *Manager) handleSend(c *Connection, data json.RawMessage) {
	var req models.SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = c.Push(EventMessageSendFailed, SendFailedData{Code: "INVALID_PAYLOAD", Message: "malformed send payload"})
		return
	}

	if !c.limiter.Allow() {
		m.metrics.SendFailures.WithLabelValues("RATE_LIMITED").Inc()
		_ = c.Push(EventMessageSendFailed, SendFailedData{
			Nonce:   req.Nonce,
			Code:    "RATE_LIMITED",
			Message: "sending too fast, slow down",
		})
		return
	}

	sender := m.messageSender()
	if sender == nil {
		_ = c.Push(EventMessageSendFailed, SendFailedData{Nonce: req.Nonce, Code: "UNAVAILABLE", Message: "messaging is not available"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := sender.Send(ctx, c.Identity, c, req); err != nil {
		slog.Debug("send rejected", "key", c.Identity.PresenceKey(), "error", err)
	}
}

// handleTyping relays a typing indicator to the counterpart, if connected.
func (m *Manager) handleTyping(c *Connection, data json.RawMessage) {
	var typing ClientTyping
	if len(data) > 0 {
		if err := json.Unmarshal(data, &typing); err != nil {
			return
		}
	}

	owner, target := c.Identity.Address, models.OperatorKey
	if c.Identity.IsOperator() {
		if typing.OwnerID == "" {
			return
		}
		owner, target = typing.OwnerID, typing.OwnerID
	}

	if ch, ok := m.registry.Lookup(target); ok {
		_ = ch.Push(EventTypingStart, TypingStartData{
			OwnerID:   owner,
			Direction: c.Identity.Direction(),
			Timestamp: time.Now().Unix(),
		})
	}
}
