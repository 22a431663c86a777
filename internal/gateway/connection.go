package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/victorivanov/supportline/internal/models"
	"golang.org/x/time/rate"
)

const (
	heartbeatInterval = 41250 * time.Millisecond
	heartbeatTimeout  = 10 * time.Second
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	maxMessageSize    = 16384
	sendBufferSize    = 256
)

// Connection represents a single WebSocket client connection. It is the
// Channel registered for its identity once IDENTIFY succeeds.
type Connection struct {
	Identity  models.Identity
	SessionID string
	Conn      *websocket.Conn
	Send      chan []byte
	manager   *Manager
	limiter   *rate.Limiter
	sequence  atomic.Int64

	identified atomic.Bool
	closeOnce  sync.Once
	done       chan struct{}

	lastHeartbeat atomic.Int64 // unix millis of last heartbeat from client
}

func newConnection(conn *websocket.Conn, manager *Manager) *Connection {
	c := &Connection{
		Conn:    conn,
		Send:    make(chan []byte, sendBufferSize),
		manager: manager,
		limiter: rate.NewLimiter(manager.sendRate, manager.sendBurst),
		done:    make(chan struct{}),
	}
	c.lastHeartbeat.Store(time.Now().UnixMilli())
	return c
}

// NextSequence increments and returns the next sequence number.
func (c *Connection) NextSequence() int64 {
	return c.sequence.Add(1)
}

// SendPayload marshals and queues a payload to be sent.
func (c *Connection) SendPayload(p GatewayPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		slog.Error("marshal error", "key", c.Identity.PresenceKey(), "error", err)
		return err
	}
	select {
	case <-c.done:
		return ErrChannelUnavailable
	default:
	}
	select {
	case c.Send <- data:
		return nil
	default:
		slog.Warn("send buffer full, dropping message", "key", c.Identity.PresenceKey())
		return ErrChannelUnavailable
	}
}

// Push sends a dispatch event with a sequence number. It returns
// ErrChannelUnavailable instead of blocking.
func (c *Connection) Push(name string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("marshal event error", "event", name, "error", err)
		return err
	}
	seq := c.NextSequence()
	return c.SendPayload(GatewayPayload{
		Op:       OpDispatch,
		Data:     raw,
		Sequence: &seq,
		Event:    &name,
	})
}

// Close terminates the connection. Events queued before Close are still
// flushed by the write pump; the socket is force-closed after writeWait.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		time.AfterFunc(writeWait, func() { _ = c.Conn.Close() })
	})
}

// Done is closed once the connection is terminated.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// readPump reads messages from the WebSocket and handles them in order.
func (c *Connection) readPump() {
	defer func() {
		c.manager.unregister(c)
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("read error", "key", c.Identity.PresenceKey(), "error", err)
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handleMessage(message)
	}
}

// writePump writes messages from the Send channel to the WebSocket,
// and sends heartbeats on a timer.
func (c *Connection) writePump() {
	heartbeatTicker := time.NewTicker(heartbeatInterval)
	defer func() {
		heartbeatTicker.Stop()
		c.Close()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-heartbeatTicker.C:
			lastBeat := c.lastHeartbeat.Load()
			if time.Since(time.UnixMilli(lastBeat)) > heartbeatInterval+heartbeatTimeout {
				slog.Warn("heartbeat timeout", "key", c.Identity.PresenceKey())
				return
			}

		case <-c.done:
			c.flush()
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes whatever is still buffered, such as a RECONNECT queued just
// before a superseded connection was closed.
func (c *Connection) flush() {
	for {
		select {
		case message := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

// handleMessage processes an incoming gateway payload from the client.
func (c *Connection) handleMessage(data []byte) {
	var payload GatewayPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("invalid payload", "key", c.Identity.PresenceKey(), "error", err)
		return
	}

	switch payload.Op {
	case OpHeartbeat:
		c.lastHeartbeat.Store(time.Now().UnixMilli())
		_ = c.SendPayload(GatewayPayload{Op: OpHeartbeatAck})

	case OpIdentify:
		if c.identified.Load() {
			return
		}
		c.manager.handleIdentify(c, payload.Data)

	case OpSendMessage:
		if !c.identified.Load() {
			c.Close()
			return
		}
		c.manager.handleSend(c, payload.Data)

	case OpTyping:
		if !c.identified.Load() {
			return
		}
		c.manager.handleTyping(c, payload.Data)
	}
}
