package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
	"github.com/dorzhavian/hardwareexpress-logai/internal/sse"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client serializes writes; gorilla connections allow one writer at a time.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Manager tracks websocket clients and relays verdicts from the hub to them.
type Manager struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	hub     *sse.Hub
	decider classify.Decider
	logger  *slog.Logger
}

// NewManager creates a new websocket manager.
func NewManager(hub *sse.Hub, decider classify.Decider, logger *slog.Logger) *Manager {
	return &Manager{
		clients: make(map[*client]struct{}),
		hub:     hub,
		decider: decider,
		logger:  logger,
	}
}

// HandleWS upgrades the connection, sends the current service status and
// keeps the client registered until it disconnects. Inbound messages are
// ignored.
func (m *Manager) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.logger.Error("websocket upgrade failed", "err", err)
		return
	}

	c := &client{conn: conn}
	m.mu.Lock()
	m.clients[c] = struct{}{}
	m.mu.Unlock()

	defer m.remove(c)

	if err := m.hydrate(c); err != nil {
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (m *Manager) hydrate(c *client) error {
	msg, err := json.Marshal(map[string]any{
		"type":       "status",
		"mode":       m.decider.Mode(),
		"classifier": m.decider.Status(),
	})
	if err != nil {
		return err
	}
	return c.write(msg)
}

// Run relays every verdict published on the hub until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	events, cancel := m.hub.Subscribe(sse.TopicAll)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.Broadcast(envelope(ev))
		}
	}
}

// envelope wraps a hub event as {"type": ..., "data": ...}.
func envelope(ev sse.Event) []byte {
	msg, err := json.Marshal(struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}{ev.Type, ev.Data})
	if err != nil {
		return nil
	}
	return msg
}

// Broadcast sends msg to every connected client, dropping clients whose
// write fails.
func (m *Manager) Broadcast(msg []byte) {
	if msg == nil {
		return
	}

	m.mu.RLock()
	clients := make([]*client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			m.logger.Debug("websocket client dropped", "err", err)
			m.remove(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

func (m *Manager) remove(c *client) {
	m.mu.Lock()
	_, ok := m.clients[c]
	delete(m.clients, c)
	m.mu.Unlock()
	if ok {
		c.conn.Close()
	}
}
