package sse

import (
	"log/slog"
	"sync"
)

// Topics a subscriber can follow.
const (
	TopicAll        = "all"
	TopicSuspicious = "suspicious"
)

// Event is one server-sent event.
type Event struct {
	Type string // "verdict"
	Data []byte // JSON payload
}

// Hub fans verdict events out to SSE and websocket subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan Event]struct{} // topic -> set of channels
	logger      *slog.Logger
}

// NewHub creates a new hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[string]map[chan Event]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a subscriber for topic. The returned cancel function
// must be called when the subscriber goes away; it closes the channel.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, 64)
	h.mu.Lock()
	if h.subscribers[topic] == nil {
		h.subscribers[topic] = make(map[chan Event]struct{})
	}
	h.subscribers[topic][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers[topic], ch)
			if len(h.subscribers[topic]) == 0 {
				delete(h.subscribers, topic)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish sends an event to every subscriber of topic. A subscriber whose
// buffer is full misses the event.
func (h *Hub) Publish(topic string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subscribers[topic] {
		select {
		case ch <- event:
		default:
			h.logger.Warn("sse: dropped event for slow client", "topic", topic)
		}
	}
}

// PublishVerdict sends event to TopicAll, and to TopicSuspicious when the
// verdict it carries is suspicious.
func (h *Hub) PublishVerdict(event Event, suspicious bool) {
	h.Publish(TopicAll, event)
	if suspicious {
		h.Publish(TopicSuspicious, event)
	}
}

// SubscriberCount returns the number of active subscribers for topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[topic])
}
