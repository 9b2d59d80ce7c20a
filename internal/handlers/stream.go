package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dorzhavian/hardwareexpress-logai/internal/sse"
)

// StreamHandler serves the live verdict feed over SSE.
type StreamHandler struct {
	hub       *sse.Hub
	keepalive time.Duration
}

// NewStreamHandler creates a new StreamHandler.
func NewStreamHandler(hub *sse.Hub) *StreamHandler {
	return &StreamHandler{hub: hub, keepalive: 30 * time.Second}
}

// HandleSSE handles GET /stream/verdicts. With ?suspicious=1 only suspicious
// verdicts are sent.
func (sh *StreamHandler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	topic := sse.TopicAll
	switch r.URL.Query().Get("suspicious") {
	case "", "0", "false":
	case "1", "true":
		topic = sse.TopicSuspicious
	default:
		jsonError(w, "invalid suspicious filter", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch, cancel := sh.hub.Subscribe(topic)
	defer cancel()

	fmt.Fprintf(w, ": subscribed %s\n\n", topic)
	flusher.Flush()

	keepalive := time.NewTicker(sh.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, event.Data)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()
		}
	}
}
