package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
	"github.com/dorzhavian/hardwareexpress-logai/internal/sse"
)

type stubDecider struct{}

func (stubDecider) Decide(context.Context, string) (*classify.Verdict, error) { return nil, nil }
func (stubDecider) Mode() string   { return classify.ModeRules }
func (stubDecider) Status() string { return "ready" }

func TestFeedRelaysVerdicts(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)
	hub := sse.NewHub(logger)
	m := NewManager(hub, stubDecider{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(m.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var status map[string]any
	require.NoError(t, conn.ReadJSON(&status))
	assert.Equal(t, "status", status["type"])
	assert.Equal(t, "rules", status["mode"])
	assert.Equal(t, "ready", status["classifier"])

	require.Eventually(t, func() bool { return hub.SubscriberCount(sse.TopicAll) == 1 }, time.Second, 5*time.Millisecond)
	hub.PublishVerdict(sse.Event{Type: "verdict", Data: []byte(`{"label":"ANOMALOUS"}`)}, true)

	var msg struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "verdict", msg.Type)
	assert.JSONEq(t, `{"label":"ANOMALOUS"}`, string(msg.Data))
}

func TestEnvelope(t *testing.T) {
	got := envelope(sse.Event{Type: "verdict", Data: []byte(`{"a":1}`)})
	assert.JSONEq(t, `{"type":"verdict","data":{"a":1}}`, string(got))
	assert.Nil(t, envelope(sse.Event{Type: "verdict", Data: []byte(`{bad`)}))
}
