package sse

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.DiscardHandler))
}

func TestPublishVerdictTopics(t *testing.T) {
	h := newTestHub()
	all, cancelAll := h.Subscribe(TopicAll)
	defer cancelAll()
	sus, cancelSus := h.Subscribe(TopicSuspicious)
	defer cancelSus()

	h.PublishVerdict(Event{Type: "verdict", Data: []byte(`{"n":1}`)}, false)
	h.PublishVerdict(Event{Type: "verdict", Data: []byte(`{"n":2}`)}, true)

	require.Len(t, all, 2)
	assert.Equal(t, `{"n":1}`, string((<-all).Data))
	assert.Equal(t, `{"n":2}`, string((<-all).Data))

	require.Len(t, sus, 1)
	assert.Equal(t, `{"n":2}`, string((<-sus).Data))
}

func TestCancelClosesAndUnregisters(t *testing.T) {
	h := newTestHub()
	ch, cancel := h.Subscribe(TopicAll)
	assert.Equal(t, 1, h.SubscriberCount(TopicAll))

	cancel()
	cancel()
	assert.Equal(t, 0, h.SubscriberCount(TopicAll))
	_, open := <-ch
	assert.False(t, open)

	h.Publish(TopicAll, Event{Type: "verdict"})
}

func TestSlowSubscriberDropsEvents(t *testing.T) {
	h := newTestHub()
	ch, cancel := h.Subscribe(TopicAll)
	defer cancel()

	for range 100 {
		h.Publish(TopicAll, Event{Type: "verdict"})
	}
	assert.Len(t, ch, 64)
}
