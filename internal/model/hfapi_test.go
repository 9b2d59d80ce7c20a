package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHFScorerClassify(t *testing.T) {
	const payload = `[[{"label":"NEGATIVE","score":0.97},{"label":"POSITIVE","score":0.03}]]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/distilbert-sst2", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))

		var body map[string]any
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			assert.Equal(t, "Too many failed attempts", body["inputs"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	s, err := NewHFScorer(HFConfig{BaseURL: srv.URL + "/models/", Model: "distilbert-sst2", Token: "hf_test"})
	require.NoError(t, err)

	raw, err := s.Classify(context.Background(), "Too many failed attempts")
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestHFScorerStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is currently loading"}`))
	}))
	defer srv.Close()

	s, err := NewHFScorer(HFConfig{BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	_, err = s.Classify(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestNewHFScorerValidates(t *testing.T) {
	_, err := NewHFScorer(HFConfig{BaseURL: "https://example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewHFScorer(HFConfig{BaseURL: "not a url", Model: "m"})
	assert.Error(t, err)
}
