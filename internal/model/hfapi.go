package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseLen = 1 << 20 // 1 MiB

// HFConfig configures the Hugging Face Inference API scorer.
type HFConfig struct {
	BaseURL string // e.g. https://api-inference.huggingface.co/models
	Model   string
	Token   string
	Timeout time.Duration
}

// HFScorer calls a hosted text-classification model and returns its score
// distribution unmodified.
type HFScorer struct {
	endpoint string
	token    string
	http     *http.Client
}

// NewHFScorer validates cfg and creates an HFScorer.
func NewHFScorer(cfg HFConfig) (*HFScorer, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("hf: model name: %w", ErrNotConfigured)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("hf: invalid base url %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HFScorer{
		endpoint: base.String() + "/" + cfg.Model,
		token:    cfg.Token,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Classify posts text to the model endpoint. The response body is returned as
// is; the decision layer tolerates whatever shape it has.
func (s *HFScorer) Classify(ctx context.Context, text string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"top_k":      nil,
			"truncation": true,
		},
		"options": map[string]any{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("hf: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hf: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hf: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLen))
	if err != nil {
		return nil, fmt.Errorf("hf: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hf: status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return json.RawMessage(data), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
