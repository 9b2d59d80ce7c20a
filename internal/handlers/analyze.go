package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
	"github.com/dorzhavian/hardwareexpress-logai/internal/sse"
)

const maxBodyBytes = 1 << 20

// AnalyzeHandler serves the per-record decision endpoint.
type AnalyzeHandler struct {
	decider classify.Decider
	hub     *sse.Hub
	logger  *slog.Logger
}

// NewAnalyzeHandler creates an AnalyzeHandler. hub may be nil.
func NewAnalyzeHandler(decider classify.Decider, hub *sse.Hub, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{decider: decider, hub: hub, logger: logger}
}

// analyzeRequest is the caller's log record. Only Text is classified.
type analyzeRequest struct {
	LogID    string         `json:"log_id"`
	Text     *string        `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// verdictEvent is what subscribers of the verdict feed receive.
type verdictEvent struct {
	LogID   string            `json:"log_id,omitempty"`
	Verdict *classify.Verdict `json:"verdict"`
}

// Analyze handles POST /analyze.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Text == nil {
		jsonError(w, "text field is required", http.StatusUnprocessableEntity)
		return
	}

	verdict, err := h.decider.Decide(r.Context(), *req.Text)
	switch {
	case errors.Is(err, classify.ErrClassifierUnavailable):
		h.logger.Warn("analyze: classifier unavailable", "log_id", req.LogID, "err", err)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	case errors.Is(err, classify.ErrInference):
		h.logger.Error("analyze: inference failed", "log_id", req.LogID, "err", err)
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	case err != nil:
		h.logger.Error("analyze failed", "log_id", req.LogID, "err", err)
		jsonError(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("analyzed log",
		"log_id", req.LogID,
		"label", verdict.Label,
		"suspicious", verdict.IsSuspicious,
	)
	h.publish(req.LogID, verdict)
	writeJSON(w, http.StatusOK, verdict)
}

func (h *AnalyzeHandler) publish(logID string, v *classify.Verdict) {
	if h.hub == nil {
		return
	}
	data, err := json.Marshal(verdictEvent{LogID: logID, Verdict: v})
	if err != nil {
		h.logger.Warn("analyze: encode verdict event", "err", err)
		return
	}
	h.hub.PublishVerdict(sse.Event{Type: "verdict", Data: data}, v.IsSuspicious)
}

// HealthHandler reports liveness and classifier state.
type HealthHandler struct {
	decider   classify.Decider
	modelName string
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(decider classify.Decider, modelName string) *HealthHandler {
	return &HealthHandler{decider: decider, modelName: modelName}
}

// Health handles GET /health. It never triggers a model load.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	status := h.decider.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"model":      h.modelName,
		"mode":       h.decider.Mode(),
		"classifier": status,
		"ready":      status == "ready",
	})
}
