package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dorzhavian/hardwareexpress-logai/internal/classify"
	"github.com/dorzhavian/hardwareexpress-logai/internal/ratelimit"
	"github.com/dorzhavian/hardwareexpress-logai/internal/sse"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Decider   classify.Decider
	ModelName string
	Hub       *sse.Hub
	Limiter   *ratelimit.Limiter
	RateLimit ratelimit.Bucket
	WebSocket http.HandlerFunc // optional
	Logger    *slog.Logger

	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Set it only behind a proxy that overwrites those headers.
	TrustProxy bool
}

// NewRouter builds the service's chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New()
	}
	analyze := NewAnalyzeHandler(cfg.Decider, cfg.Hub, cfg.Logger)
	health := NewHealthHandler(cfg.Decider, cfg.ModelName)

	r := chi.NewRouter()
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})
	r.Get("/health", health.Health)

	r.With(cfg.Limiter.Middleware("analyze", cfg.RateLimit)).Post("/analyze", analyze.Analyze)

	if cfg.Hub != nil {
		r.Get("/stream/verdicts", NewStreamHandler(cfg.Hub).HandleSSE)
	}
	if cfg.WebSocket != nil {
		r.Get("/ws", cfg.WebSocket)
	}
	return r
}
