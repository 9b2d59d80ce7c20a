package server

import (
	"context"
	"io"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"
)

const maxBackoff = 5 * time.Minute

// baseBackoff is the first restart delay; it doubles per consecutive restart.
var baseBackoff = time.Second

// RunWithRecovery keeps a long-lived worker such as the websocket feed
// running. A panic or an early return restarts fn after an exponential
// backoff. It stops when ctx is cancelled.
func RunWithRecovery(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			logger.Info("worker stopped", "name", name, "reason", "context cancelled")
			return
		}

		runRecovered(ctx, logger, name, attempt, fn)
		if ctx.Err() != nil {
			logger.Info("worker stopped", "name", name, "reason", "context cancelled")
			return
		}

		wait := backoff(attempt)
		logger.Warn("worker restarting", "name", name, "attempt", attempt+1, "backoff", wait)

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func runRecovered(ctx context.Context, logger *slog.Logger, name string, attempt int, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker panicked",
				"name", name,
				"panic", r,
				"stack", string(debug.Stack()),
				"attempt", attempt,
			)
		}
	}()
	fn(ctx)
}

func backoff(attempt int) time.Duration {
	d := baseBackoff
	for range attempt {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

// ParseLevel maps debug|info|warn|error (any case) to a slog level,
// defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger creates a structured JSON slog.Logger writing to w.
func SetupLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	}))
}
