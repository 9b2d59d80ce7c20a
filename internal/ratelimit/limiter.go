package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Bucket defines rate limit parameters.
type Bucket struct {
	MaxRequests int
	Window      time.Duration
}

// PerMinute returns a one-minute bucket allowing n requests. n <= 0 disables
// limiting.
func PerMinute(n int) Bucket {
	return Bucket{MaxRequests: n, Window: time.Minute}
}

// Limiter is an in-memory sliding-window rate limiter per key.
type Limiter struct {
	mu   sync.Mutex
	hits map[string][]time.Time
	now  func() time.Time
}

// New creates a new rate limiter.
func New() *Limiter {
	return &Limiter{hits: make(map[string][]time.Time), now: time.Now}
}

// Allow checks if a request identified by key is within the rate limit for the
// given bucket. Returns true if allowed.
func (l *Limiter) Allow(key string, bucket Bucket) bool {
	if bucket.MaxRequests <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-bucket.Window)

	times := l.hits[key]
	pruned := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}

	if len(pruned) >= bucket.MaxRequests {
		l.hits[key] = pruned
		return false
	}

	l.hits[key] = append(pruned, now)
	return true
}

// Middleware rejects requests over bucket with 429, keyed by name and the
// connection's RemoteAddr. Forwarding headers are not read here; behind a
// trusted proxy, run chi's RealIP middleware first so RemoteAddr is the client.
func (l *Limiter) Middleware(name string, bucket Bucket) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(name+":"+clientIP(r), bucket) {
				next.ServeHTTP(w, r)
				return
			}

			retry := int(bucket.Window.Seconds())
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error":               "Rate limited",
				"retry_after_seconds": retry,
			})
		})
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
