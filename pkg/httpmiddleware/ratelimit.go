package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CounterStore counts requests per key within a window. Implementations may
// be process-local or shared across instances (e.g. a database-backed
// counter), so the limit holds even with several API servers behind one
// load balancer.
type CounterStore interface {
	// Incr records one request for key at time now and returns the request
	// count inside the current window plus the window's reset time.
	Incr(ctx context.Context, key string, now time.Time) (count int, resetAt time.Time, err error)
}

// CleanupStore is implemented by stores that need periodic eviction of
// expired windows.
type CleanupStore interface {
	Cleanup(ctx context.Context, now time.Time) error
}

// RateLimitConfig configures the rate limit middleware.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request.
	// If nil, the client IP address is used.
	KeyFunc func(*http.Request) string
	// Store counts requests. If nil, a process-local sliding window store
	// is used.
	Store CounterStore
}

// memoryStore is the default process-local CounterStore. It uses a sliding
// window: the previous window's count is weighted by how much of it overlaps
// the current window, which smooths bursts at window boundaries.
type memoryStore struct {
	window  time.Duration
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

type memoryEntry struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

func newMemoryStore(window time.Duration) *memoryStore {
	return &memoryStore{
		window:  window,
		entries: make(map[string]*memoryEntry),
	}
}

func (s *memoryStore) Incr(_ context.Context, key string, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &memoryEntry{currStart: now}
		s.entries[key] = e
	}

	// Rotate window if the current window has elapsed.
	if now.Sub(e.currStart) >= s.window {
		e.prevCount = e.currCount
		e.prevStart = e.currStart
		e.currCount = 0
		e.currStart = now.Truncate(s.window)
		// If even the previous window is stale, zero it out.
		if now.Sub(e.prevStart) >= 2*s.window {
			e.prevCount = 0
		}
	}

	e.currCount++

	elapsed := now.Sub(e.currStart)
	overlapRatio := 1.0 - elapsed.Seconds()/s.window.Seconds()
	if overlapRatio < 0 {
		overlapRatio = 0
	}
	effective := e.prevCount*overlapRatio + e.currCount

	return int(math.Ceil(effective)), e.currStart.Add(s.window), nil
}

func (s *memoryStore) Cleanup(_ context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.entries {
		if now.Sub(e.currStart) >= 2*s.window {
			delete(s.entries, key)
		}
	}
	return nil
}

// RateLimit returns a middleware that enforces a per-key request limit. When
// the limit is exceeded, it responds with 429 Too Many Requests and a JSON
// body. Every response includes X-RateLimit-Limit, X-RateLimit-Remaining,
// and X-RateLimit-Reset headers.
//
// This variant does not start a background cleanup goroutine. Use
// RateLimitWithCleanup if the store needs eviction of stale windows.
func RateLimit(cfg RateLimitConfig) Middleware {
	return rateLimitMiddleware(normalizeConfig(cfg))
}

// RateLimitWithCleanup is like RateLimit but additionally runs the store's
// Cleanup every 2x the window duration until ctx is cancelled. Stores without
// a Cleanup method are used as-is.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	cfg = normalizeConfig(cfg)
	if cs, ok := cfg.Store.(CleanupStore); ok {
		go runCleanup(ctx, cs, 2*cfg.Window)
	}
	return rateLimitMiddleware(cfg)
}

func normalizeConfig(cfg RateLimitConfig) RateLimitConfig {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultKeyFunc
	}
	if cfg.Store == nil {
		cfg.Store = newMemoryStore(cfg.Window)
	}
	return cfg
}

func runCleanup(ctx context.Context, store CleanupStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := store.Cleanup(ctx, now); err != nil {
				zctx.From(ctx).Warn("Rate limit cleanup failed", zap.Error(err))
			}
		}
	}
}

func rateLimitMiddleware(cfg RateLimitConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := cfg.KeyFunc(r)
			now := time.Now()

			count, resetAt, err := cfg.Store.Incr(r.Context(), key, now)
			if err != nil {
				// A broken counter must not take the API down with it.
				zctx.From(r.Context()).Warn("Rate limit store failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			remaining := cfg.Max - count
			if remaining < 0 {
				remaining = 0
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if count > cfg.Max {
				retryAfter := time.Until(resetAt)
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    429,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// defaultKeyFunc extracts the client IP from the request, checking
// X-Forwarded-For first, then X-Real-IP, then falling back to RemoteAddr.
func defaultKeyFunc(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For may contain a comma-separated list; use the first.
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
