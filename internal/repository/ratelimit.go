package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bazarly/storefront/pkg/httpmiddleware"
)

const (
	incrementRateLimitSQL = `INSERT INTO rate_limits (key, window_start, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (key, window_start) DO UPDATE SET count = rate_limits.count + 1
		RETURNING count`

	cleanupRateLimitSQL = `DELETE FROM rate_limits WHERE window_start < $1`
)

var _ httpmiddleware.CounterStore = (*RateLimitStore)(nil)

// RateLimitStore is a fixed-window request counter shared across processes,
// backed by PostgreSQL. It replaces the in-memory store for deployments with
// more than one API server instance.
type RateLimitStore struct {
	pool   *pgxpool.Pool
	window time.Duration
}

// NewRateLimitStore returns a RateLimitStore that uses the given pool and
// window size.
func NewRateLimitStore(pool *pgxpool.Pool, window time.Duration) *RateLimitStore {
	return &RateLimitStore{pool: pool, window: window}
}

// Incr counts one request for key and returns the total within the current
// fixed window along with the window's reset time.
func (s *RateLimitStore) Incr(ctx context.Context, key string, now time.Time) (count int, resetAt time.Time, err error) {
	windowStart := now.Truncate(s.window)

	var n int32
	err = s.pool.QueryRow(ctx, incrementRateLimitSQL, key, windowStart).Scan(&n)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incrementing rate limit for %q: %w", key, err)
	}
	return int(n), windowStart.Add(s.window), nil
}

// Cleanup removes windows that ended before the previous window. Safe to call
// from a background ticker.
func (s *RateLimitStore) Cleanup(ctx context.Context, now time.Time) error {
	cutoff := now.Truncate(s.window).Add(-s.window)
	if _, err := s.pool.Exec(ctx, cleanupRateLimitSQL, cutoff); err != nil {
		return fmt.Errorf("cleaning up rate limit windows: %w", err)
	}
	return nil
}
