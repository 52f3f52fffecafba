package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Service produces reports, preferring stored monthly snapshots over
// recomputation. Snapshots are a pure cache: recomputing from raw rows always
// works and yields the same shape.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a report Service backed by the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Range aggregates all orders created within [from, to].
func (s *Service) Range(ctx context.Context, from, to time.Time) (*Report, error) {
	if to.Before(from) {
		return nil, errors.New("range end precedes range start")
	}

	orders, err := s.repo.OrdersBetween(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "load orders")
	}
	items, err := s.repo.ItemsBetween(ctx, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "load order items")
	}

	return Aggregate(orders, items, from, to), nil
}

// Monthly returns the report for a calendar month ("2006-01" format). A stored
// snapshot is preferred; otherwise the month is computed from raw rows and the
// result stored for next time. Months still in progress are never snapshotted.
func (s *Service) Monthly(ctx context.Context, month string) (*Report, error) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		return nil, errors.Wrapf(err, "parse month %q", month)
	}
	end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)

	cached, err := s.repo.GetSnapshot(ctx, month)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, ErrNoSnapshot):
	default:
		return nil, errors.Wrap(err, "load snapshot")
	}

	r, err := s.Range(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if end.Before(s.now()) {
		if err := s.repo.PutSnapshot(ctx, month, r); err != nil {
			// The report itself is fine; only the cache write failed.
			zctx.From(ctx).Warn("Snapshot write failed",
				zap.String("month", month), zap.Error(err))
		}
	}

	return r, nil
}
