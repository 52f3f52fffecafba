package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Service resolves voucher codes through a Repository and evaluates them.
// Evaluation never mutates the rule; usage counters are only incremented by
// MarkUsed once a checkout that applied the voucher has been persisted.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a voucher Service backed by the given Repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Check looks up the code and evaluates it against the subtotal. An unknown
// code is not an error: it reports Applicable=false like any other rejection.
func (s *Service) Check(ctx context.Context, code string, subtotal decimal.Decimal) (Evaluation, error) {
	rule, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return rejected("voucher not found"), nil
		}
		return Evaluation{}, errors.Wrap(err, "lookup voucher")
	}
	return Evaluate(rule, subtotal, s.now()), nil
}

// Lookup fetches the rule for a code. A missing code yields a nil rule and no
// error; the caller treats nil as a rejection.
func (s *Service) Lookup(ctx context.Context, code string) (*Rule, error) {
	rule, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "lookup voucher")
	}
	return rule, nil
}

// MarkUsed increments the usage counter for a voucher that was applied to a
// persisted order.
func (s *Service) MarkUsed(ctx context.Context, code string) error {
	if err := s.repo.IncrementUses(ctx, code); err != nil {
		return errors.Wrap(err, "increment voucher uses")
	}
	return nil
}
