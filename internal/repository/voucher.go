package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bazarly/storefront/internal/domain/voucher"
)

const (
	getVoucherByCodeSQL = `SELECT code, discount_type, value, min_purchase,
		max_uses, uses, valid_from, valid_until, active
		FROM vouchers WHERE UPPER(code) = UPPER($1)`

	incrementVoucherUsesSQL = `UPDATE vouchers SET uses = uses + 1 WHERE UPPER(code) = UPPER($1)`

	upsertVoucherSQL = `INSERT INTO vouchers (code, discount_type, value, min_purchase, max_uses, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (code) DO UPDATE SET
			discount_type = EXCLUDED.discount_type,
			value = EXCLUDED.value,
			min_purchase = EXCLUDED.min_purchase,
			max_uses = EXCLUDED.max_uses,
			active = EXCLUDED.active`
)

var _ voucher.Repository = (*VoucherRepository)(nil)

// VoucherRepository implements voucher.Repository backed by PostgreSQL.
type VoucherRepository struct {
	pool *pgxpool.Pool
}

// NewVoucherRepository returns a VoucherRepository that uses the given pool.
func NewVoucherRepository(pool *pgxpool.Pool) *VoucherRepository {
	return &VoucherRepository{pool: pool}
}

// FindByCode looks up a voucher by its code (case-insensitive). Inactive
// vouchers are returned as-is; the evaluator decides applicability so that
// the rejection reason can name the actual problem.
func (r *VoucherRepository) FindByCode(ctx context.Context, code string) (*voucher.Rule, error) {
	rows, err := r.pool.Query(ctx, getVoucherByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanVoucherRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, voucher.ErrNotFound
		}
		return nil, fmt.Errorf("finding voucher by code %q: %w", code, err)
	}
	return &rule, nil
}

// IncrementUses atomically increments the usage counter for the given code.
func (r *VoucherRepository) IncrementUses(ctx context.Context, code string) error {
	_, err := r.pool.Exec(ctx, incrementVoucherUsesSQL, code)
	if err != nil {
		return fmt.Errorf("incrementing uses for voucher %q: %w", code, err)
	}
	return nil
}

// Upsert inserts or replaces a voucher rule. Used by the bulk ingest command.
func (r *VoucherRepository) Upsert(ctx context.Context, rule *voucher.Rule) error {
	_, err := r.pool.Exec(ctx, upsertVoucherSQL,
		rule.Code, string(rule.Type), rule.Value, rule.MinPurchase, rule.MaxUses, rule.Active,
	)
	if err != nil {
		return fmt.Errorf("upserting voucher %q: %w", rule.Code, err)
	}
	return nil
}

func scanVoucherRule(row pgx.CollectableRow) (voucher.Rule, error) {
	var (
		rule         voucher.Rule
		discountType string
		value        decimal.Decimal
		minPurchase  decimal.Decimal
		maxUses      int32
		uses         int32
		validFrom    *time.Time
		validUntil   *time.Time
	)
	err := row.Scan(
		&rule.Code, &discountType, &value, &minPurchase,
		&maxUses, &uses, &validFrom, &validUntil, &rule.Active,
	)
	rule.Type = voucher.DiscountType(discountType)
	rule.Value = value
	rule.MinPurchase = minPurchase
	rule.MaxUses = int(maxUses)
	rule.Uses = int(uses)
	rule.ValidFrom = validFrom
	rule.ValidUntil = validUntil
	return rule, err
}
