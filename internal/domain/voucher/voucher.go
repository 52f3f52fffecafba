// Package voucher evaluates discount codes against a cart subtotal.
package voucher

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported voucher discount strategies.
type DiscountType string

const (
	// DiscountPercentage applies a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFlat subtracts a fixed amount, capped at the subtotal.
	DiscountFlat DiscountType = "flat"
)

// ErrNotFound is returned when no active voucher exists for a code.
var ErrNotFound = errors.New("voucher not found")

// Rule defines a voucher's discount behaviour and eligibility constraints.
type Rule struct {
	Code        string
	Type        DiscountType
	Value       decimal.Decimal
	MinPurchase decimal.Decimal
	MaxUses     int
	Uses        int
	ValidFrom   *time.Time
	ValidUntil  *time.Time
	Active      bool
}

// Evaluation is the outcome of checking a rule against a subtotal. A rejected
// voucher is not an error: Applicable is false and Reason says why.
type Evaluation struct {
	Applicable bool
	Amount     decimal.Decimal
	Reason     string
}

// Repository provides lookup and mutation of voucher rules.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}
