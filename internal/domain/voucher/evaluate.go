package voucher

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate checks a rule against the purchase subtotal at the given instant.
// It fails closed: every ineligible state yields Applicable=false with a
// reason rather than an error, and the discount amount is clamped to
// [0, subtotal] and rounded to the nearest whole taka.
func Evaluate(rule *Rule, subtotal decimal.Decimal, now time.Time) Evaluation {
	if rule == nil {
		return rejected("voucher not found")
	}
	if !rule.Active {
		return rejected("voucher is inactive")
	}
	if rule.ValidFrom != nil && now.Before(*rule.ValidFrom) {
		return rejected("voucher is not active yet")
	}
	if rule.ValidUntil != nil && now.After(*rule.ValidUntil) {
		return rejected("voucher has expired")
	}
	if rule.MaxUses > 0 && rule.Uses >= rule.MaxUses {
		return rejected("voucher usage limit reached")
	}
	if subtotal.LessThan(rule.MinPurchase) {
		return rejected("purchase amount is below the voucher minimum")
	}
	if !rule.Value.IsPositive() {
		return rejected("voucher has no discount value")
	}

	var amount decimal.Decimal
	switch rule.Type {
	case DiscountPercentage:
		amount = subtotal.Mul(rule.Value).Div(hundred)
	case DiscountFlat:
		amount = rule.Value
	default:
		return rejected("unsupported discount type")
	}

	if amount.IsNegative() {
		amount = decimal.Zero
	}
	// Round to whole taka, then clamp so rounding can never push the
	// discount past the subtotal.
	amount = decimal.Min(amount.Round(0), subtotal)

	return Evaluation{Applicable: true, Amount: amount}
}

func rejected(reason string) Evaluation {
	return Evaluation{Amount: decimal.Zero, Reason: reason}
}
