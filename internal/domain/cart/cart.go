// Package cart computes order quotes from cart lines, delivery zone, and an
// optional voucher. Pricing is pure: no side effects, identical inputs give
// identical quotes.
package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bazarly/storefront/internal/domain/shipping"
	"github.com/bazarly/storefront/internal/domain/voucher"
)

// Line is a priced cart entry. The unit price is resolved from the catalog at
// quote time, not cached from an earlier browsing session, so price changes
// between browsing and checkout are reflected.
type Line struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Size      string
}

// LineTotal returns unit price times quantity.
func (l Line) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Quote is the derived price breakdown presented before checkout.
type Quote struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
	// VoucherApplied reports whether the supplied voucher contributed to
	// Discount; VoucherReason carries the rejection reason otherwise.
	VoucherApplied bool
	VoucherReason  string
}

// Price computes the quote for the given lines and zone. rule may be nil when
// no voucher code was supplied. Total = max(0, subtotal - discount) + shipping.
func Price(lines []Line, zone shipping.Zone, rule *voucher.Rule, now time.Time) (Quote, error) {
	fee, err := shipping.Fee(zone)
	if err != nil {
		return Quote{}, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}

	q := Quote{
		Subtotal:    subtotal,
		Discount:    decimal.Zero,
		ShippingFee: fee,
	}

	if rule != nil {
		eval := voucher.Evaluate(rule, subtotal, now)
		q.VoucherApplied = eval.Applicable
		q.VoucherReason = eval.Reason
		if eval.Applicable {
			q.Discount = eval.Amount
		}
	}

	payable := subtotal.Sub(q.Discount)
	if payable.IsNegative() {
		payable = decimal.Zero
	}
	q.Total = payable.Add(fee)

	return q, nil
}
