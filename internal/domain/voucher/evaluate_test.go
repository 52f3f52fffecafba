package voucher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	fixedNow := time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
	pastTime := fixedNow.Add(-24 * time.Hour)
	futureTime := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name       string
		rule       *Rule
		subtotal   decimal.Decimal
		wantAmount decimal.Decimal
		wantReason string
	}{
		{
			name: "ten percent off above minimum",
			rule: &Rule{
				Code:        "SAVE10",
				Type:        DiscountPercentage,
				Value:       decimal.NewFromInt(10),
				MinPurchase: decimal.NewFromInt(1000),
				Active:      true,
			},
			subtotal:   decimal.NewFromInt(1500),
			wantAmount: decimal.NewFromInt(150),
		},
		{
			name: "below minimum purchase rejected",
			rule: &Rule{
				Code:        "SAVE10",
				Type:        DiscountPercentage,
				Value:       decimal.NewFromInt(10),
				MinPurchase: decimal.NewFromInt(1000),
				Active:      true,
			},
			subtotal:   decimal.NewFromInt(300),
			wantReason: "purchase amount is below the voucher minimum",
		},
		{
			name: "flat discount",
			rule: &Rule{
				Code:   "FLAT200",
				Type:   DiscountFlat,
				Value:  decimal.NewFromInt(200),
				Active: true,
			},
			subtotal:   decimal.NewFromInt(900),
			wantAmount: decimal.NewFromInt(200),
		},
		{
			name: "flat discount capped at subtotal",
			rule: &Rule{
				Code:   "FLAT500",
				Type:   DiscountFlat,
				Value:  decimal.NewFromInt(500),
				Active: true,
			},
			subtotal:   decimal.NewFromInt(350),
			wantAmount: decimal.NewFromInt(350),
		},
		{
			name:       "nil rule rejected",
			rule:       nil,
			subtotal:   decimal.NewFromInt(100),
			wantReason: "voucher not found",
		},
		{
			name: "inactive rejected",
			rule: &Rule{
				Code:  "OFF",
				Type:  DiscountFlat,
				Value: decimal.NewFromInt(50),
			},
			subtotal:   decimal.NewFromInt(500),
			wantReason: "voucher is inactive",
		},
		{
			name: "not yet valid rejected",
			rule: &Rule{
				Code:      "SOON",
				Type:      DiscountFlat,
				Value:     decimal.NewFromInt(50),
				ValidFrom: &futureTime,
				Active:    true,
			},
			subtotal:   decimal.NewFromInt(500),
			wantReason: "voucher is not active yet",
		},
		{
			name: "expired rejected",
			rule: &Rule{
				Code:       "OLD",
				Type:       DiscountFlat,
				Value:      decimal.NewFromInt(50),
				ValidUntil: &pastTime,
				Active:     true,
			},
			subtotal:   decimal.NewFromInt(500),
			wantReason: "voucher has expired",
		},
		{
			name: "inside validity window accepted",
			rule: &Rule{
				Code:       "WINDOW",
				Type:       DiscountFlat,
				Value:      decimal.NewFromInt(50),
				ValidFrom:  &pastTime,
				ValidUntil: &futureTime,
				Active:     true,
			},
			subtotal:   decimal.NewFromInt(500),
			wantAmount: decimal.NewFromInt(50),
		},
		{
			name: "usage cap reached rejected",
			rule: &Rule{
				Code:    "LIMITED",
				Type:    DiscountPercentage,
				Value:   decimal.NewFromInt(10),
				MaxUses: 100,
				Uses:    100,
				Active:  true,
			},
			subtotal:   decimal.NewFromInt(500),
			wantReason: "voucher usage limit reached",
		},
		{
			name: "zero max uses means unlimited",
			rule: &Rule{
				Code:   "UNLIMITED",
				Type:   DiscountPercentage,
				Value:  decimal.NewFromInt(10),
				Uses:   9999,
				Active: true,
			},
			subtotal:   decimal.NewFromInt(500),
			wantAmount: decimal.NewFromInt(50),
		},
		{
			name: "non-positive value rejected",
			rule: &Rule{
				Code:   "NOTHING",
				Type:   DiscountFlat,
				Value:  decimal.Zero,
				Active: true,
			},
			subtotal:   decimal.NewFromInt(500),
			wantReason: "voucher has no discount value",
		},
		{
			name: "unknown discount type rejected",
			rule: &Rule{
				Code:   "WEIRD",
				Type:   DiscountType("bogo"),
				Value:  decimal.NewFromInt(10),
				Active: true,
			},
			subtotal:   decimal.NewFromInt(500),
			wantReason: "unsupported discount type",
		},
		{
			name: "percentage rounded to whole taka",
			rule: &Rule{
				Code:   "SEVEN",
				Type:   DiscountPercentage,
				Value:  decimal.NewFromInt(7),
				Active: true,
			},
			subtotal:   decimal.NewFromInt(999),
			wantAmount: decimal.NewFromInt(70), // 69.93 rounds to 70
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.rule, tt.subtotal, fixedNow)

			if tt.wantReason != "" {
				assert.False(t, got.Applicable)
				assert.Equal(t, tt.wantReason, got.Reason)
				assert.True(t, got.Amount.IsZero(), "rejected voucher must carry zero amount")
				return
			}

			require.True(t, got.Applicable, "reason: %s", got.Reason)
			assert.True(t, tt.wantAmount.Equal(got.Amount),
				"want amount %s, got %s", tt.wantAmount, got.Amount)
			assert.True(t, got.Amount.LessThanOrEqual(tt.subtotal))
			assert.False(t, got.Amount.IsNegative())
		})
	}
}
