// Package money holds the numeric coercion and currency formatting helpers
// shared by pricing and reporting.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// Safe coerces arbitrary input to a finite decimal amount. Nil, unparseable
// strings, NaN, and infinities all coerce to zero rather than propagating
// garbage into totals.
func Safe(v any) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case int:
		return decimal.NewFromInt(int64(x))
	case int32:
		return decimal.NewFromInt(int64(x))
	case int64:
		return decimal.NewFromInt(x)
	case float32:
		return safeFloat(float64(x))
	case float64:
		return safeFloat(x)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// SafeQuantity coerces arbitrary input to a non-negative whole quantity.
func SafeQuantity(v any) int {
	d := Safe(v)
	if d.IsNegative() || !d.IsInteger() {
		return 0
	}
	return int(d.IntPart())
}

// FormatTaka renders an amount in taka with thousands grouping and no
// fractional digits, e.g. "৳1,410". Negative or non-finite input renders
// as zero.
func FormatTaka(d decimal.Decimal) string {
	if d.IsNegative() {
		d = decimal.Zero
	}
	whole := d.Round(0).IntPart()
	return printer.Sprintf("৳%v", number.Decimal(whole, number.MaxFractionDigits(0)))
}

func safeFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
