// Package shipping maps delivery zones to flat fees and delivery estimates.
package shipping

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Zone is a coarse delivery fee bucket.
type Zone string

const (
	// ZoneInside covers addresses inside the metro area.
	ZoneInside Zone = "inside"
	// ZoneOutside covers everywhere else in the country.
	ZoneOutside Zone = "outside"
)

// ErrInvalidZone is returned for unrecognized zone values. An unknown zone
// must never silently default, otherwise totals would be miscalculated.
var ErrInvalidZone = errors.New("invalid delivery zone")

// Estimate is the displayed delivery window in days.
type Estimate struct {
	MinDays int
	MaxDays int
}

var (
	insideFee  = decimal.NewFromInt(60)
	outsideFee = decimal.NewFromInt(120)

	estimates = map[Zone]Estimate{
		ZoneInside:  {MinDays: 1, MaxDays: 3},
		ZoneOutside: {MinDays: 3, MaxDays: 7},
	}
)

// ParseZone normalizes a client-supplied zone string.
func ParseZone(s string) (Zone, error) {
	switch Zone(strings.ToLower(strings.TrimSpace(s))) {
	case ZoneInside:
		return ZoneInside, nil
	case ZoneOutside:
		return ZoneOutside, nil
	default:
		return "", errors.Wrapf(ErrInvalidZone, "zone %q", s)
	}
}

// Fee returns the flat shipping fee for the zone.
func Fee(zone Zone) (decimal.Decimal, error) {
	switch zone {
	case ZoneInside:
		return insideFee, nil
	case ZoneOutside:
		return outsideFee, nil
	default:
		return decimal.Zero, errors.Wrapf(ErrInvalidZone, "zone %q", zone)
	}
}

// EstimateFor returns the delivery day range for the zone. Display only.
func EstimateFor(zone Zone) (Estimate, error) {
	e, ok := estimates[zone]
	if !ok {
		return Estimate{}, errors.Wrapf(ErrInvalidZone, "zone %q", zone)
	}
	return e, nil
}
