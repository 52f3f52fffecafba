// Package report aggregates persisted orders into time-bucketed summaries
// with optional monthly snapshot caching.
package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// OrderRecord is the normalized read model for a persisted order. Revenue is
// canonical: legacy rows that stored the amount under another column are
// folded into it at the repository boundary, so nothing downstream branches
// on historical field names.
type OrderRecord struct {
	ID            string
	Revenue       decimal.Decimal
	PaymentMethod string
	Status        string
	CreatedAt     time.Time
}

// ItemRecord is the read model for an order line item.
type ItemRecord struct {
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
}

// Summary holds the headline figures for the aggregated range.
type Summary struct {
	OrderCount   int             `json:"order_count"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	AverageOrder decimal.Decimal `json:"average_order"`
}

// DayBucket is one calendar day of the dense daily breakdown.
type DayBucket struct {
	Date    string          `json:"date"` // YYYY-MM-DD
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// ProductRank is one entry of the top-products ranking.
type ProductRank struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// Report is the full aggregation result. The same shape is produced whether
// computed from raw rows or read back from a snapshot.
type Report struct {
	Summary     Summary        `json:"summary"`
	Daily       []DayBucket    `json:"daily"`
	TopProducts []ProductRank  `json:"top_products"`
	Payments    map[string]int `json:"payments"`
	Statuses    map[string]int `json:"statuses"`
}

// Repository reads order rows and stores monthly snapshots.
type Repository interface {
	OrdersBetween(ctx context.Context, from, to time.Time) ([]OrderRecord, error)
	ItemsBetween(ctx context.Context, from, to time.Time) ([]ItemRecord, error)
	GetSnapshot(ctx context.Context, month string) (*Report, error)
	PutSnapshot(ctx context.Context, month string, r *Report) error
}

// ErrNoSnapshot is returned by GetSnapshot when no snapshot exists for the
// requested month.
var ErrNoSnapshot = errors.New("no snapshot for month")
