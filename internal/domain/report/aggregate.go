package report

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// topProductsCap bounds the ranking length.
const topProductsCap = 20

// Payment method buckets used by the payment breakdown.
const (
	PaymentCOD   = "COD"
	PaymentBkash = "bKash"
	PaymentOther = "Other"
)

// Aggregate builds a report over every order created within [from, to]. The
// daily breakdown is dense: one bucket per calendar day in the range, zero
// filled for days without activity.
func Aggregate(orders []OrderRecord, items []ItemRecord, from, to time.Time) *Report {
	r := &Report{
		Daily:       dailyBuckets(orders, from, to),
		TopProducts: topProducts(items),
		Payments:    make(map[string]int),
		Statuses:    make(map[string]int),
	}

	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Revenue)
		r.Payments[NormalizePayment(o.PaymentMethod)]++
		r.Statuses[normalizeStatus(o.Status)]++
	}

	r.Summary = Summary{
		OrderCount:   len(orders),
		TotalRevenue: total,
		AverageOrder: decimal.Zero,
	}
	if len(orders) > 0 {
		r.Summary.AverageOrder = total.DivRound(decimal.NewFromInt(int64(len(orders))), 2)
	}

	return r
}

// NormalizePayment maps raw payment method strings to the three reporting
// buckets. Historical rows spell the wallet name several ways.
func NormalizePayment(method string) string {
	switch strings.ToLower(strings.TrimSpace(method)) {
	case "cod", "cash", "cash_on_delivery", "cash on delivery":
		return PaymentCOD
	case "bkash", "b-kash", "prepaid":
		return PaymentBkash
	default:
		return PaymentOther
	}
}

func normalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return "unknown"
	}
	return s
}

func dailyBuckets(orders []OrderRecord, from, to time.Time) []DayBucket {
	from = truncateDay(from)
	to = truncateDay(to)
	if to.Before(from) {
		return nil
	}

	index := make(map[string]int)
	var buckets []DayBucket
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		index[key] = len(buckets)
		buckets = append(buckets, DayBucket{Date: key, Revenue: decimal.Zero})
	}

	for _, o := range orders {
		key := o.CreatedAt.Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			continue
		}
		buckets[i].Orders++
		buckets[i].Revenue = buckets[i].Revenue.Add(o.Revenue)
	}

	return buckets
}

func topProducts(items []ItemRecord) []ProductRank {
	type acc struct {
		name string
		qty  int
	}
	byProduct := make(map[string]*acc)
	for _, it := range items {
		a, ok := byProduct[it.ProductID]
		if !ok {
			a = &acc{name: it.ProductName}
			byProduct[it.ProductID] = a
		}
		a.qty += it.Quantity
	}

	ranks := make([]ProductRank, 0, len(byProduct))
	for id, a := range byProduct {
		ranks = append(ranks, ProductRank{ProductID: id, ProductName: a.name, Quantity: a.qty})
	}
	sort.Slice(ranks, func(i, j int) bool {
		if ranks[i].Quantity != ranks[j].Quantity {
			return ranks[i].Quantity > ranks[j].Quantity
		}
		return ranks[i].ProductID < ranks[j].ProductID
	})

	if len(ranks) > topProductsCap {
		ranks = ranks[:topProductsCap]
	}
	return ranks
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
