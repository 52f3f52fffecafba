package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bazarly/storefront/internal/domain/report"
)

const (
	// COALESCE folds the legacy total_amount column into the canonical
	// grand_total, so the aggregator never sees two revenue field names.
	reportOrdersSQL = `SELECT id, COALESCE(grand_total, total_amount, 0),
		payment_method, status, created_at
		FROM orders WHERE created_at >= $1 AND created_at <= $2`

	reportItemsSQL = `SELECT oi.order_id, oi.product_id, oi.product_name, oi.quantity
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1 AND o.created_at <= $2`

	getSnapshotSQL = `SELECT payload FROM report_snapshots WHERE month = $1`

	putSnapshotSQL = `INSERT INTO report_snapshots (month, payload, computed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (month) DO UPDATE SET payload = EXCLUDED.payload, computed_at = now()`
)

var _ report.Repository = (*ReportRepository)(nil)

// ReportRepository implements report.Repository backed by PostgreSQL.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository returns a ReportRepository that uses the given pool.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// OrdersBetween returns normalized order records created within [from, to].
func (r *ReportRepository) OrdersBetween(ctx context.Context, from, to time.Time) ([]report.OrderRecord, error) {
	rows, err := r.pool.Query(ctx, reportOrdersSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading report orders: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.OrderRecord, error) {
		var rec report.OrderRecord
		err := row.Scan(&rec.ID, &rec.Revenue, &rec.PaymentMethod, &rec.Status, &rec.CreatedAt)
		return rec, err
	})
}

// ItemsBetween returns item records of orders created within [from, to].
func (r *ReportRepository) ItemsBetween(ctx context.Context, from, to time.Time) ([]report.ItemRecord, error) {
	rows, err := r.pool.Query(ctx, reportItemsSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading report items: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (report.ItemRecord, error) {
		var rec report.ItemRecord
		err := row.Scan(&rec.OrderID, &rec.ProductID, &rec.ProductName, &rec.Quantity)
		return rec, err
	})
}

// GetSnapshot loads the cached report for a month.
func (r *ReportRepository) GetSnapshot(ctx context.Context, month string) (*report.Report, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, getSnapshotSQL, month).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, report.ErrNoSnapshot
		}
		return nil, fmt.Errorf("loading snapshot %q: %w", month, err)
	}

	var rep report.Report
	if err := json.Unmarshal(payload, &rep); err != nil {
		return nil, fmt.Errorf("decoding snapshot %q: %w", month, err)
	}
	return &rep, nil
}

// PutSnapshot stores (or replaces) the cached report for a month.
func (r *ReportRepository) PutSnapshot(ctx context.Context, month string, rep *report.Report) error {
	payload, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("encoding snapshot %q: %w", month, err)
	}
	if _, err := r.pool.Exec(ctx, putSnapshotSQL, month, payload); err != nil {
		return fmt.Errorf("storing snapshot %q: %w", month, err)
	}
	return nil
}
