package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/bazarly/storefront/internal/domain/order"
	"github.com/bazarly/storefront/internal/domain/shipping"
)

const (
	createOrderSQL = `INSERT INTO orders (id, order_number, status, payment_method,
		payment_status, payment_reference, grand_total, shipping_fee, discount,
		voucher_code, delivery_zone, contact_name, contact_phone, address_line,
		area, color, color_group_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	createOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id,
		product_name, size, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	setColorGroupSQL = `UPDATE orders SET color_group_id = $2 WHERE id = $1`

	deleteOrderItemsSQL = `DELETE FROM order_items WHERE order_id = $1`
	deleteOrderSQL      = `DELETE FROM orders WHERE id = $1`

	getOrderByNumberSQL = `SELECT id, order_number, status, payment_method,
		payment_status, payment_reference, COALESCE(grand_total, total_amount, 0),
		shipping_fee, discount, voucher_code, delivery_zone, contact_name,
		contact_phone, address_line, area, color, color_group_id, created_at
		FROM orders WHERE order_number = $1`

	getOrderItemsSQL = `SELECT id, order_id, product_id, product_name, size,
		quantity, unit_price, total_price
		FROM order_items WHERE order_id = $1 ORDER BY id`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. An order
// and its item snapshots are written in one transaction; coordination across
// multiple orders (variant fan-out) is the service's job.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order row and its items atomically.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, o.OrderNumber, string(o.Status), string(o.PaymentMethod),
		o.PaymentStatus, o.PaymentReference, o.GrandTotal, o.ShippingFee,
		o.Discount, o.VoucherCode, string(o.DeliveryZone), o.Contact.Name,
		o.Contact.Phone, o.Contact.AddressLine, o.Contact.Area,
		o.Color, o.ColorGroupID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, createOrderItemSQL,
			it.ID, o.ID, it.ProductID, it.ProductName, it.Size,
			it.Quantity, it.UnitPrice, it.TotalPrice,
		)
		if err != nil {
			return fmt.Errorf("creating item for order %q: %w", o.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

// SetColorGroup backfills the color group id of an existing order.
func (r *OrderRepository) SetColorGroup(ctx context.Context, orderID, groupID string) error {
	_, err := r.pool.Exec(ctx, setColorGroupSQL, orderID, groupID)
	if err != nil {
		return fmt.Errorf("setting color group for order %q: %w", orderID, err)
	}
	return nil
}

// Delete removes an order and its items. Used by fan-out compensation.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteOrderItemsSQL, orderID); err != nil {
		return fmt.Errorf("deleting items of order %q: %w", orderID, err)
	}
	if _, err := tx.Exec(ctx, deleteOrderSQL, orderID); err != nil {
		return fmt.Errorf("deleting order %q: %w", orderID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing delete of order %q: %w", orderID, err)
	}
	return nil
}

// GetByNumber returns an order with its items for tracking.
func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByNumberSQL, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", orderNumber, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", orderNumber, err)
	}

	itemRows, err := r.pool.Query(ctx, getOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", o.ID, err)
	}
	o.Items, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items of order %q: %w", o.ID, err)
	}

	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentMethod string
		zone          string
		grandTotal    decimal.Decimal
		createdAt     time.Time
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &status, &paymentMethod, &o.PaymentStatus,
		&o.PaymentReference, &grandTotal, &o.ShippingFee, &o.Discount,
		&o.VoucherCode, &zone, &o.Contact.Name, &o.Contact.Phone,
		&o.Contact.AddressLine, &o.Contact.Area, &o.Color, &o.ColorGroupID,
		&createdAt,
	)
	o.Status = order.Status(status)
	o.PaymentMethod = order.PaymentMethod(paymentMethod)
	o.DeliveryZone = shipping.Zone(zone)
	o.GrandTotal = grandTotal
	o.CreatedAt = createdAt
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var it order.Item
	err := row.Scan(
		&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Size,
		&it.Quantity, &it.UnitPrice, &it.TotalPrice,
	)
	return it, err
}
