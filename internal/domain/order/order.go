// Package order assembles checkouts into persisted orders: contact and
// payment validation, pricing, and color-variant fan-out.
package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bazarly/storefront/internal/domain/shipping"
)

// PaymentMethod enumerates the accepted payment options.
type PaymentMethod string

const (
	// PaymentCOD is cash on delivery.
	PaymentCOD PaymentMethod = "cod"
	// PaymentPrepaid is a mobile-wallet payment identified by a reference id.
	PaymentPrepaid PaymentMethod = "prepaid"
)

// Status enumerates the order lifecycle states managed by fulfilment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrCustomerNotFound is returned when no customer profile exists for an id
// supplied with an authenticated checkout.
var ErrCustomerNotFound = errors.New("customer not found")

// Contact is the identity snapshot stored with an order. An authenticated
// customer profile and a guest-supplied identity are equivalent once validated.
type Contact struct {
	Name        string
	Phone       string
	AddressLine string
	Area        string
}

// Order is a persisted unit of sale. Orders created from one checkout with
// color variants share a ColorGroupID equal to the base order's own id; the
// base order has a nil Color.
type Order struct {
	ID               string
	OrderNumber      string
	Status           Status
	PaymentMethod    PaymentMethod
	PaymentStatus    string
	PaymentReference string
	GrandTotal       decimal.Decimal
	ShippingFee      decimal.Decimal
	Discount         decimal.Decimal
	VoucherCode      string
	DeliveryZone     shipping.Zone
	Contact          Contact
	Color            *string
	ColorGroupID     *string
	Items            []Item
	CreatedAt        time.Time
}

// Item is an immutable line-item snapshot created with its parent order.
type Item struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Size        string
	Quantity    int
	UnitPrice   decimal.Decimal
	TotalPrice  decimal.Decimal
}

// Repository defines persistence operations for orders. Each call is a single
// independent statement; the fan-out sequence coordinates them.
type Repository interface {
	// Create inserts the order and its items, returning nothing; the id is
	// assigned by the caller.
	Create(ctx context.Context, o *Order) error
	// SetColorGroup backfills the color_group_id of an existing order.
	SetColorGroup(ctx context.Context, orderID, groupID string) error
	// Delete removes an order and its items. Used only by fan-out compensation.
	Delete(ctx context.Context, orderID string) error
	// GetByNumber returns an order with its items for tracking.
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
}

// ValidationError aggregates every problem found in a checkout request so the
// caller can fix all of them in one round trip.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid checkout: %s", strings.Join(e.Problems, "; "))
}

// PartialFanoutError reports a variant fan-out that failed after some rows
// were created and could not be compensated. Surviving ids are listed so an
// operator can reconcile manually; this must never be treated as success.
type PartialFanoutError struct {
	SurvivingIDs []string
	Cause        error
}

func (e *PartialFanoutError) Error() string {
	return fmt.Sprintf("variant fan-out failed with %d surviving orders (%s): %v",
		len(e.SurvivingIDs), strings.Join(e.SurvivingIDs, ", "), e.Cause)
}

func (e *PartialFanoutError) Unwrap() error { return e.Cause }
