package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bazarly/storefront/internal/domain/order"
)

const getCustomerSQL = `SELECT full_name, phone, address_line, area
	FROM customers WHERE id = $1`

// CustomerRepository resolves authenticated customer profiles into checkout
// contact snapshots. Guest checkouts bypass it entirely.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// ContactByID returns the stored contact snapshot for a customer.
func (r *CustomerRepository) ContactByID(ctx context.Context, id string) (*order.Contact, error) {
	var c order.Contact
	err := r.pool.QueryRow(ctx, getCustomerSQL, id).Scan(
		&c.Name, &c.Phone, &c.AddressLine, &c.Area,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("finding customer %q: %w", id, err)
	}
	return &c, nil
}
