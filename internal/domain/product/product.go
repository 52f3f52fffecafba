// Package product defines the catalog types used by pricing and checkout.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Category string
	// Sizes lists the selectable sizes. When non-empty, a cart line for this
	// product must carry a size.
	Sizes []string
	// Colors lists the declared color variants used for order fan-out.
	Colors []string
	Image  Image
}

// Image holds responsive image URLs for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// RequiresSize reports whether a cart line for this product must select a size.
func (p Product) RequiresSize() bool {
	return len(p.Sizes) > 0
}

// HasSize reports whether the given size is one of the product's declared sizes.
func (p Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
