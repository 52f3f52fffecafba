// Package handler exposes the storefront HTTP API. Handlers decode and
// validate transport concerns, then delegate to the domain services and map
// their results (or errors) back to JSON responses.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/bazarly/storefront/internal/domain/auth"
	"github.com/bazarly/storefront/internal/domain/order"
	"github.com/bazarly/storefront/internal/domain/product"
	"github.com/bazarly/storefront/internal/domain/report"
	"github.com/bazarly/storefront/internal/domain/voucher"
)

// ContactResolver maps an authenticated customer id to a contact snapshot.
type ContactResolver interface {
	ContactByID(ctx context.Context, id string) (*order.Contact, error)
}

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product responses.
	// When empty, image paths are returned as stored in the database.
	ImageBaseURL string

	// APIKeyPepper is the server-side HMAC key used to hash admin API keys
	// before lookup.
	APIKeyPepper string
}

// Handler implements the storefront HTTP API, delegating business logic to
// the injected domain services and repositories.
type Handler struct {
	products     product.Repository
	vouchers     *voucher.Service
	orders       *order.Service
	reports      *report.Service
	customers    ContactResolver
	apikeys      auth.Repository
	imageBaseURL string
	apiKeyPepper string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	vouchers *voucher.Service,
	orders *order.Service,
	reports *report.Service,
	customers ContactResolver,
	apikeys auth.Repository,
) *Handler {
	return &Handler{
		products:     products,
		vouchers:     vouchers,
		orders:       orders,
		reports:      reports,
		customers:    customers,
		apikeys:      apikeys,
		imageBaseURL: cfg.ImageBaseURL,
		apiKeyPepper: cfg.APIKeyPepper,
	}
}

// Routes mounts every API route on a fresh router. Probe endpoints are
// mounted separately by the app so they bypass rate limiting.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/delivery/{zone}", h.GetDeliveryOption)
		r.Get("/vouchers/{code}/check", h.CheckVoucher)
		r.Post("/quote", h.QuoteCart)
		r.Post("/checkout", h.Checkout)
		r.Get("/orders/{number}", h.TrackOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAPIKey)
			r.Get("/reports", h.RangeReport)
			r.Get("/reports/monthly/{month}", h.MonthlyReport)
		})
	})

	return r
}
