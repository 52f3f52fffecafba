package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/bazarly/storefront/internal/domain/money"
	"github.com/bazarly/storefront/internal/domain/product"
	"github.com/bazarly/storefront/internal/domain/shipping"
)

type productImage struct {
	Thumbnail string `json:"thumbnail"`
	Mobile    string `json:"mobile"`
	Tablet    string `json:"tablet"`
	Desktop   string `json:"desktop"`
}

type productResponse struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	PriceFormatted string          `json:"price_formatted"`
	Category       string          `json:"category"`
	Sizes          []string        `json:"sizes,omitempty"`
	Colors         []string        `json:"colors,omitempty"`
	Image          productImage    `json:"image"`
}

// ListProducts returns the full catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, errors.Wrap(err, "list products"))
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = h.toProductResponse(p)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetProduct returns one catalog item by id.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondDomainError(w, r, errors.Wrapf(err, "get product %s", id))
		return
	}
	respondJSON(w, http.StatusOK, h.toProductResponse(*p))
}

type deliveryResponse struct {
	Zone         shipping.Zone   `json:"zone"`
	Fee          decimal.Decimal `json:"fee"`
	FeeFormatted string          `json:"fee_formatted"`
	MinDays      int             `json:"min_days"`
	MaxDays      int             `json:"max_days"`
}

// GetDeliveryOption returns the fee and delivery estimate for a zone.
func (h *Handler) GetDeliveryOption(w http.ResponseWriter, r *http.Request) {
	zone, err := shipping.ParseZone(chi.URLParam(r, "zone"))
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	fee, err := shipping.Fee(zone)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	est, err := shipping.EstimateFor(zone)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, deliveryResponse{
		Zone:         zone,
		Fee:          fee,
		FeeFormatted: money.FormatTaka(fee),
		MinDays:      est.MinDays,
		MaxDays:      est.MaxDays,
	})
}

func (h *Handler) toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		PriceFormatted: money.FormatTaka(p.Price),
		Category:       p.Category,
		Sizes:          p.Sizes,
		Colors:         p.Colors,
		Image: productImage{
			Thumbnail: h.imageURL(p.Image.Thumbnail),
			Mobile:    h.imageURL(p.Image.Mobile),
			Tablet:    h.imageURL(p.Image.Tablet),
			Desktop:   h.imageURL(p.Image.Desktop),
		},
	}
}

// imageURL prepends the configured base URL to relative image paths. Absolute
// URLs and empty paths pass through unchanged.
func (h *Handler) imageURL(path string) string {
	if path == "" || h.imageBaseURL == "" ||
		strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(h.imageBaseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}
