package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/bazarly/storefront/internal/domain/order"
	"github.com/bazarly/storefront/internal/domain/shipping"
)

type quoteRequest struct {
	Items        []cartItemRequest `json:"items"`
	DeliveryZone string            `json:"delivery_zone"`
	VoucherCode  string            `json:"voucher_code,omitempty"`
}

type quoteLineBody struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Size      string          `json:"size,omitempty"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type quoteResponse struct {
	quoteBody
	Items []quoteLineBody `json:"items"`
}

// QuoteCart prices a cart without persisting anything. The response carries
// the same breakdown checkout would produce for identical input.
func (h *Handler) QuoteCart(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	zone, err := shipping.ParseZone(req.DeliveryZone)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	q, lines, err := h.orders.Quote(r.Context(), order.CheckoutRequest{
		Lines:       toCheckoutLines(req.Items),
		Zone:        zone,
		VoucherCode: req.VoucherCode,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	items := make([]quoteLineBody, len(lines))
	for i, l := range lines {
		items[i] = quoteLineBody{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			Size:      l.Size,
			LineTotal: l.LineTotal(),
		}
	}

	respondJSON(w, http.StatusOK, quoteResponse{
		quoteBody: toQuoteBody(q),
		Items:     items,
	})
}
