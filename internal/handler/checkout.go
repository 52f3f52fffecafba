package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/bazarly/storefront/internal/domain/cart"
	"github.com/bazarly/storefront/internal/domain/money"
	"github.com/bazarly/storefront/internal/domain/order"
	"github.com/bazarly/storefront/internal/domain/shipping"
)

type cartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
}

type guestRequest struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	Area        string `json:"area,omitempty"`
}

type checkoutRequest struct {
	Items            []cartItemRequest `json:"items"`
	DeliveryZone     string            `json:"delivery_zone"`
	PaymentMethod    string            `json:"payment_method"`
	PaymentReference string            `json:"payment_reference,omitempty"`
	VoucherCode      string            `json:"voucher_code,omitempty"`
	CustomerID       string            `json:"customer_id,omitempty"`
	Guest            *guestRequest     `json:"guest,omitempty"`
	Colors           []string          `json:"colors,omitempty"`
}

type quoteBody struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	ShippingFee    decimal.Decimal `json:"shipping_fee"`
	Total          decimal.Decimal `json:"total"`
	TotalFormatted string          `json:"total_formatted"`
	VoucherApplied bool            `json:"voucher_applied"`
	VoucherReason  string          `json:"voucher_reason,omitempty"`
}

type checkoutResponse struct {
	OrderNumber string    `json:"order_number"`
	OrderIDs    []string  `json:"order_ids"`
	Quote       quoteBody `json:"quote"`
}

// Checkout validates and persists an order, fanning out one row per color
// variant. On success it responds 201 with the order number and every created
// row id.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	zone, err := shipping.ParseZone(req.DeliveryZone)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	contact, err := h.resolveContact(r, req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	result, err := h.orders.Checkout(r.Context(), order.CheckoutRequest{
		Lines:            toCheckoutLines(req.Items),
		Zone:             zone,
		PaymentMethod:    order.PaymentMethod(req.PaymentMethod),
		PaymentReference: req.PaymentReference,
		VoucherCode:      req.VoucherCode,
		Contact:          contact,
		ExtraColors:      req.Colors,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	ids := make([]string, len(result.Orders))
	for i, o := range result.Orders {
		ids[i] = o.ID
	}

	respondJSON(w, http.StatusCreated, checkoutResponse{
		OrderNumber: result.OrderNumber,
		OrderIDs:    ids,
		Quote:       toQuoteBody(result.Quote),
	})
}

type orderItemBody struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type orderResponse struct {
	OrderNumber         string              `json:"order_number"`
	Status              order.Status        `json:"status"`
	PaymentMethod       order.PaymentMethod `json:"payment_method"`
	PaymentStatus       string              `json:"payment_status"`
	GrandTotal          decimal.Decimal     `json:"grand_total"`
	GrandTotalFormatted string              `json:"grand_total_formatted"`
	ShippingFee         decimal.Decimal     `json:"shipping_fee"`
	Discount            decimal.Decimal     `json:"discount"`
	VoucherCode         string              `json:"voucher_code,omitempty"`
	DeliveryZone        shipping.Zone       `json:"delivery_zone"`
	Color               *string             `json:"color,omitempty"`
	Items               []orderItemBody     `json:"items"`
	CreatedAt           time.Time           `json:"created_at"`
}

// TrackOrder returns a persisted order by its order number.
func (h *Handler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	number := chi.URLParam(r, "number")

	o, err := h.orders.GetByNumber(r.Context(), number)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	items := make([]orderItemBody, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemBody{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Size:        it.Size,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}
	}

	respondJSON(w, http.StatusOK, orderResponse{
		OrderNumber:         o.OrderNumber,
		Status:              o.Status,
		PaymentMethod:       o.PaymentMethod,
		PaymentStatus:       o.PaymentStatus,
		GrandTotal:          o.GrandTotal,
		GrandTotalFormatted: money.FormatTaka(o.GrandTotal),
		ShippingFee:         o.ShippingFee,
		Discount:            o.Discount,
		VoucherCode:         o.VoucherCode,
		DeliveryZone:        o.DeliveryZone,
		Color:               o.Color,
		Items:               items,
		CreatedAt:           o.CreatedAt,
	})
}

// resolveContact prefers an authenticated customer profile over the guest
// block when both are present.
func (h *Handler) resolveContact(r *http.Request, req checkoutRequest) (order.Contact, error) {
	if req.CustomerID != "" {
		c, err := h.customers.ContactByID(r.Context(), req.CustomerID)
		if err != nil {
			return order.Contact{}, err
		}
		return *c, nil
	}
	if req.Guest != nil {
		return order.Contact{
			Name:        req.Guest.FullName,
			Phone:       req.Guest.Phone,
			AddressLine: req.Guest.AddressLine,
			Area:        req.Guest.Area,
		}, nil
	}
	// Neither supplied: the order service reports the missing contact fields
	// together with any other validation problems.
	return order.Contact{}, nil
}

func toCheckoutLines(items []cartItemRequest) []order.CheckoutLine {
	lines := make([]order.CheckoutLine, len(items))
	for i, it := range items {
		lines[i] = order.CheckoutLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
		}
	}
	return lines
}

func toQuoteBody(q cart.Quote) quoteBody {
	return quoteBody{
		Subtotal:       q.Subtotal,
		Discount:       q.Discount,
		ShippingFee:    q.ShippingFee,
		Total:          q.Total,
		TotalFormatted: money.FormatTaka(q.Total),
		VoucherApplied: q.VoucherApplied,
		VoucherReason:  q.VoucherReason,
	}
}
