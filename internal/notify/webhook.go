// Package notify delivers order confirmations to an external webhook. It is
// strictly fire-and-forget: delivery failures are logged and swallowed so they
// can never affect a completed checkout.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bazarly/storefront/internal/domain/money"
	"github.com/bazarly/storefront/internal/domain/order"
)

// Webhook posts invoice payloads to a configured URL.
type Webhook struct {
	url     string
	client  *http.Client
	timeout time.Duration
}

// NewWebhook creates a Webhook notifier. An empty URL disables delivery
// entirely; OrderConfirmed becomes a no-op.
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{}
	}
	return &Webhook{
		url:     url,
		client:  client,
		timeout: 10 * time.Second,
	}
}

type invoiceItem struct {
	ProductName string          `json:"product_name"`
	Size        string          `json:"size,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

type invoicePayload struct {
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerPhone string          `json:"customer_phone"`
	Address       string          `json:"address"`
	PaymentMethod string          `json:"payment_method"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	AmountDue     string          `json:"amount_due"`
	ShippingFee   decimal.Decimal `json:"shipping_fee"`
	Discount      decimal.Decimal `json:"discount"`
	Items         []invoiceItem   `json:"items"`
	OrderedAt     time.Time       `json:"ordered_at"`
}

// OrderConfirmed posts the invoice for a confirmed order. Errors are logged,
// never returned; the order is already persisted and the buyer already has
// their confirmation.
func (wh *Webhook) OrderConfirmed(ctx context.Context, o *order.Order) {
	if wh.url == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, wh.timeout)
	defer cancel()

	lg := zctx.From(ctx).With(zap.String("order_number", o.OrderNumber))

	body, err := json.Marshal(buildInvoice(o))
	if err != nil {
		lg.Error("Invoice payload marshal failed", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.url, bytes.NewReader(body))
	if err != nil {
		lg.Error("Invoice request build failed", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wh.client.Do(req)
	if err != nil {
		lg.Warn("Invoice delivery failed", zap.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		lg.Warn("Invoice delivery rejected", zap.Int("status", resp.StatusCode))
		return
	}
	lg.Info("Invoice delivered")
}

func buildInvoice(o *order.Order) invoicePayload {
	items := make([]invoiceItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = invoiceItem{
			ProductName: it.ProductName,
			Size:        it.Size,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		}
	}

	return invoicePayload{
		OrderNumber:   o.OrderNumber,
		CustomerName:  o.Contact.Name,
		CustomerPhone: o.Contact.Phone,
		Address:       o.Contact.AddressLine,
		PaymentMethod: string(o.PaymentMethod),
		GrandTotal:    o.GrandTotal,
		AmountDue:     money.FormatTaka(o.GrandTotal),
		ShippingFee:   o.ShippingFee,
		Discount:      o.Discount,
		Items:         items,
		OrderedAt:     o.CreatedAt,
	}
}
