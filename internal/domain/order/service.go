package order

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"go.uber.org/zap"

	"github.com/bazarly/storefront/internal/domain/cart"
	"github.com/bazarly/storefront/internal/domain/product"
	"github.com/bazarly/storefront/internal/domain/shipping"
	"github.com/bazarly/storefront/internal/domain/voucher"
)

// phonePattern matches Bangladeshi mobile numbers (11 digits, 01[3-9] prefix).
var phonePattern = regexp.MustCompile(`^01[3-9][0-9]{8}$`)

// CheckoutLine is one cart entry in a checkout request.
type CheckoutLine struct {
	ProductID string
	Quantity  int
	Size      string
}

// CheckoutRequest holds everything collected from the buyer before checkout.
type CheckoutRequest struct {
	Lines            []CheckoutLine
	Zone             shipping.Zone
	PaymentMethod    PaymentMethod
	PaymentReference string
	VoucherCode      string
	Contact          Contact
	// ExtraColors lists additional color variants beyond the base order. One
	// sibling order is created per entry, all sharing the base order's id as
	// their color group.
	ExtraColors []string
}

// CheckoutResult is returned once every row of the checkout is persisted.
type CheckoutResult struct {
	// Orders holds the persisted rows, base order first.
	Orders      []*Order
	OrderNumber string
	Quote       cart.Quote
}

// Notifier delivers the order confirmation out-of-band. Implementations must
// be fire-and-forget: delivery failures never affect checkout.
type Notifier interface {
	OrderConfirmed(ctx context.Context, o *Order)
}

// Service turns validated checkout requests into persisted orders.
type Service struct {
	products product.Repository
	vouchers *voucher.Service
	orders   Repository
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(
	products product.Repository,
	vouchers *voucher.Service,
	orders Repository,
	notifier Notifier,
) *Service {
	return &Service{
		products: products,
		vouchers: vouchers,
		orders:   orders,
		notifier: notifier,
		now:      time.Now,
	}
}

// Quote prices the checkout request without persisting anything.
func (s *Service) Quote(ctx context.Context, req CheckoutRequest) (cart.Quote, []cart.Line, error) {
	lines, err := s.resolveLines(ctx, req.Lines)
	if err != nil {
		return cart.Quote{}, nil, err
	}

	q, err := s.price(ctx, lines, req.Zone, req.VoucherCode)
	if err != nil {
		return cart.Quote{}, nil, err
	}
	return q, lines, nil
}

// Checkout validates the request, prices the cart, and persists one order per
// unit of sale. With N extra colors it creates N+1 rows sharing one color
// group id; the base row (nil color) is created strictly before the group id
// backfill, and the backfill strictly before any variant row.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	products, problems, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	lines := make([]cart.Line, len(req.Lines))
	for i, cl := range req.Lines {
		p := products[cl.ProductID]
		lines[i] = cart.Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  cl.Quantity,
			Size:      cl.Size,
		}
	}

	quote, err := s.price(ctx, lines, req.Zone, req.VoucherCode)
	if err != nil {
		return nil, err
	}

	orders, err := s.persistFanout(ctx, req, lines, quote)
	if err != nil {
		return nil, err
	}

	if quote.VoucherApplied {
		if err := s.vouchers.MarkUsed(ctx, req.VoucherCode); err != nil {
			// The order is already persisted; the stale counter is logged,
			// not surfaced.
			zctx.From(ctx).Warn("Voucher usage increment failed",
				zap.String("code", req.VoucherCode), zap.Error(err))
		}
	}

	base := orders[0]
	s.notifyAsync(ctx, base)

	return &CheckoutResult{
		Orders:      orders,
		OrderNumber: base.OrderNumber,
		Quote:       quote,
	}, nil
}

// GetByNumber returns a persisted order for tracking.
func (s *Service) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.orders.GetByNumber(ctx, orderNumber)
}

// validate collects every problem in the request. It returns the resolved
// products keyed by id so checkout does not fetch them twice.
func (s *Service) validate(ctx context.Context, req CheckoutRequest) (map[string]product.Product, []string, error) {
	var problems []string

	if len(req.Lines) == 0 {
		problems = append(problems, "cart is empty")
	}

	products := make(map[string]product.Product, len(req.Lines))
	if len(req.Lines) > 0 {
		ids := make([]string, len(req.Lines))
		for i, l := range req.Lines {
			ids[i] = l.ProductID
		}
		fetched, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return nil, nil, errors.Wrap(err, "get products")
		}
		for _, p := range fetched {
			products[p.ID] = p
		}
	}

	for _, l := range req.Lines {
		p, ok := products[l.ProductID]
		if !ok {
			problems = append(problems, fmt.Sprintf("product %s not found", l.ProductID))
			continue
		}
		if l.Quantity <= 0 {
			problems = append(problems, fmt.Sprintf("quantity must be greater than 0 for %s", p.Name))
		}
		if p.RequiresSize() {
			switch {
			case l.Size == "":
				problems = append(problems, fmt.Sprintf("size is required for %s", p.Name))
			case !p.HasSize(l.Size):
				problems = append(problems, fmt.Sprintf("size %q is not available for %s", l.Size, p.Name))
			}
		}
	}

	for _, color := range req.ExtraColors {
		if color == "" {
			problems = append(problems, "color variant must not be blank")
			continue
		}
		if !colorDeclared(products, color) {
			problems = append(problems, fmt.Sprintf("color %q is not available for any item in the cart", color))
		}
	}

	switch req.PaymentMethod {
	case PaymentCOD:
	case PaymentPrepaid:
		if req.PaymentReference == "" {
			problems = append(problems, "payment reference is required for prepaid orders")
		}
	default:
		problems = append(problems, fmt.Sprintf("unsupported payment method %q", req.PaymentMethod))
	}

	if req.Contact.Name == "" {
		problems = append(problems, "contact name is required")
	}
	if !phonePattern.MatchString(req.Contact.Phone) {
		problems = append(problems, "contact phone must be a valid mobile number")
	}
	if req.Contact.AddressLine == "" {
		problems = append(problems, "delivery address is required")
	}
	if req.Contact.Area == "" {
		problems = append(problems, "delivery area is required")
	}

	return products, problems, nil
}

// persistFanout creates the base order, backfills its color group id, then
// creates one sibling per extra color. Already-created rows are deleted when a
// later step fails; if that compensation fails too, the survivors are reported
// in a PartialFanoutError.
func (s *Service) persistFanout(ctx context.Context, req CheckoutRequest, lines []cart.Line, quote cart.Quote) ([]*Order, error) {
	base := s.buildOrder(req, lines, quote)
	if err := s.orders.Create(ctx, base); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	created := []*Order{base}

	if len(req.ExtraColors) == 0 {
		return created, nil
	}

	// The group id is the base order's own id, known only after the insert.
	groupID := base.ID
	if err := s.orders.SetColorGroup(ctx, base.ID, groupID); err != nil {
		return nil, s.compensate(ctx, created, errors.Wrap(err, "backfill color group"))
	}
	base.ColorGroupID = &groupID

	for i, color := range req.ExtraColors {
		variant := s.buildOrder(req, lines, quote)
		variant.OrderNumber = fmt.Sprintf("%s-%d", base.OrderNumber, i+1)
		c := color
		variant.Color = &c
		variant.ColorGroupID = &groupID

		if err := s.orders.Create(ctx, variant); err != nil {
			return nil, s.compensate(ctx, created, errors.Wrapf(err, "create variant %q", color))
		}
		created = append(created, variant)
	}

	return created, nil
}

// compensate deletes rows created by a failed fan-out, newest first. It
// returns cause when compensation succeeds, or a PartialFanoutError listing
// the rows it could not remove.
func (s *Service) compensate(ctx context.Context, created []*Order, cause error) error {
	var surviving []string
	for i := len(created) - 1; i >= 0; i-- {
		if err := s.orders.Delete(ctx, created[i].ID); err != nil {
			surviving = append(surviving, created[i].ID)
			zctx.From(ctx).Error("Fan-out compensation failed",
				zap.String("order_id", created[i].ID), zap.Error(err))
		}
	}
	if len(surviving) > 0 {
		return &PartialFanoutError{SurvivingIDs: surviving, Cause: cause}
	}
	return cause
}

func (s *Service) buildOrder(req CheckoutRequest, lines []cart.Line, quote cart.Quote) *Order {
	id := uuid.New().String()

	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ID:          uuid.New().String(),
			OrderID:     id,
			ProductID:   l.ProductID,
			ProductName: l.Name,
			Size:        l.Size,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.LineTotal(),
		}
	}

	paymentStatus := "unpaid"
	if req.PaymentMethod == PaymentPrepaid {
		paymentStatus = "submitted"
	}

	voucherCode := ""
	if quote.VoucherApplied {
		voucherCode = req.VoucherCode
	}

	return &Order{
		ID:               id,
		OrderNumber:      "BZ-" + shortuuid.New(),
		Status:           StatusPending,
		PaymentMethod:    req.PaymentMethod,
		PaymentStatus:    paymentStatus,
		PaymentReference: req.PaymentReference,
		GrandTotal:       quote.Total,
		ShippingFee:      quote.ShippingFee,
		Discount:         quote.Discount,
		VoucherCode:      voucherCode,
		DeliveryZone:     req.Zone,
		Contact:          req.Contact,
		Items:            items,
		CreatedAt:        s.now(),
	}
}

// notifyAsync triggers the confirmation email without blocking or affecting
// the checkout outcome.
func (s *Service) notifyAsync(ctx context.Context, o *Order) {
	if s.notifier == nil {
		return
	}
	go s.notifier.OrderConfirmed(context.WithoutCancel(ctx), o)
}

// price resolves the voucher code (when present) and prices the cart. An
// unknown code is reflected on the quote as a rejection, not an error.
func (s *Service) price(ctx context.Context, lines []cart.Line, zone shipping.Zone, code string) (cart.Quote, error) {
	var rule *voucher.Rule
	if code != "" {
		var err error
		rule, err = s.vouchers.Lookup(ctx, code)
		if err != nil {
			return cart.Quote{}, err
		}
	}

	q, err := cart.Price(lines, zone, rule, s.now())
	if err != nil {
		return cart.Quote{}, err
	}
	if code != "" && rule == nil {
		q.VoucherReason = "voucher not found"
	}
	return q, nil
}

// resolveLines fetches current catalog prices for the requested lines. Unlike
// checkout validation, an unknown product here is a hard error.
func (s *Service) resolveLines(ctx context.Context, cls []CheckoutLine) ([]cart.Line, error) {
	if len(cls) == 0 {
		return nil, &ValidationError{Problems: []string{"cart is empty"}}
	}

	ids := make([]string, len(cls))
	for i, l := range cls {
		ids[i] = l.ProductID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	lines := make([]cart.Line, len(cls))
	for i, cl := range cls {
		p, ok := byID[cl.ProductID]
		if !ok {
			return nil, errors.Wrapf(product.ErrNotFound, "product %s", cl.ProductID)
		}
		lines[i] = cart.Line{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  cl.Quantity,
			Size:      cl.Size,
		}
	}
	return lines, nil
}

func colorDeclared(products map[string]product.Product, color string) bool {
	declared := false
	for _, p := range products {
		if len(p.Colors) == 0 {
			continue
		}
		declared = true
		for _, c := range p.Colors {
			if c == color {
				return true
			}
		}
	}
	// No product in the cart declares colors at all: accept the buyer input
	// rather than inventing a constraint the catalog does not state.
	return !declared
}
