package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bazarly/storefront/internal/domain/product"
	"github.com/bazarly/storefront/internal/domain/shipping"
	"github.com/bazarly/storefront/internal/domain/voucher"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]product.Product
	err  error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockVoucherRepo struct {
	rule  *Rule
	uses  int
	codes []string
}

// Rule aliases voucher.Rule locally so the mock stays short.
type Rule = voucher.Rule

func (m *mockVoucherRepo) FindByCode(_ context.Context, _ string) (*voucher.Rule, error) {
	if m.rule == nil {
		return nil, voucher.ErrNotFound
	}
	return m.rule, nil
}

func (m *mockVoucherRepo) IncrementUses(_ context.Context, code string) error {
	m.uses++
	m.codes = append(m.codes, code)
	return nil
}

type mockOrderRepo struct {
	created      []*Order
	deleted      []string
	groupCalls   []string
	createErrOn  int // fail the nth Create call (1-based), 0 = never
	groupErr     error
	deleteErr    error
	createCalls  int
	orderByNum   map[string]*Order
	groupBackful map[string]string
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.createCalls++
	if m.createErrOn > 0 && m.createCalls == m.createErrOn {
		return errors.New("insert failed")
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) SetColorGroup(_ context.Context, orderID, groupID string) error {
	if m.groupErr != nil {
		return m.groupErr
	}
	if m.groupBackful == nil {
		m.groupBackful = make(map[string]string)
	}
	m.groupBackful[orderID] = groupID
	m.groupCalls = append(m.groupCalls, orderID)
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, orderID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, orderID)
	return nil
}

func (m *mockOrderRepo) GetByNumber(_ context.Context, orderNumber string) (*Order, error) {
	o, ok := m.orderByNum[orderNumber]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

type mockNotifier struct {
	mu     sync.Mutex
	orders []*Order
	done   chan struct{}
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{done: make(chan struct{}, 8)}
}

func (m *mockNotifier) OrderConfirmed(_ context.Context, o *Order) {
	m.mu.Lock()
	m.orders = append(m.orders, o)
	m.mu.Unlock()
	m.done <- struct{}{}
}

func (m *mockNotifier) wait(t *testing.T) *Order {
	t.Helper()
	select {
	case <-m.done:
	case <-time.After(time.Second):
		t.Fatal("notification never delivered")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[len(m.orders)-1]
}

// --- Helpers ---

var fixedNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func testProducts() *mockProductRepo {
	return &mockProductRepo{byID: map[string]product.Product{
		"tee-01": {
			ID:     "tee-01",
			Name:   "Premium Tee",
			Price:  decimal.NewFromInt(750),
			Sizes:  []string{"M", "L", "XL"},
			Colors: []string{"Black", "Red", "Navy"},
		},
		"mug-01": {
			ID:    "mug-01",
			Name:  "Ceramic Mug",
			Price: decimal.NewFromInt(300),
		},
	}}
}

func validContact() Contact {
	return Contact{
		Name:        "Rahim Uddin",
		Phone:       "01712345678",
		AddressLine: "House 12, Road 5, Dhanmondi",
		Area:        "Dhaka",
	}
}

func newTestService(products *mockProductRepo, vRepo *mockVoucherRepo, orders *mockOrderRepo, n Notifier) *Service {
	svc := NewService(products, voucher.NewService(vRepo), orders, n)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// --- Tests ---

func TestCheckout_SimpleOrder(t *testing.T) {
	orders := &mockOrderRepo{}
	notifier := newMockNotifier()
	svc := newTestService(testProducts(), &mockVoucherRepo{}, orders, notifier)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "mug-01", Quantity: 2}},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		Contact:       validContact(),
	})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)

	o := res.Orders[0]
	assert.True(t, decimal.NewFromInt(660).Equal(o.GrandTotal), "600 + 60 shipping, got %s", o.GrandTotal)
	assert.Equal(t, StatusPending, o.Status)
	assert.Nil(t, o.Color)
	assert.Nil(t, o.ColorGroupID)
	require.Len(t, o.Items, 1)
	assert.True(t, decimal.NewFromInt(600).Equal(o.Items[0].TotalPrice))
	assert.NotEmpty(t, res.OrderNumber)

	notified := notifier.wait(t)
	assert.Equal(t, o.ID, notified.ID)
}

func TestCheckout_VoucherAppliedAndCounted(t *testing.T) {
	vRepo := &mockVoucherRepo{rule: &Rule{
		Code:        "SAVE10",
		Type:        voucher.DiscountPercentage,
		Value:       decimal.NewFromInt(10),
		MinPurchase: decimal.NewFromInt(1000),
		Active:      true,
	}}
	orders := &mockOrderRepo{}
	svc := newTestService(testProducts(), vRepo, orders, nil)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "tee-01", Quantity: 2, Size: "L"}},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		VoucherCode:   "SAVE10",
		Contact:       validContact(),
	})
	require.NoError(t, err)

	// subtotal 1500, discount 150, shipping 60.
	assert.True(t, decimal.NewFromInt(150).Equal(res.Quote.Discount))
	assert.True(t, decimal.NewFromInt(1410).Equal(res.Quote.Total))
	assert.Equal(t, "SAVE10", res.Orders[0].VoucherCode)
	assert.Equal(t, 1, vRepo.uses, "usage counted exactly once per checkout")
}

func TestCheckout_RejectedVoucherStillPlacesOrder(t *testing.T) {
	vRepo := &mockVoucherRepo{rule: &Rule{
		Code:        "SAVE10",
		Type:        voucher.DiscountPercentage,
		Value:       decimal.NewFromInt(10),
		MinPurchase: decimal.NewFromInt(1000),
		Active:      true,
	}}
	orders := &mockOrderRepo{}
	svc := newTestService(testProducts(), vRepo, orders, nil)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "mug-01", Quantity: 1}},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		VoucherCode:   "SAVE10",
		Contact:       validContact(),
	})
	require.NoError(t, err)

	assert.False(t, res.Quote.VoucherApplied)
	assert.True(t, res.Quote.Discount.IsZero())
	assert.Empty(t, res.Orders[0].VoucherCode)
	assert.Equal(t, 0, vRepo.uses, "rejected voucher must not be counted")
}

func TestCheckout_ValidationCollectsAllProblems(t *testing.T) {
	svc := newTestService(testProducts(), &mockVoucherRepo{}, &mockOrderRepo{}, nil)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines: []CheckoutLine{
			{ProductID: "tee-01", Quantity: 0},     // missing size AND bad quantity
			{ProductID: "ghost-99", Quantity: 1},   // unknown product
		},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentPrepaid, // missing reference
		Contact: Contact{
			Name:  "",            // missing name
			Phone: "12345",       // bad phone
			// missing address line
		},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.GreaterOrEqual(t, len(vErr.Problems), 6)
	assert.Contains(t, vErr.Problems, "size is required for Premium Tee")
	assert.Contains(t, vErr.Problems, "product ghost-99 not found")
	assert.Contains(t, vErr.Problems, "payment reference is required for prepaid orders")
	assert.Contains(t, vErr.Problems, "contact phone must be a valid mobile number")
	assert.Contains(t, vErr.Problems, "contact name is required")
	assert.Contains(t, vErr.Problems, "delivery address is required")
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := newTestService(testProducts(), &mockVoucherRepo{}, &mockOrderRepo{}, nil)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		Contact:       validContact(),
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Problems, "cart is empty")
}

func TestCheckout_InvalidZoneCreatesNothing(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(testProducts(), &mockVoucherRepo{}, orders, nil)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "mug-01", Quantity: 1}},
		Zone:          shipping.Zone("foreign"),
		PaymentMethod: PaymentCOD,
		Contact:       validContact(),
	})

	require.ErrorIs(t, err, shipping.ErrInvalidZone)
	assert.Empty(t, orders.created, "no order may be created for an invalid zone")
}

func TestCheckout_ColorVariantFanout(t *testing.T) {
	orders := &mockOrderRepo{}
	svc := newTestService(testProducts(), &mockVoucherRepo{}, orders, nil)

	res, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "tee-01", Quantity: 1, Size: "M"}},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		Contact:       validContact(),
		ExtraColors:   []string{"Black", "Red"},
	})
	require.NoError(t, err)

	// 2 extra colors -> 3 rows: 1 base + 2 variants.
	require.Len(t, res.Orders, 3)

	base := res.Orders[0]
	assert.Nil(t, base.Color, "exactly the base order has nil color")
	require.NotNil(t, base.ColorGroupID)
	assert.Equal(t, base.ID, *base.ColorGroupID, "group id equals the base order's own id")

	for i, variant := range res.Orders[1:] {
		require.NotNil(t, variant.Color)
		require.NotNil(t, variant.ColorGroupID)
		assert.Equal(t, base.ID, *variant.ColorGroupID)
		assert.Equal(t, []string{"Black", "Red"}[i], *variant.Color)
	}

	// Base insert happened before the backfill, backfill before variants.
	require.Len(t, orders.groupCalls, 1)
	assert.Equal(t, base.ID, orders.groupCalls[0])
	assert.Equal(t, base.ID, orders.created[0].ID)
}

func TestCheckout_FanoutVariantFailureCompensates(t *testing.T) {
	orders := &mockOrderRepo{createErrOn: 3} // base + variant1 ok, variant2 fails
	svc := newTestService(testProducts(), &mockVoucherRepo{}, orders, nil)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "tee-01", Quantity: 1, Size: "M"}},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		Contact:       validContact(),
		ExtraColors:   []string{"Black", "Red"},
	})

	require.Error(t, err)
	var pfErr *PartialFanoutError
	assert.False(t, errors.As(err, &pfErr), "compensated failure is not partial")
	assert.Len(t, orders.deleted, 2, "base and first variant deleted")
}

func TestCheckout_FanoutCompensationFailureIsPartial(t *testing.T) {
	orders := &mockOrderRepo{createErrOn: 2, deleteErr: errors.New("delete refused")}
	svc := newTestService(testProducts(), &mockVoucherRepo{}, orders, nil)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "tee-01", Quantity: 1, Size: "M"}},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		Contact:       validContact(),
		ExtraColors:   []string{"Black"},
	})

	var pfErr *PartialFanoutError
	require.ErrorAs(t, err, &pfErr)
	assert.Len(t, pfErr.SurvivingIDs, 1)
}

func TestCheckout_UndeclaredColorRejected(t *testing.T) {
	svc := newTestService(testProducts(), &mockVoucherRepo{}, &mockOrderRepo{}, nil)

	_, err := svc.Checkout(context.Background(), CheckoutRequest{
		Lines:         []CheckoutLine{{ProductID: "tee-01", Quantity: 1, Size: "M"}},
		Zone:          shipping.ZoneInside,
		PaymentMethod: PaymentCOD,
		Contact:       validContact(),
		ExtraColors:   []string{"Chartreuse"},
	})

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Problems, `color "Chartreuse" is not available for any item in the cart`)
}

func TestQuote_UnknownVoucherReported(t *testing.T) {
	svc := newTestService(testProducts(), &mockVoucherRepo{}, &mockOrderRepo{}, nil)

	q, _, err := svc.Quote(context.Background(), CheckoutRequest{
		Lines:       []CheckoutLine{{ProductID: "mug-01", Quantity: 1}},
		Zone:        shipping.ZoneInside,
		VoucherCode: "BOGUS",
	})
	require.NoError(t, err)
	assert.False(t, q.VoucherApplied)
	assert.Equal(t, "voucher not found", q.VoucherReason)
}

func TestGetByNumber(t *testing.T) {
	want := &Order{ID: "o1", OrderNumber: "BZ-abc"}
	orders := &mockOrderRepo{orderByNum: map[string]*Order{"BZ-abc": want}}
	svc := newTestService(testProducts(), &mockVoucherRepo{}, orders, nil)

	got, err := svc.GetByNumber(context.Background(), "BZ-abc")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = svc.GetByNumber(context.Background(), "BZ-missing")
	require.ErrorIs(t, err, ErrNotFound)
}
