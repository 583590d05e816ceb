package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
	"github.com/shopkit/pricing-engine/internal/domain/coupon"
	"github.com/shopkit/pricing-engine/internal/domain/pricing"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- Mock implementations ---

type mockCartRepo struct {
	cart *cart.Cart
	err  error
}

func (m *mockCartRepo) GetByToken(_ context.Context, _ string) (*cart.Cart, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cart, nil
}

func (m *mockCartRepo) Create(_ context.Context, _ string) (*cart.Cart, error) {
	return nil, errors.New("not implemented")
}

func (m *mockCartRepo) UpsertItem(_ context.Context, _ string, _ cart.Item) error {
	return errors.New("not implemented")
}

func (m *mockCartRepo) UpdateItemQuantity(_ context.Context, _ string, _ int64, _ int, _ decimal.Decimal) error {
	return errors.New("not implemented")
}

func (m *mockCartRepo) DeleteItem(_ context.Context, _ string, _ int64) error {
	return errors.New("not implemented")
}

type mockOrderRepo struct {
	lastOrder  *Order
	lastCartID string
	err        error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, cartID string) error {
	if m.err != nil {
		return m.err
	}
	m.lastOrder = o
	m.lastCartID = cartID
	return nil
}

type mockCouponStore struct {
	coupons   map[string]*coupon.Coupon
	redeemed  []string
	redeemErr error
}

func (m *mockCouponStore) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (m *mockCouponStore) Redeem(_ context.Context, code string) error {
	if m.redeemErr != nil {
		return m.redeemErr
	}
	m.redeemed = append(m.redeemed, code)
	return nil
}

func testCart() *cart.Cart {
	return &cart.Cart{
		ID:    "cart-1",
		Token: "tok-1",
		Items: []cart.Item{
			{ID: 1, ProductID: "p1", Quantity: 2, UnitPrice: dec("40.00")},
			{ID: 2, ProductID: "p2", Quantity: 1, UnitPrice: dec("20.00")},
		},
	}
}

func testCoupons() *mockCouponStore {
	return &mockCouponStore{coupons: map[string]*coupon.Coupon{
		"SAVE10": {
			Code:         "SAVE10",
			DiscountType: coupon.DiscountPercentage,
			Value:        decimal.NewFromInt(10),
			StartAt:      fixedNow.AddDate(0, -1, 0),
			EndAt:        fixedNow.AddDate(0, 1, 0),
			MinCartValue: decimal.NewFromInt(50),
			Enabled:      true,
		},
	}}
}

func newTestService(carts *mockCartRepo, orders *mockOrderRepo, coupons *mockCouponStore, minOrder decimal.Decimal) *Service {
	engine := pricing.NewEngineWithClock(coupons, func() time.Time { return fixedNow })
	return NewService(carts, orders, coupons, engine, nil, minOrder, zap.NewNop())
}

func TestPlaceOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("applies coupon and redeems once", func(t *testing.T) {
		orders := &mockOrderRepo{}
		coupons := testCoupons()
		svc := newTestService(&mockCartRepo{cart: testCart()}, orders, coupons, decimal.Zero)

		res, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
			CartToken:  "tok-1",
			GuestName:  "Ada",
			CouponCode: "SAVE10",
		})
		require.NoError(t, err)

		require.NotNil(t, res.Order)
		assert.Equal(t, StatusPending, res.Order.Status)
		assert.True(t, dec("100.00").Equal(res.Order.Subtotal))
		assert.True(t, dec("10.00").Equal(res.Order.Discount))
		assert.True(t, dec("90.00").Equal(res.Order.Total))
		assert.Equal(t, "SAVE10", res.Order.CouponCode)
		assert.True(t, res.Pricing.CouponApplied)

		assert.Equal(t, []string{"SAVE10"}, coupons.redeemed)
		assert.Equal(t, "cart-1", orders.lastCartID)
		require.Len(t, orders.lastOrder.Items, 2)
		assert.True(t, dec("80.00").Equal(orders.lastOrder.Items[0].LineTotal))
	})

	t.Run("rejected coupon still places the order at full price", func(t *testing.T) {
		orders := &mockOrderRepo{}
		coupons := testCoupons()
		svc := newTestService(&mockCartRepo{cart: testCart()}, orders, coupons, decimal.Zero)

		res, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
			CartToken:  "tok-1",
			CouponCode: "NOPE",
		})
		require.NoError(t, err)

		assert.True(t, dec("100.00").Equal(res.Order.Total))
		assert.Empty(t, res.Order.CouponCode)
		assert.False(t, res.Pricing.CouponApplied)
		assert.Equal(t, pricing.ReasonNotFound, res.Pricing.Reason)
		assert.Empty(t, coupons.redeemed)
	})

	t.Run("no coupon", func(t *testing.T) {
		orders := &mockOrderRepo{}
		coupons := testCoupons()
		svc := newTestService(&mockCartRepo{cart: testCart()}, orders, coupons, decimal.Zero)

		res, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartToken: "tok-1"})
		require.NoError(t, err)

		assert.True(t, dec("100.00").Equal(res.Order.Total))
		assert.True(t, res.Order.Discount.IsZero())
		assert.Empty(t, coupons.redeemed)
	})

	t.Run("empty cart", func(t *testing.T) {
		empty := &cart.Cart{ID: "cart-2", Token: "tok-2"}
		svc := newTestService(&mockCartRepo{cart: empty}, &mockOrderRepo{}, testCoupons(), decimal.Zero)

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartToken: "tok-2"})
		assert.ErrorIs(t, err, ErrEmptyCart)
	})

	t.Run("unknown cart token", func(t *testing.T) {
		svc := newTestService(&mockCartRepo{err: cart.ErrNotFound}, &mockOrderRepo{}, testCoupons(), decimal.Zero)

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartToken: "missing"})
		assert.ErrorIs(t, err, cart.ErrNotFound)
	})

	t.Run("below store minimum", func(t *testing.T) {
		svc := newTestService(&mockCartRepo{cart: testCart()}, &mockOrderRepo{}, testCoupons(), decimal.NewFromInt(500))

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{CartToken: "tok-1"})
		assert.ErrorIs(t, err, ErrBelowMinimumOrder)
	})

	t.Run("persist failure does not redeem", func(t *testing.T) {
		orders := &mockOrderRepo{err: errors.New("constraint violation")}
		coupons := testCoupons()
		svc := newTestService(&mockCartRepo{cart: testCart()}, orders, coupons, decimal.Zero)

		_, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
			CartToken:  "tok-1",
			CouponCode: "SAVE10",
		})
		require.Error(t, err)
		assert.Empty(t, coupons.redeemed)
	})

	t.Run("redeem failure after commit does not fail the order", func(t *testing.T) {
		orders := &mockOrderRepo{}
		coupons := testCoupons()
		coupons.redeemErr = errors.New("limit hit concurrently")
		svc := newTestService(&mockCartRepo{cart: testCart()}, orders, coupons, decimal.Zero)

		res, err := svc.PlaceOrder(ctx, PlaceOrderRequest{
			CartToken:  "tok-1",
			CouponCode: "SAVE10",
		})
		require.NoError(t, err)
		assert.True(t, dec("90.00").Equal(res.Order.Total))
	})
}
