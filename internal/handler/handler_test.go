package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
	"github.com/shopkit/pricing-engine/internal/domain/coupon"
	"github.com/shopkit/pricing-engine/internal/domain/order"
	"github.com/shopkit/pricing-engine/internal/domain/pricing"
	"github.com/shopkit/pricing-engine/internal/domain/product"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// --- In-memory repositories ---

type memProductRepo struct {
	byID map[string]*product.Product
}

func (m *memProductRepo) List(_ context.Context) ([]product.Product, error) {
	var out []product.Product
	for _, p := range m.byID {
		out = append(out, *p)
	}
	return out, nil
}

func (m *memProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *memProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memCartRepo struct {
	carts  map[string]*cart.Cart
	nextID int64
}

func (m *memCartRepo) GetByToken(_ context.Context, token string) (*cart.Cart, error) {
	c, ok := m.carts[token]
	if !ok {
		return nil, cart.ErrNotFound
	}
	cp := *c
	cp.Items = append([]cart.Item(nil), c.Items...)
	return &cp, nil
}

func (m *memCartRepo) Create(_ context.Context, token string) (*cart.Cart, error) {
	c := &cart.Cart{ID: "cart-" + token, Token: token}
	m.carts[token] = c
	return c, nil
}

func (m *memCartRepo) UpsertItem(_ context.Context, cartID string, item cart.Item) error {
	c := m.byID(cartID)
	if c == nil {
		return cart.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity = item.Quantity
			c.Items[i].UnitPrice = item.UnitPrice
			return nil
		}
	}
	m.nextID++
	item.ID = m.nextID
	c.Items = append(c.Items, item)
	return nil
}

func (m *memCartRepo) UpdateItemQuantity(_ context.Context, cartID string, itemID int64, quantity int, unitPrice decimal.Decimal) error {
	c := m.byID(cartID)
	if c == nil {
		return cart.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Quantity = quantity
			c.Items[i].UnitPrice = unitPrice
			return nil
		}
	}
	return cart.ErrItemNotFound
}

func (m *memCartRepo) DeleteItem(_ context.Context, cartID string, itemID int64) error {
	c := m.byID(cartID)
	if c == nil {
		return cart.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *memCartRepo) byID(cartID string) *cart.Cart {
	for _, c := range m.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

type memCouponStore struct {
	coupons  map[string]*coupon.Coupon
	redeemed []string
}

func (m *memCouponStore) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := m.coupons[strings.ToUpper(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	return c, nil
}

func (m *memCouponStore) Redeem(_ context.Context, code string) error {
	m.redeemed = append(m.redeemed, code)
	return nil
}

type memOrderRepo struct {
	orders []*order.Order
}

func (m *memOrderRepo) Create(_ context.Context, o *order.Order, _ string) error {
	m.orders = append(m.orders, o)
	return nil
}

// --- Fixtures ---

type fixture struct {
	srv     *httptest.Server
	coupons *memCouponStore
	orders  *memOrderRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	products := &memProductRepo{byID: map[string]*product.Product{
		"p1": {ID: "p1", Name: "Espresso Grinder", Price: dec("60.00"), Stock: 10, Active: true},
		"p2": {ID: "p2", Name: "Gooseneck Kettle", Price: dec("40.00"), Stock: 2, Active: true},
	}}
	coupons := &memCouponStore{coupons: map[string]*coupon.Coupon{
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
	carts := &memCartRepo{carts: make(map[string]*cart.Cart)}
	orders := &memOrderRepo{}

	lg := zap.NewNop()
	engine := pricing.NewEngineWithClock(coupons, func() time.Time { return fixedNow })
	cartSvc := cart.NewService(carts, products)
	orderSvc := order.NewService(carts, orders, coupons, engine, nil, decimal.Zero, lg)

	h := New(products, cartSvc, engine, orderSvc, lg)
	mux := http.NewServeMux()
	h.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, coupons: coupons, orders: orders}
}

func (f *fixture) do(t *testing.T, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(CartTokenHeader, token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		// Product list responses are arrays; callers decode those themselves.
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			payload = nil
		}
	}
	return resp, payload
}

// fill puts quantity units of productID into a fresh cart and returns its token.
func (f *fixture) fill(t *testing.T, productID string, quantity int) string {
	t.Helper()

	resp, _ := f.do(t, http.MethodPost, "/api/cart/items", "",
		`{"productId":"`+productID+`","quantity":`+itoa(quantity)+`}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get(CartTokenHeader)
	require.NotEmpty(t, token)
	return token
}

func itoa(v int) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	resp, err := http.Get(f.srv.URL + "/api/products")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var products []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&products))
	assert.Len(t, products, 2)
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)

	t.Run("found", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/api/products/p1", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "p1", payload["id"])
		assert.Equal(t, 60.0, payload["price"])
	})

	t.Run("not found", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/api/products/nope", "", "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "product not found", payload["message"])
	})
}

func TestCartFlow(t *testing.T) {
	f := newFixture(t)

	t.Run("get issues a token", func(t *testing.T) {
		resp, payload := f.do(t, http.MethodGet, "/api/cart", "", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get(CartTokenHeader))
		assert.Empty(t, payload["items"])
	})

	t.Run("add then update then remove", func(t *testing.T) {
		token := f.fill(t, "p1", 2)

		resp, payload := f.do(t, http.MethodGet, "/api/cart", token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		items := payload["items"].([]any)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "p1", item["productId"])
		assert.Equal(t, 120.0, payload["subtotal"])

		itemID := itoa(int(item["id"].(float64)))
		resp, payload = f.do(t, http.MethodPatch, "/api/cart/items/"+itemID, token, `{"quantity":1}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 60.0, payload["subtotal"])

		resp, payload = f.do(t, http.MethodDelete, "/api/cart/items/"+itemID, token, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, payload["items"])
	})

	t.Run("unknown product", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/cart/items", "", `{"productId":"nope","quantity":1}`)
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("insufficient stock", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/cart/items", "", `{"productId":"p2","quantity":5}`)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("zero quantity", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/cart/items", "", `{"productId":"p1","quantity":0}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestValidateCoupon(t *testing.T) {
	f := newFixture(t)

	t.Run("valid coupon reports discounted totals", func(t *testing.T) {
		token := f.fill(t, "p1", 2) // 120.00

		resp, payload := f.do(t, http.MethodPost, "/api/coupons/validate", token, `{"code":"SAVE10"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, true, payload["couponApplied"])
		assert.Equal(t, 120.0, payload["subtotal"])
		assert.Equal(t, 12.0, payload["discount"])
		assert.Equal(t, 108.0, payload["total"])
		assert.Empty(t, f.coupons.redeemed, "validation must not redeem")
	})

	t.Run("below minimum reports reason", func(t *testing.T) {
		token := f.fill(t, "p2", 1) // 40.00, minimum is 50

		resp, payload := f.do(t, http.MethodPost, "/api/coupons/validate", token, `{"code":"SAVE10"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		assert.Equal(t, false, payload["couponApplied"])
		assert.Equal(t, "BELOW_MINIMUM", payload["reason"])
		assert.Equal(t, 40.0, payload["total"])
	})

	t.Run("unknown code reports reason", func(t *testing.T) {
		token := f.fill(t, "p1", 1)

		resp, payload := f.do(t, http.MethodPost, "/api/coupons/validate", token, `{"code":"NOPE"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", payload["reason"])
	})

	t.Run("missing code", func(t *testing.T) {
		resp, _ := f.do(t, http.MethodPost, "/api/coupons/validate", "", `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestPlaceOrder(t *testing.T) {
	t.Run("with coupon", func(t *testing.T) {
		f := newFixture(t)
		token := f.fill(t, "p1", 2) // 120.00

		resp, payload := f.do(t, http.MethodPost, "/api/orders", token,
			`{"guestName":"Ada","couponCode":"SAVE10"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		assert.Equal(t, "pending", payload["status"])
		assert.Equal(t, 120.0, payload["subtotal"])
		assert.Equal(t, 12.0, payload["discount"])
		assert.Equal(t, 108.0, payload["total"])
		assert.Equal(t, true, payload["couponApplied"])
		assert.Equal(t, "SAVE10", payload["couponCode"])

		assert.Equal(t, []string{"SAVE10"}, f.coupons.redeemed)
		require.Len(t, f.orders.orders, 1)
	})

	t.Run("rejected coupon places order at full price", func(t *testing.T) {
		f := newFixture(t)
		token := f.fill(t, "p2", 1) // 40.00, below SAVE10 minimum

		resp, payload := f.do(t, http.MethodPost, "/api/orders", token,
			`{"couponCode":"SAVE10"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		assert.Equal(t, false, payload["couponApplied"])
		assert.Equal(t, "BELOW_MINIMUM", payload["couponReason"])
		assert.Equal(t, 40.0, payload["total"])
		assert.Empty(t, f.coupons.redeemed)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodGet, "/api/cart", "", "")
		token := resp.Header.Get(CartTokenHeader)

		resp, payload := f.do(t, http.MethodPost, "/api/orders", token, `{}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "cart is empty", payload["message"])
	})

	t.Run("unknown cart", func(t *testing.T) {
		f := newFixture(t)

		resp, _ := f.do(t, http.MethodPost, "/api/orders", "no-such-token", `{}`)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
