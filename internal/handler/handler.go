// Package handler exposes the REST API. Requests and responses are encoded
// with go-faster/jx; routing uses net/http method patterns.
package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
	"github.com/shopkit/pricing-engine/internal/domain/order"
	"github.com/shopkit/pricing-engine/internal/domain/pricing"
	"github.com/shopkit/pricing-engine/internal/domain/product"
)

// CartTokenHeader carries the guest cart token. The server issues a token on
// first contact and the client echoes it on every subsequent request.
const CartTokenHeader = "X-Cart-Token"

// maxBodyBytes bounds request bodies; all API payloads are small.
const maxBodyBytes = 1 << 20

// Handler serves the REST API, delegating business logic to the domain
// services.
type Handler struct {
	products product.Repository
	carts    *cart.Service
	engine   *pricing.Engine
	orders   *order.Service
	lg       *zap.Logger
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	carts *cart.Service,
	engine *pricing.Engine,
	orders *order.Service,
	lg *zap.Logger,
) *Handler {
	return &Handler{
		products: products,
		carts:    carts,
		engine:   engine,
		orders:   orders,
		lg:       lg,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", h.GetProduct)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{id}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveCartItem)

	mux.HandleFunc("POST /api/coupons/validate", h.ValidateCoupon)
	mux.HandleFunc("POST /api/orders", h.PlaceOrder)
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
}

// respond writes a JSON response built by fn.
func (h *Handler) respond(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := &jx.Encoder{}
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(e.Bytes()); err != nil {
		h.lg.Debug("write response", zap.Error(err))
	}
}

// respondError writes the standard error envelope {code, message}.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respond(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("code")
		e.Int(status)
		e.FieldStart("message")
		e.Str(message)
		e.ObjEnd()
	})
}

// respondInternal logs the error and writes an opaque 500.
func (h *Handler) respondInternal(w http.ResponseWriter, err error) {
	h.lg.Error("internal error", zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, "internal server error")
}

// encodeDecimal writes a decimal as a JSON number with 2 fraction digits.
func encodeDecimal(e *jx.Encoder, d decimal.Decimal) {
	e.Raw([]byte(d.StringFixed(2)))
}
