package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
	"github.com/shopkit/pricing-engine/internal/domain/order"
	"github.com/shopkit/pricing-engine/internal/domain/product"
)

type placeOrderRequest struct {
	GuestName  string
	GuestEmail string
	CouponCode string
}

func decodePlaceOrderRequest(body []byte) (placeOrderRequest, error) {
	var req placeOrderRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "guestName":
			req.GuestName, err = d.Str()
		case "guestEmail":
			req.GuestEmail, err = d.Str()
		case "couponCode":
			req.CouponCode, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return req, err
}

// PlaceOrder converts the client's cart into an order. A rejected coupon
// does not fail the request: the order is placed at full price and the
// rejection reason is reported in the response body.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, err := decodePlaceOrderRequest(body)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		CartToken:  r.Header.Get(CartTokenHeader),
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		h.respondOrderError(w, err)
		return
	}

	h.respond(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeOrder(e, result)
	})
}

func (h *Handler) respondOrderError(w http.ResponseWriter, err error) {
	var stockErr *product.InsufficientStockError
	switch {
	case errors.Is(err, cart.ErrNotFound):
		h.respondError(w, http.StatusNotFound, "cart not found")
	case errors.Is(err, order.ErrEmptyCart):
		h.respondError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, order.ErrBelowMinimumOrder):
		h.respondError(w, http.StatusBadRequest, "minimum order amount not met")
	case errors.Is(err, product.ErrNotFound):
		h.respondError(w, http.StatusUnprocessableEntity, "product not found")
	case errors.As(err, &stockErr):
		h.respondError(w, http.StatusConflict, stockErr.Error())
	default:
		h.respondInternal(w, err)
	}
}

func encodeOrder(e *jx.Encoder, result *order.PlaceOrderResult) {
	o := result.Order

	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("subtotal")
	encodeDecimal(e, o.Subtotal)
	e.FieldStart("discount")
	encodeDecimal(e, o.Discount)
	e.FieldStart("total")
	encodeDecimal(e, o.Total)
	e.FieldStart("couponApplied")
	e.Bool(result.Pricing.CouponApplied)
	if o.CouponCode != "" {
		e.FieldStart("couponCode")
		e.Str(o.CouponCode)
	}
	if result.Pricing.Reason != "" {
		e.FieldStart("couponReason")
		e.Str(string(result.Pricing.Reason))
	}
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("unitPrice")
		encodeDecimal(e, it.UnitPrice)
		e.FieldStart("lineTotal")
		encodeDecimal(e, it.LineTotal)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}
