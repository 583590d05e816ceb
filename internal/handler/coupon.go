package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/shopkit/pricing-engine/internal/domain/pricing"
)

// ValidateCoupon dry-runs the pricing pipeline for the client's cart against
// a coupon code. It never redeems the coupon; the response reports the
// would-be totals and a rejection reason if any.
func (h *Handler) ValidateCoupon(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var code string
	d := jx.DecodeBytes(body)
	decodeErr := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		if key == "code" {
			code, err = d.Str()
			return err
		}
		return d.Skip()
	})
	if decodeErr != nil || code == "" {
		h.respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	c, err := h.carts.GetOrCreate(r.Context(), r.Header.Get(CartTokenHeader))
	if err != nil {
		h.respondInternal(w, errors.Wrap(err, "get cart"))
		return
	}

	res, err := h.engine.Price(r.Context(), c.Snapshot(), code)
	if err != nil {
		h.respondInternal(w, errors.Wrap(err, "price cart"))
		return
	}

	w.Header().Set(CartTokenHeader, c.Token)
	h.respond(w, http.StatusOK, func(e *jx.Encoder) {
		encodePricingResult(e, res)
	})
}

func encodePricingResult(e *jx.Encoder, res pricing.Result) {
	e.ObjStart()
	e.FieldStart("code")
	e.Str(res.CouponCode)
	e.FieldStart("subtotal")
	encodeDecimal(e, res.Subtotal)
	e.FieldStart("discount")
	encodeDecimal(e, res.Discount)
	e.FieldStart("total")
	encodeDecimal(e, res.Total)
	e.FieldStart("couponApplied")
	e.Bool(res.CouponApplied)
	if res.Reason != "" {
		e.FieldStart("reason")
		e.Str(string(res.Reason))
	}
	e.ObjEnd()
}
