// Package pricing implements the order pricing pipeline: given a cart
// snapshot and an optional coupon code, it produces a validated final total.
// A rejected coupon never fails the pipeline; the order proceeds at full
// price and the rejection reason travels back to the caller for messaging.
package pricing

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
	"github.com/shopkit/pricing-engine/internal/domain/coupon"
)

// RejectReason identifies why a coupon was not applied.
type RejectReason string

const (
	ReasonNotFound     RejectReason = "NOT_FOUND"
	ReasonDisabled     RejectReason = "DISABLED"
	ReasonNotStarted   RejectReason = "NOT_STARTED"
	ReasonExpired      RejectReason = "EXPIRED"
	ReasonLimitReached RejectReason = "LIMIT_REACHED"
	ReasonBelowMinimum RejectReason = "BELOW_MINIMUM"
)

// reasonFor maps coupon rejection errors to their reasons. Unlisted errors
// are infrastructure failures and propagate as real errors.
func reasonFor(err error) (RejectReason, bool) {
	switch {
	case errors.Is(err, coupon.ErrNotFound):
		return ReasonNotFound, true
	case errors.Is(err, coupon.ErrDisabled):
		return ReasonDisabled, true
	case errors.Is(err, coupon.ErrNotStarted):
		return ReasonNotStarted, true
	case errors.Is(err, coupon.ErrExpired):
		return ReasonExpired, true
	case errors.Is(err, coupon.ErrLimitReached):
		return ReasonLimitReached, true
	case errors.Is(err, coupon.ErrBelowMinimum):
		return ReasonBelowMinimum, true
	}
	return "", false
}

// Result is the outcome of pricing one cart. Total always equals
// Subtotal - Discount and never goes negative. When CouponApplied is false
// and a code was given, Reason explains the rejection.
type Result struct {
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	CouponApplied bool
	CouponCode    string
	Reason        RejectReason
}

// Engine prices carts. It is stateless and idempotent given identical inputs
// and clock readings; the only I/O is the coupon lookup.
type Engine struct {
	coupons coupon.Store
	now     func() time.Time
}

// NewEngine creates an Engine backed by the given coupon store.
func NewEngine(store coupon.Store) *Engine {
	return &Engine{coupons: store, now: time.Now}
}

// NewEngineWithClock creates an Engine with an injected clock, for tests and
// for callers that need deterministic validity-window evaluation.
func NewEngineWithClock(store coupon.Store, now func() time.Time) *Engine {
	return &Engine{coupons: store, now: now}
}

// Price computes the final total for the cart. Coupon redemption (the usage
// increment) is deliberately not done here: the order workflow redeems
// exactly once after the order is durably persisted.
func (e *Engine) Price(ctx context.Context, snap cart.Snapshot, couponCode string) (Result, error) {
	subtotal := snap.Subtotal()

	res := Result{
		Subtotal: subtotal,
		Discount: decimal.Zero,
		Total:    subtotal,
	}

	code := strings.TrimSpace(couponCode)
	if code == "" {
		return res, nil
	}
	res.CouponCode = code

	c, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if reason, ok := reasonFor(err); ok {
			res.Reason = reason
			return res, nil
		}
		return Result{}, errors.Wrap(err, "lookup coupon")
	}

	if err := coupon.Validate(c, snap, e.now()); err != nil {
		reason, ok := reasonFor(err)
		if !ok {
			return Result{}, errors.Wrap(err, "validate coupon")
		}
		res.Reason = reason
		return res, nil
	}

	discount := coupon.Discount(c, snap)
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	res.Discount = discount
	res.Total = total.Round(2)
	res.CouponApplied = true
	res.CouponCode = c.Code
	return res, nil
}
