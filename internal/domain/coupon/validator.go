package coupon

import (
	"time"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
)

// Validate checks whether the coupon may be applied to the cart as of the
// given instant. Checks run in a fixed order and the first failure wins:
// enabled flag, validity window, usage limit, minimum cart value. The
// minimum is checked against the eligible (matching) subtotal, so a coupon
// restricted to products absent from the cart fails its minimum rather than
// silently discounting nothing.
//
// Validate is pure: it never mutates the coupon and performs no I/O.
func Validate(c *Coupon, snap cart.Snapshot, asOf time.Time) error {
	if !c.Enabled {
		return ErrDisabled
	}

	// The window is inclusive at both ends.
	if asOf.Before(c.StartAt) {
		return ErrNotStarted
	}
	if asOf.After(c.EndAt) {
		return ErrExpired
	}

	if c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit {
		return ErrLimitReached
	}

	if c.MinCartValue.IsPositive() {
		if snap.MatchingSubtotal(c.Products).LessThan(c.MinCartValue) {
			return ErrBelowMinimum
		}
	}

	return nil
}
