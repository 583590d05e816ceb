package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
)

var hundred = decimal.NewFromInt(100)

// Discount calculates the discount amount for the coupon against the cart.
// Only lines matching the coupon's product restriction contribute; with no
// restriction the whole cart is eligible. Percentage discounts are rounded
// half-up to 2 decimal places; flat discounts are capped at the eligible
// subtotal. The result is always in [0, matching subtotal].
func Discount(c *Coupon, snap cart.Snapshot) decimal.Decimal {
	matching := snap.MatchingSubtotal(c.Products)

	var amount decimal.Decimal
	switch c.DiscountType {
	case DiscountPercentage:
		amount = matching.Mul(c.Value).Div(hundred).Round(2)
	case DiscountFlat:
		amount = decimal.Min(c.Value, matching).Round(2)
	default:
		return decimal.Zero
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(matching) {
		return matching
	}
	return amount
}
