package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the eligible subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFlat takes a fixed amount off, capped at the eligible subtotal.
	DiscountFlat DiscountType = "flat"
)

// Rejection errors. Each maps to exactly one user-facing reason; the pricing
// engine reports them to the caller instead of failing the order.
var (
	// ErrNotFound is returned when no coupon exists for the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrDisabled is returned when the coupon's enabled flag is off.
	ErrDisabled = errors.New("coupon disabled")
	// ErrNotStarted is returned when the coupon's validity window has not opened yet.
	ErrNotStarted = errors.New("coupon not started")
	// ErrExpired is returned when the coupon's validity window has closed.
	ErrExpired = errors.New("coupon expired")
	// ErrLimitReached is returned when the coupon has exhausted its redemptions.
	ErrLimitReached = errors.New("coupon usage limit reached")
	// ErrBelowMinimum is returned when the eligible subtotal is below the
	// coupon's minimum cart value.
	ErrBelowMinimum = errors.New("cart below coupon minimum")
)

// Coupon is a named discount rule with eligibility constraints. Codes are
// unique and matched case-insensitively. An empty Products list means the
// coupon applies to every product in the cart.
type Coupon struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	StartAt      time.Time
	EndAt        time.Time
	MinCartValue decimal.Decimal
	UsageLimit   *int
	TimesUsed    int
	Products     []string
	Enabled      bool
}

// Store provides lookup and redemption of coupons.
type Store interface {
	// FindByCode looks up a coupon by code, case-insensitively.
	// Returns ErrNotFound when no coupon exists for the code.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// Redeem atomically increments the coupon's usage count, but only while
	// the count is still below the usage limit. Returns ErrLimitReached when
	// the guard fails, which happens when concurrent orders race past the
	// check in Validate. Called exactly once per durably persisted order.
	Redeem(ctx context.Context, code string) error
}
