package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusCancelled Status = "cancelled"
)

// ErrEmptyCart is returned when placing an order from a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrBelowMinimumOrder is returned when the cart subtotal is below the
// store-wide minimum order amount.
var ErrBelowMinimumOrder = errors.New("minimum order amount not met")

// Item is a single priced line of a completed order.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Order is a completed customer order with its pricing breakdown. Guest
// fields identify customers without accounts; CouponCode is empty when no
// coupon was applied.
type Order struct {
	ID         string
	Status     Status
	GuestName  string
	GuestEmail string
	CouponCode string
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	Items      []Item
	CreatedAt  time.Time
}

// Repository defines persistence for orders. Create must run as a single
// transaction covering the stock check and decrement, the order insert, and
// checking out the source cart — partial writes would leave stock and orders
// inconsistent.
type Repository interface {
	Create(ctx context.Context, o *Order, cartID string) error
}
