package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
	"github.com/shopkit/pricing-engine/internal/domain/coupon"
	"github.com/shopkit/pricing-engine/internal/domain/pricing"
	"github.com/shopkit/pricing-engine/internal/notify"
)

// PlaceOrderRequest holds the input for placing an order from a cart.
type PlaceOrderRequest struct {
	CartToken  string
	GuestName  string
	GuestEmail string
	CouponCode string
}

// PlaceOrderResult pairs the persisted order with the pricing outcome, so
// callers can surface a coupon rejection alongside the successful order.
type PlaceOrderResult struct {
	Order   *Order
	Pricing pricing.Result
}

// Service encapsulates order placement.
type Service struct {
	carts    cart.Repository
	orders   Repository
	coupons  coupon.Store
	engine   *pricing.Engine
	notifier notify.Sender
	minOrder decimal.Decimal
	lg       *zap.Logger
}

// NewService creates an order Service. notifier may be nil to disable
// confirmation emails; minOrder of zero disables the store-wide minimum.
func NewService(
	carts cart.Repository,
	orders Repository,
	coupons coupon.Store,
	engine *pricing.Engine,
	notifier notify.Sender,
	minOrder decimal.Decimal,
	lg *zap.Logger,
) *Service {
	return &Service{
		carts:    carts,
		orders:   orders,
		coupons:  coupons,
		engine:   engine,
		notifier: notifier,
		minOrder: minOrder,
		lg:       lg,
	}
}

// PlaceOrder prices the cart, persists the order transactionally, redeems
// the coupon after commit, and fires the confirmation email. A rejected
// coupon does not block the order: it is reported in the result and the
// customer pays full price.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	c, err := s.carts.GetByToken(ctx, req.CartToken)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, ErrEmptyCart
	}

	snap := c.Snapshot()
	if s.minOrder.IsPositive() && snap.Subtotal().LessThan(s.minOrder) {
		return nil, ErrBelowMinimumOrder
	}

	priced, err := s.engine.Price(ctx, snap, req.CouponCode)
	if err != nil {
		return nil, errors.Wrap(err, "price order")
	}

	o := &Order{
		ID:         uuid.New().String(),
		Status:     StatusPending,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		Subtotal:   priced.Subtotal,
		Discount:   priced.Discount,
		Total:      priced.Total,
		Items:      buildItems(snap),
	}
	if priced.CouponApplied {
		o.CouponCode = priced.CouponCode
	}

	if err := s.orders.Create(ctx, o, c.ID); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	// Redemption happens after the order is durable so a retry of a failed
	// insert cannot double-count. Losing the redemption race near the usage
	// limit leaves the discount in place; the order stands either way.
	if priced.CouponApplied {
		if err := s.coupons.Redeem(ctx, o.CouponCode); err != nil {
			s.lg.Warn("coupon redemption failed after order commit",
				zap.String("order_id", o.ID),
				zap.String("coupon_code", o.CouponCode),
				zap.Error(err),
			)
		}
	}

	if s.notifier != nil && o.GuestEmail != "" {
		notify.SendOrderConfirmation(ctx, s.notifier, s.lg, confirmationFor(o))
	}

	return &PlaceOrderResult{Order: o, Pricing: priced}, nil
}

func buildItems(snap cart.Snapshot) []Item {
	lines := snap.Lines()
	items := make([]Item, len(lines))
	for i, l := range lines {
		items[i] = Item{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.Total().Round(2),
		}
	}
	return items
}

func confirmationFor(o *Order) notify.OrderConfirmation {
	lines := make([]notify.OrderLine, len(o.Items))
	for i, it := range o.Items {
		lines[i] = notify.OrderLine{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		}
	}
	return notify.OrderConfirmation{
		OrderID:  o.ID,
		Email:    o.GuestEmail,
		Status:   string(o.Status),
		Subtotal: o.Subtotal,
		Discount: o.Discount,
		Total:    o.Total,
		Lines:    lines,
	}
}
