// Package notify delivers transactional emails. Delivery is always
// best-effort: a failed send is logged and never propagates to the caller.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Sender delivers a single email message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// OrderLine is one line of an order confirmation.
type OrderLine struct {
	ProductID string
	Quantity  int
	LineTotal decimal.Decimal
}

// OrderConfirmation carries everything needed to render a confirmation email.
type OrderConfirmation struct {
	OrderID  string
	Email    string
	Status   string
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Lines    []OrderLine
}

// SendOrderConfirmation renders and sends the confirmation asynchronously.
// The send gets its own timeout, detached from the request context, so a
// slow SMTP server cannot hold up order placement.
func SendOrderConfirmation(_ context.Context, s Sender, lg *zap.Logger, c OrderConfirmation) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		subject := fmt.Sprintf("Order %s confirmed", c.OrderID)
		if err := s.Send(ctx, c.Email, subject, renderConfirmation(c)); err != nil {
			lg.Warn("order confirmation email failed",
				zap.String("order_id", c.OrderID),
				zap.Error(err),
			)
		}
	}()
}

func renderConfirmation(c OrderConfirmation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thank you for your order %s.\n", c.OrderID)
	fmt.Fprintf(&b, "Status: %s\n", c.Status)
	fmt.Fprintf(&b, "Subtotal: %s\n", c.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Discount: %s\n", c.Discount.StringFixed(2))
	fmt.Fprintf(&b, "Total: %s\n", c.Total.StringFixed(2))
	for _, l := range c.Lines {
		fmt.Fprintf(&b, "  - %s x %d: %s\n", l.ProductID, l.Quantity, l.LineTotal.StringFixed(2))
	}
	return b.String()
}

// LogSender logs messages instead of delivering them. It is the default in
// development, mirroring a console email backend.
type LogSender struct {
	lg *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(lg *zap.Logger) *LogSender {
	return &LogSender{lg: lg}
}

// Send logs the message at info level.
func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.lg.Info("email (log backend)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
