package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no cart exists for the given token.
	ErrNotFound = errors.New("cart not found")
	// ErrItemNotFound is returned when a cart item id does not belong to the cart.
	ErrItemNotFound = errors.New("cart item not found")
	// ErrCheckedOut is returned when mutating a cart that has already been
	// converted into an order.
	ErrCheckedOut = errors.New("cart already checked out")
)

// Item is a persisted cart line. UnitPrice is captured from the catalog when
// the item is added or its quantity changes.
type Item struct {
	ID        int64
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Cart is a server-side cart. Guest carts are identified by Token, a UUID
// issued on first contact and echoed back by the client on every request.
type Cart struct {
	ID           string
	Token        string
	CheckedOutAt *time.Time
	Items        []Item
}

// Snapshot freezes the cart's current lines for pricing.
func (c *Cart) Snapshot() Snapshot {
	lines := make([]Line, len(c.Items))
	for i, it := range c.Items {
		lines[i] = Line{
			ProductID: it.ProductID,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
	}
	return NewSnapshot(lines)
}

// Repository defines persistence operations for carts.
type Repository interface {
	// GetByToken loads an open cart with its items. Returns ErrNotFound
	// when no open cart exists for the token.
	GetByToken(ctx context.Context, token string) (*Cart, error)
	// Create persists a new empty cart for the token.
	Create(ctx context.Context, token string) (*Cart, error)
	// UpsertItem adds a product to the cart or, when the product is already
	// present, replaces its quantity and unit price.
	UpsertItem(ctx context.Context, cartID string, item Item) error
	// UpdateItemQuantity sets the quantity and unit price of an existing item.
	// Returns ErrItemNotFound when the item does not belong to the cart.
	UpdateItemQuantity(ctx context.Context, cartID string, itemID int64, quantity int, unitPrice decimal.Decimal) error
	// DeleteItem removes an item from the cart. Deleting a missing item is
	// not an error.
	DeleteItem(ctx context.Context, cartID string, itemID int64) error
}
