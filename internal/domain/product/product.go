package product

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// InsufficientStockError indicates a requested quantity exceeds the units
// remaining for a product.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Product represents a catalog item available for purchase. Price carries the
// current catalog price; carts and orders capture their own unit prices.
type Product struct {
	ID          string
	Name        string
	Price       decimal.Decimal
	Description string
	Stock       int
	Active      bool
}

// InStock reports whether any units remain.
func (p Product) InStock() bool {
	return p.Stock > 0
}

// Repository defines read operations for the product catalog. Stock mutation
// happens inside the order transaction and is owned by the order repository.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
