package cart

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/shopkit/pricing-engine/internal/domain/product"
)

// ErrInvalidQuantity is returned for non-positive quantities.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Service orchestrates cart mutations. Unit prices are captured from the
// catalog on every add or quantity change, so a cart holds the price the
// customer saw, not the price at checkout time.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// GetOrCreate returns the open cart for the token, creating one when the
// token is empty or unknown. The returned cart's Token must be echoed back
// by the client on subsequent requests.
func (s *Service) GetOrCreate(ctx context.Context, token string) (*Cart, error) {
	if token != "" {
		c, err := s.carts.GetByToken(ctx, token)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Wrap(err, "get cart")
		}
	}

	c, err := s.carts.Create(ctx, uuid.New().String())
	if err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	return c, nil
}

// AddItem puts quantity units of a product into the cart, capturing the
// current catalog price. Adding a product already in the cart replaces its
// quantity.
func (s *Service) AddItem(ctx context.Context, token, productID string, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.GetOrCreate(ctx, token)
	if err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, &product.InsufficientStockError{
			ProductID: p.ID,
			Requested: quantity,
			Available: p.Stock,
		}
	}

	err = s.carts.UpsertItem(ctx, c.ID, Item{
		ProductID: p.ID,
		Quantity:  quantity,
		UnitPrice: p.Price,
	})
	if err != nil {
		return nil, errors.Wrap(err, "upsert cart item")
	}

	return s.carts.GetByToken(ctx, c.Token)
}

// UpdateItemQuantity changes an item's quantity and re-captures the current
// catalog price for it.
func (s *Service) UpdateItemQuantity(ctx context.Context, token string, itemID int64, quantity int) (*Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.carts.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	var productID string
	for _, it := range c.Items {
		if it.ID == itemID {
			productID = it.ProductID
			break
		}
	}
	if productID == "" {
		return nil, ErrItemNotFound
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > p.Stock {
		return nil, &product.InsufficientStockError{
			ProductID: p.ID,
			Requested: quantity,
			Available: p.Stock,
		}
	}

	if err := s.carts.UpdateItemQuantity(ctx, c.ID, itemID, quantity, p.Price); err != nil {
		return nil, errors.Wrap(err, "update cart item")
	}

	return s.carts.GetByToken(ctx, token)
}

// RemoveItem deletes an item from the cart.
func (s *Service) RemoveItem(ctx context.Context, token string, itemID int64) (*Cart, error) {
	c, err := s.carts.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.carts.DeleteItem(ctx, c.ID, itemID); err != nil {
		return nil, errors.Wrap(err, "delete cart item")
	}

	return s.carts.GetByToken(ctx, token)
}
