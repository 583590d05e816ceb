package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/shopkit/pricing-engine/internal/domain/cart"
)

const (
	getCartByTokenSQL = `SELECT id, token, checked_out_at FROM carts
		WHERE token = $1 AND checked_out_at IS NULL`

	createCartSQL = `INSERT INTO carts (id, token) VALUES ($1, $2)`

	listCartItemsSQL = `SELECT id, product_id, quantity, unit_price
		FROM cart_items WHERE cart_id = $1 ORDER BY id`

	upsertCartItemSQL = `INSERT INTO cart_items (cart_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, unit_price = EXCLUDED.unit_price`

	updateCartItemSQL = `UPDATE cart_items SET quantity = $3, unit_price = $4
		WHERE cart_id = $1 AND id = $2`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE cart_id = $1 AND id = $2`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// GetByToken loads an open cart and its items.
// Returns cart.ErrNotFound when no open cart exists for the token.
func (r *CartRepository) GetByToken(ctx context.Context, token string) (*cart.Cart, error) {
	var c cart.Cart
	err := r.pool.QueryRow(ctx, getCartByTokenSQL, token).Scan(&c.ID, &c.Token, &c.CheckedOutAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("getting cart by token: %w", err)
	}

	rows, err := r.pool.Query(ctx, listCartItemsSQL, c.ID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}

	c.Items, err = pgx.CollectRows(rows, scanCartItem)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return &c, nil
}

// Create persists a new empty cart for the token.
func (r *CartRepository) Create(ctx context.Context, token string) (*cart.Cart, error) {
	id := uuid.New().String()
	if _, err := r.pool.Exec(ctx, createCartSQL, id, token); err != nil {
		return nil, fmt.Errorf("creating cart: %w", err)
	}
	return &cart.Cart{ID: id, Token: token}, nil
}

// UpsertItem adds a product to the cart or replaces its quantity and price.
func (r *CartRepository) UpsertItem(ctx context.Context, cartID string, item cart.Item) error {
	_, err := r.pool.Exec(ctx, upsertCartItemSQL, cartID, item.ProductID, item.Quantity, item.UnitPrice)
	if err != nil {
		return fmt.Errorf("upserting cart item: %w", err)
	}
	return nil
}

// UpdateItemQuantity sets the quantity and unit price of an existing item.
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, cartID string, itemID int64, quantity int, unitPrice decimal.Decimal) error {
	tag, err := r.pool.Exec(ctx, updateCartItemSQL, cartID, itemID, quantity, unitPrice)
	if err != nil {
		return fmt.Errorf("updating cart item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// DeleteItem removes an item from the cart.
func (r *CartRepository) DeleteItem(ctx context.Context, cartID string, itemID int64) error {
	if _, err := r.pool.Exec(ctx, deleteCartItemSQL, cartID, itemID); err != nil {
		return fmt.Errorf("deleting cart item %d: %w", itemID, err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var it cart.Item
	err := row.Scan(&it.ID, &it.ProductID, &it.Quantity, &it.UnitPrice)
	return it, err
}
