package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopkit/pricing-engine/internal/domain/order"
	"github.com/shopkit/pricing-engine/internal/domain/product"
)

const (
	// Guarded decrement: zero rows affected means not enough stock.
	decrementStockSQL = `UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2`

	getStockSQL = `SELECT stock FROM products WHERE id = $1`

	createOrderSQL = `INSERT INTO orders
		(id, status, guest_name, guest_email, coupon_code, subtotal, discount, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	createOrderItemSQL = `INSERT INTO order_items
		(order_id, product_id, quantity, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5)`

	checkoutCartSQL = `UPDATE carts SET checked_out_at = now(), updated_at = now()
		WHERE id = $1`

	clearCartItemsSQL = `DELETE FROM cart_items WHERE cart_id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order in one transaction: stock is checked and
// decremented per line, the order and its items are inserted, and the source
// cart is checked out and emptied. Any failure rolls the whole thing back.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, cartID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning order transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range o.Items {
		if err := decrementStock(ctx, tx, it.ProductID, it.Quantity); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, createOrderSQL,
		o.ID, string(o.Status), o.GuestName, o.GuestEmail, o.CouponCode,
		o.Subtotal, o.Discount, o.Total,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, it := range o.Items {
		_, err = tx.Exec(ctx, createOrderItemSQL,
			o.ID, it.ProductID, it.Quantity, it.UnitPrice, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("creating order item for %q: %w", it.ProductID, err)
		}
	}

	if _, err := tx.Exec(ctx, checkoutCartSQL, cartID); err != nil {
		return fmt.Errorf("checking out cart %q: %w", cartID, err)
	}
	if _, err := tx.Exec(ctx, clearCartItemsSQL, cartID); err != nil {
		return fmt.Errorf("clearing cart %q: %w", cartID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w", o.ID, err)
	}
	return nil
}

func decrementStock(ctx context.Context, tx pgx.Tx, productID string, quantity int) error {
	tag, err := tx.Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrementing stock for %q: %w", productID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var available int
	if err := tx.QueryRow(ctx, getStockSQL, productID).Scan(&available); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.ErrNotFound
		}
		return fmt.Errorf("reading stock for %q: %w", productID, err)
	}
	return &product.InsufficientStockError{
		ProductID: productID,
		Requested: quantity,
		Available: available,
	}
}
