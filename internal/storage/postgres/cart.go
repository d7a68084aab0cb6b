package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medkart/pharma-backend/internal/domain/cart"
)

const (
	cartItemsSQL = `SELECT id, user_id, product_id, quantity FROM cart_items
		WHERE user_id = $1 ORDER BY id`

	cartItemByIDSQL = `SELECT id, user_id, product_id, quantity FROM cart_items WHERE id = $1`

	cartItemFindSQL = `SELECT id, user_id, product_id, quantity FROM cart_items
		WHERE user_id = $1 AND product_id = $2`

	insertCartItemSQL = `INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES ($1, $2, $3) RETURNING id`

	updateCartItemSQL = `UPDATE cart_items SET quantity = $2 WHERE id = $1`

	deleteCartItemSQL = `DELETE FROM cart_items WHERE id = $1`

	clearCartSQL = `DELETE FROM cart_items WHERE user_id = $1`
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

// Items returns the user's cart lines in insertion order.
func (r *CartRepository) Items(ctx context.Context, userID string) ([]cart.Item, error) {
	rows, err := r.pool.Query(ctx, cartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

// Get returns a single cart item by its identifier.
func (r *CartRepository) Get(ctx context.Context, itemID int64) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, cartItemByIDSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting cart item %d: %w", itemID, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting cart item %d: %w", itemID, err)
	}
	return &item, nil
}

// Find returns the user's line for a product, or cart.ErrItemNotFound.
func (r *CartRepository) Find(ctx context.Context, userID, productID string) (*cart.Item, error) {
	rows, err := r.pool.Query(ctx, cartItemFindSQL, userID, productID)
	if err != nil {
		return nil, fmt.Errorf("finding cart item: %w", err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanCartItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrItemNotFound
		}
		return nil, fmt.Errorf("finding cart item: %w", err)
	}
	return &item, nil
}

// Add inserts a new cart line and fills in its generated ID.
func (r *CartRepository) Add(ctx context.Context, item *cart.Item) error {
	err := r.pool.QueryRow(ctx, insertCartItemSQL,
		item.UserID, item.ProductID, item.Quantity,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("adding cart item: %w", err)
	}
	return nil
}

// UpdateQuantity sets the quantity of an existing line.
func (r *CartRepository) UpdateQuantity(ctx context.Context, itemID int64, quantity int) error {
	tag, err := r.pool.Exec(ctx, updateCartItemSQL, itemID, quantity)
	if err != nil {
		return fmt.Errorf("updating cart item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// Remove deletes a cart line.
func (r *CartRepository) Remove(ctx context.Context, itemID int64) error {
	tag, err := r.pool.Exec(ctx, deleteCartItemSQL, itemID)
	if err != nil {
		return fmt.Errorf("removing cart item %d: %w", itemID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrItemNotFound
	}
	return nil
}

// Clear removes all of the user's cart lines.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func scanCartItem(row pgx.CollectableRow) (cart.Item, error) {
	var item cart.Item
	err := row.Scan(&item.ID, &item.UserID, &item.ProductID, &item.Quantity)
	return item, err
}
