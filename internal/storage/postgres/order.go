package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medkart/pharma-backend/internal/domain/cart"
	"github.com/medkart/pharma-backend/internal/domain/order"
	"github.com/medkart/pharma-backend/internal/domain/product"
)

const orderColumns = `id, user_id, shipping_address, payment_method, status,
	payment_status, total_amount, ordered_at`

const (
	orderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	ordersByUserSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE user_id = $1 ORDER BY ordered_at DESC`

	ordersAllSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::TEXT IS NULL OR status = $1)
		ORDER BY ordered_at DESC`

	orderItemsSQL = `SELECT product_id, product_name, quantity, unit_price, free_quantity, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY id`

	insertOrderSQL = `INSERT INTO orders
		(id, user_id, shipping_address, payment_method, status, payment_status, total_amount, ordered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	insertOrderItemSQL = `INSERT INTO order_items
		(order_id, product_id, product_name, quantity, unit_price, free_quantity, subtotal)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	productForUpdateSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	decrementStockSQL = `UPDATE products SET stock_quantity = stock_quantity - $2
		WHERE id = $1 AND stock_quantity >= $2`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// ExecTx runs fn inside a database transaction. The transaction commits only
// when fn returns nil.
func (s *OrderStore) ExecTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&checkoutTx{tx: tx})
	})
}

// Get returns an order with its lines.
func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, orderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	if o.Items, err = s.itemsFor(ctx, o.ID); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByUser returns the user's orders, newest first, with lines attached.
func (s *OrderStore) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, ordersByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return s.withItems(ctx, rows)
}

// List returns all orders, optionally filtered by status, newest first.
func (s *OrderStore) List(ctx context.Context, status *order.Status) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, ordersAllSQL, status)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return s.withItems(ctx, rows)
}

// UpdateStatus persists a new fulfilment status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := s.pool.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (s *OrderStore) withItems(ctx context.Context, rows pgx.Rows) ([]order.Order, error) {
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("collecting orders: %w", err)
	}
	for i := range orders {
		if orders[i].Items, err = s.itemsFor(ctx, orders[i].ID); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (s *OrderStore) itemsFor(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := s.pool.Query(ctx, orderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items for order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// checkoutTx adapts a pgx transaction to the order.Tx contract.
type checkoutTx struct {
	tx pgx.Tx
}

var _ order.Tx = (*checkoutTx)(nil)

func (t *checkoutTx) CartItems(ctx context.Context, userID string) ([]cart.Item, error) {
	rows, err := t.tx.Query(ctx, cartItemsSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing cart items: %w", err)
	}
	return pgx.CollectRows(rows, scanCartItem)
}

func (t *checkoutTx) ProductForUpdate(ctx context.Context, id string) (*product.Product, error) {
	rows, err := t.tx.Query(ctx, productForUpdateSQL, id)
	if err != nil {
		return nil, fmt.Errorf("locking product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("locking product %q: %w", id, err)
	}
	return &p, nil
}

func (t *checkoutTx) DecrementStock(ctx context.Context, id string, qty int) error {
	tag, err := t.tx.Exec(ctx, decrementStockSQL, id, qty)
	if err != nil {
		return fmt.Errorf("decrementing stock for %q: %w", id, err)
	}
	// Zero rows means the guard rejected the decrement: stock would go
	// negative.
	if tag.RowsAffected() == 0 {
		p, err := t.ProductForUpdate(ctx, id)
		if err != nil {
			return err
		}
		return &product.InsufficientStockError{Name: p.Name}
	}
	return nil
}

func (t *checkoutTx) CreateOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.ShippingAddress, o.PaymentMethod,
		o.Status, o.PaymentStatus, o.TotalAmount, o.OrderedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	for _, item := range o.Items {
		_, err := t.tx.Exec(ctx, insertOrderItemSQL,
			o.ID, item.ProductID, item.ProductName, item.Quantity,
			item.UnitPrice, item.FreeQuantity, item.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("creating order item for %q: %w", item.ProductID, err)
		}
	}
	return nil
}

func (t *checkoutTx) ClearCart(ctx context.Context, userID string) error {
	if _, err := t.tx.Exec(ctx, clearCartSQL, userID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.ShippingAddress, &o.PaymentMethod,
		&o.Status, &o.PaymentStatus, &o.TotalAmount, &o.OrderedAt,
	)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(
		&item.ProductID, &item.ProductName, &item.Quantity,
		&item.UnitPrice, &item.FreeQuantity, &item.Subtotal,
	)
	return item, err
}
