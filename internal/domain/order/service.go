package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medkart/pharma-backend/internal/domain/product"
)

// Notifier dispatches the order-placed notification. Implementations must be
// asynchronous and failure-isolated: Checkout does not wait for delivery and
// a delivery failure never affects the committed order.
type Notifier interface {
	OrderPlaced(o *Order)
}

// Service converts carts into orders and manages status transitions.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewService creates an order Service.
func NewService(store Store, notifier Notifier) *Service {
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// CheckoutRequest holds the input for converting a cart into an order.
type CheckoutRequest struct {
	UserID          string
	ShippingAddress string
	PaymentMethod   string
}

// Checkout prices the user's cart, decrements stock, persists the order, and
// clears the cart in one transaction. Stock is validated per line before any
// decrement; an insufficient line aborts the whole checkout with
// product.InsufficientStockError and zero side effects. Stock is reduced by
// the full ordered quantity: bundle free units are fulfilled from stock.
//
// The order-placed notification fires only after the transaction commits.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest) (*Order, error) {
	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		OrderedAt:       s.now(),
	}

	err := s.store.ExecTx(ctx, func(tx Tx) error {
		items, err := tx.CartItems(ctx, req.UserID)
		if err != nil {
			return errors.Wrap(err, "load cart")
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		for _, ci := range items {
			p, err := tx.ProductForUpdate(ctx, ci.ProductID)
			if err != nil {
				return errors.Wrapf(err, "load product %s", ci.ProductID)
			}
			if p.StockQuantity < ci.Quantity {
				return &product.InsufficientStockError{Name: p.Name}
			}

			charged, free := product.LinePrice(*p, ci.Quantity)
			o.Items = append(o.Items, Item{
				ProductID:    p.ID,
				ProductName:  p.Name,
				Quantity:     ci.Quantity,
				UnitPrice:    p.Price,
				FreeQuantity: free,
				Subtotal:     charged,
			})
			total = total.Add(charged)

			if err := tx.DecrementStock(ctx, p.ID, ci.Quantity); err != nil {
				return errors.Wrapf(err, "decrement stock for %s", p.ID)
			}
		}
		o.TotalAmount = total.Round(2)

		if err := tx.CreateOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if err := tx.ClearCart(ctx, req.UserID); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.OrderPlaced(o)
	return o, nil
}

// Get returns a single order by ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.store.Get(ctx, id)
}

// ListByUser returns the user's order history, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.store.ListByUser(ctx, userID)
}

// List returns all orders, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *Status) ([]Order, error) {
	return s.store.List(ctx, status)
}

// UpdateStatus applies an admin-triggered status transition, enforcing the
// forward-only state machine with CANCELLED reachable from any non-terminal
// state.
func (s *Service) UpdateStatus(ctx context.Context, id string, next Status) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.Status.CanTransitionTo(next) {
		return nil, &InvalidTransitionError{From: o.Status, To: next}
	}
	if err := s.store.UpdateStatus(ctx, id, next); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.Status = next
	return o, nil
}
