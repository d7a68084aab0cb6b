package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/medkart/pharma-backend/internal/domain/cart"
	"github.com/medkart/pharma-backend/internal/domain/product"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// ParseStatus validates a status string from an external caller.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", errors.Errorf("unknown order status %q", s)
	}
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether next is a legal successor of s. Orders move
// forward through PENDING, CONFIRMED, SHIPPED, DELIVERED; CANCELLED is
// reachable from any non-terminal state.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() {
		return false
	}
	if next == StatusCancelled {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusConfirmed
	case StatusConfirmed:
		return next == StatusShipped
	case StatusShipped:
		return next == StatusDelivered
	default:
		return false
	}
}

// PaymentStatus tracks settlement of an order. Only the tag is modeled;
// gateway integration is out of scope.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Sentinel errors for checkout and lookups.
var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotFound  = errors.New("order not found")
)

// InvalidTransitionError indicates a rejected status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Order is an immutable record of a completed checkout. Only Status and
// PaymentStatus change after creation.
type Order struct {
	ID              string
	UserID          string
	ShippingAddress string
	PaymentMethod   string
	Status          Status
	PaymentStatus   PaymentStatus
	TotalAmount     decimal.Decimal
	OrderedAt       time.Time
	Items           []Item
}

// Item is one order line. UnitPrice is snapshotted at checkout time and
// Subtotal is authoritative: with a bundle discount applied it is less than
// UnitPrice times Quantity.
type Item struct {
	ProductID    string
	ProductName  string
	Quantity     int
	UnitPrice    decimal.Decimal
	FreeQuantity int
	Subtotal     decimal.Decimal
}

// Tx is the set of persistence operations available inside the checkout
// transaction. All effects are committed together or not at all.
type Tx interface {
	// CartItems returns the user's cart lines in insertion order.
	CartItems(ctx context.Context, userID string) ([]cart.Item, error)
	// ProductForUpdate loads a product row locked against concurrent checkouts.
	ProductForUpdate(ctx context.Context, id string) (*product.Product, error)
	// DecrementStock atomically subtracts qty from the product's stock. It
	// fails when remaining stock is insufficient, aborting the transaction.
	DecrementStock(ctx context.Context, id string, qty int) error
	CreateOrder(ctx context.Context, o *Order) error
	ClearCart(ctx context.Context, userID string) error
}

// Store defines order persistence, including the transactional checkout
// boundary.
type Store interface {
	// ExecTx runs fn inside a single database transaction, committing only
	// when fn returns nil.
	ExecTx(ctx context.Context, fn func(tx Tx) error) error
	Get(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	// List returns all orders, optionally filtered by status.
	List(ctx context.Context, status *Status) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
