package cart

import (
	"context"

	"github.com/go-faster/errors"
)

// Errors surfaced to the HTTP layer.
var (
	ErrItemNotFound = errors.New("cart item not found")
	ErrNotOwner     = errors.New("cart item does not belong to user")
)

// Item is a single line in a user's cart. Items are ephemeral: they are
// destroyed on checkout or explicit removal.
type Item struct {
	ID        int64
	UserID    string
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for cart items.
type Repository interface {
	// Items returns the user's cart lines in insertion order.
	Items(ctx context.Context, userID string) ([]Item, error)
	// Get returns a single cart item by its identifier.
	Get(ctx context.Context, itemID int64) (*Item, error)
	// Find returns the user's line for a product, or ErrItemNotFound.
	Find(ctx context.Context, userID, productID string) (*Item, error)
	Add(ctx context.Context, item *Item) error
	UpdateQuantity(ctx context.Context, itemID int64, quantity int) error
	Remove(ctx context.Context, itemID int64) error
	Clear(ctx context.Context, userID string) error
}
