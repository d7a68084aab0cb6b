package cart

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/medkart/pharma-backend/internal/domain/product"
)

// Service implements cart mutations with stock validation against the live
// catalog. Stock checks here are advisory (a better error before checkout);
// the checkout transaction re-validates under lock.
type Service struct {
	carts    Repository
	products product.Repository
}

// NewService creates a cart Service.
func NewService(carts Repository, products product.Repository) *Service {
	return &Service{carts: carts, products: products}
}

// Line is a cart item joined with its product for display and pricing.
type Line struct {
	Item    Item
	Product product.Product
}

// Lines returns the user's cart joined with product data, in insertion order.
func (s *Service) Lines(ctx context.Context, userID string) ([]Line, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart items")
	}

	lines := make([]Line, 0, len(items))
	for _, item := range items {
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return nil, errors.Wrapf(err, "load product %s", item.ProductID)
		}
		lines = append(lines, Line{Item: item, Product: *p})
	}
	return lines, nil
}

// Add puts quantity units of a product into the user's cart, merging with an
// existing line for the same product. The combined quantity must not exceed
// available stock.
func (s *Service) Add(ctx context.Context, userID, productID string, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return err
	}

	existing, err := s.carts.Find(ctx, userID, productID)
	switch {
	case err == nil:
		merged := existing.Quantity + quantity
		if p.StockQuantity < merged {
			return &product.InsufficientStockError{Name: p.Name}
		}
		return s.carts.UpdateQuantity(ctx, existing.ID, merged)
	case errors.Is(err, ErrItemNotFound):
		if p.StockQuantity < quantity {
			return &product.InsufficientStockError{Name: p.Name}
		}
		return s.carts.Add(ctx, &Item{UserID: userID, ProductID: productID, Quantity: quantity})
	default:
		return errors.Wrap(err, "find cart item")
	}
}

// UpdateQuantity sets the quantity of an existing line owned by the user.
func (s *Service) UpdateQuantity(ctx context.Context, userID string, itemID int64, quantity int) error {
	if quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}

	item, err := s.carts.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return ErrNotOwner
	}

	p, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if p.StockQuantity < quantity {
		return &product.InsufficientStockError{Name: p.Name}
	}

	return s.carts.UpdateQuantity(ctx, itemID, quantity)
}

// Remove deletes a line owned by the user.
func (s *Service) Remove(ctx context.Context, userID string, itemID int64) error {
	item, err := s.carts.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item.UserID != userID {
		return ErrNotOwner
	}
	return s.carts.Remove(ctx, itemID)
}
