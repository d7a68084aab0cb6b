package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Bundle fields are
// only meaningful when BundleOffer is set; see ValidateBundle.
type Product struct {
	ID            string
	Name          string
	Description   string
	Category      string
	Price         decimal.Decimal
	StockQuantity int

	// BundleOffer marks the product as sold with a buy-N-get-M-free deal:
	// every BundleBuyQty+BundleFreeQty units purchased together cost
	// BundlePrice instead of per-unit pricing.
	BundleOffer   bool
	BundleBuyQty  int
	BundleFreeQty int
	BundlePrice   decimal.Decimal

	CreatedAt time.Time
}

// InsufficientStockError indicates an operation asked for more units than the
// product has in stock.
type InsufficientStockError struct {
	Name string
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock for product: " + e.Name
}

// ValidateBundle checks the bundle configuration invariant: when the offer
// flag is set, buy quantity, free quantity, and bundle price must all be
// positive. Products without the flag always pass.
func (p Product) ValidateBundle() error {
	if !p.BundleOffer {
		return nil
	}
	if p.BundleBuyQty <= 0 {
		return errors.New("bundle buy quantity must be positive")
	}
	if p.BundleFreeQty <= 0 {
		return errors.New("bundle free quantity must be positive")
	}
	if !p.BundlePrice.IsPositive() {
		return errors.New("bundle price must be positive")
	}
	return nil
}

// Filter narrows product listings.
type Filter struct {
	// Category restricts results to one category when non-empty.
	Category string
	// Query matches case-insensitively against product names when non-empty.
	Query string
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	ListLowStock(ctx context.Context, threshold int) ([]Product, error)
}
