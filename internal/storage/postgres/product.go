package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medkart/pharma-backend/internal/domain/product"
)

const productColumns = `id, name, description, category, price, stock_quantity,
	is_bundle_offer, bundle_buy_quantity, bundle_free_quantity, bundle_price, created_at`

const (
	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE ($1 = '' OR category = $1)
		  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	insertProductSQL = `INSERT INTO products
		(id, name, description, category, price, stock_quantity,
		 is_bundle_offer, bundle_buy_quantity, bundle_free_quantity, bundle_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	updateProductSQL = `UPDATE products SET
		name = $2, description = $3, category = $4, price = $5, stock_quantity = $6,
		is_bundle_offer = $7, bundle_buy_quantity = $8, bundle_free_quantity = $9, bundle_price = $10
		WHERE id = $1`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`

	upsertProductSQL = `INSERT INTO products
		(id, name, description, category, price, stock_quantity,
		 is_bundle_offer, bundle_buy_quantity, bundle_free_quantity, bundle_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			price = EXCLUDED.price,
			stock_quantity = EXCLUDED.stock_quantity,
			is_bundle_offer = EXCLUDED.is_bundle_offer,
			bundle_buy_quantity = EXCLUDED.bundle_buy_quantity,
			bundle_free_quantity = EXCLUDED.bundle_free_quantity,
			bundle_price = EXCLUDED.bundle_price`

	lowStockSQL = `SELECT ` + productColumns + ` FROM products
		WHERE stock_quantity <= $1 ORDER BY stock_quantity, id`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns catalog products matching the filter, ordered by ID.
func (r *ProductRepository) List(ctx context.Context, f product.Filter) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL, f.Category, f.Query)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// Create inserts a new catalog product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, insertProductSQL,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.StockQuantity,
		p.BundleOffer, p.BundleBuyQty, p.BundleFreeQty, p.BundlePrice,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Update replaces a product's attributes.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.StockQuantity,
		p.BundleOffer, p.BundleBuyQty, p.BundleFreeQty, p.BundlePrice,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Delete removes a product from the catalog.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert inserts a product or replaces its attributes when the ID exists.
// Used by the seed and catalog ingest tools.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Name, p.Description, p.Category, p.Price, p.StockQuantity,
		p.BundleOffer, p.BundleBuyQty, p.BundleFreeQty, p.BundlePrice,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.ID, err)
	}
	return nil
}

// ListLowStock returns products at or below the stock threshold.
func (r *ProductRepository) ListLowStock(ctx context.Context, threshold int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, lowStockSQL, threshold)
	if err != nil {
		return nil, fmt.Errorf("listing low stock products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Price, &p.StockQuantity,
		&p.BundleOffer, &p.BundleBuyQty, &p.BundleFreeQty, &p.BundlePrice, &p.CreatedAt,
	)
	return p, err
}
