package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medkart/pharma-backend/internal/domain/product"
)

type mockCartRepo struct {
	nextID int64
	items  map[int64]Item
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{nextID: 1, items: make(map[int64]Item)}
}

func (m *mockCartRepo) Items(_ context.Context, userID string) ([]Item, error) {
	var out []Item
	for id := int64(1); id < m.nextID; id++ {
		if item, ok := m.items[id]; ok && item.UserID == userID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockCartRepo) Get(_ context.Context, itemID int64) (*Item, error) {
	item, ok := m.items[itemID]
	if !ok {
		return nil, ErrItemNotFound
	}
	return &item, nil
}

func (m *mockCartRepo) Find(_ context.Context, userID, productID string) (*Item, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, ErrItemNotFound
}

func (m *mockCartRepo) Add(_ context.Context, item *Item) error {
	item.ID = m.nextID
	m.nextID++
	m.items[item.ID] = *item
	return nil
}

func (m *mockCartRepo) UpdateQuantity(_ context.Context, itemID int64, quantity int) error {
	item, ok := m.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	item.Quantity = quantity
	m.items[itemID] = item
	return nil
}

func (m *mockCartRepo) Remove(_ context.Context, itemID int64) error {
	if _, ok := m.items[itemID]; !ok {
		return ErrItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	for id, item := range m.items {
		if item.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

type mockProductRepo struct {
	byID map[string]product.Product
}

func (m *mockProductRepo) List(context.Context, product.Filter) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) Create(context.Context, *product.Product) error { return nil }
func (m *mockProductRepo) Update(context.Context, *product.Product) error { return nil }
func (m *mockProductRepo) Delete(context.Context, string) error           { return nil }
func (m *mockProductRepo) ListLowStock(context.Context, int) ([]product.Product, error) {
	return nil, nil
}

func newTestService(products ...product.Product) (*Service, *mockCartRepo) {
	byID := make(map[string]product.Product)
	for _, p := range products {
		byID[p.ID] = p
	}
	carts := newMockCartRepo()
	return NewService(carts, &mockProductRepo{byID: byID}), carts
}

func aspirin(stock int) product.Product {
	return product.Product{
		ID:            "aspirin",
		Name:          "Aspirin",
		Price:         decimal.RequireFromString("4.50"),
		StockQuantity: stock,
	}
}

func TestAdd_NewLine(t *testing.T) {
	svc, _ := newTestService(aspirin(10))

	require.NoError(t, svc.Add(context.Background(), "u1", "aspirin", 3))

	lines, err := svc.Lines(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Item.Quantity)
	assert.Equal(t, "Aspirin", lines[0].Product.Name)
}

func TestAdd_MergesExistingLine(t *testing.T) {
	svc, _ := newTestService(aspirin(10))
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "aspirin", 3))
	require.NoError(t, svc.Add(ctx, "u1", "aspirin", 4))

	lines, err := svc.Lines(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 7, lines[0].Item.Quantity)
}

func TestAdd_MergedQuantityExceedsStock(t *testing.T) {
	svc, _ := newTestService(aspirin(5))
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "aspirin", 3))

	err := svc.Add(ctx, "u1", "aspirin", 3)
	var stockErr *product.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Aspirin", stockErr.Name)

	// The existing line is untouched.
	lines, err := svc.Lines(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Item.Quantity)
}

func TestAdd_UnknownProduct(t *testing.T) {
	svc, _ := newTestService()

	err := svc.Add(context.Background(), "u1", "nope", 1)
	assert.ErrorIs(t, err, product.ErrNotFound)
}

func TestAdd_NonPositiveQuantity(t *testing.T) {
	svc, _ := newTestService(aspirin(10))

	assert.Error(t, svc.Add(context.Background(), "u1", "aspirin", 0))
	assert.Error(t, svc.Add(context.Background(), "u1", "aspirin", -2))
}

func TestUpdateQuantity_OwnershipEnforced(t *testing.T) {
	svc, carts := newTestService(aspirin(10))
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "aspirin", 2))
	items, err := carts.Items(ctx, "u1")
	require.NoError(t, err)
	itemID := items[0].ID

	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "u2", itemID, 5), ErrNotOwner)
	require.NoError(t, svc.UpdateQuantity(ctx, "u1", itemID, 5))

	lines, err := svc.Lines(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 5, lines[0].Item.Quantity)
}

func TestUpdateQuantity_ExceedsStock(t *testing.T) {
	svc, carts := newTestService(aspirin(4))
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "aspirin", 2))
	items, err := carts.Items(ctx, "u1")
	require.NoError(t, err)

	err = svc.UpdateQuantity(ctx, "u1", items[0].ID, 5)
	var stockErr *product.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
}

func TestRemove_OwnershipEnforced(t *testing.T) {
	svc, carts := newTestService(aspirin(10))
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, "u1", "aspirin", 2))
	items, err := carts.Items(ctx, "u1")
	require.NoError(t, err)
	itemID := items[0].ID

	assert.ErrorIs(t, svc.Remove(ctx, "u2", itemID), ErrNotOwner)
	require.NoError(t, svc.Remove(ctx, "u1", itemID))

	lines, err := svc.Lines(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRemove_MissingItem(t *testing.T) {
	svc, _ := newTestService()

	assert.ErrorIs(t, svc.Remove(context.Background(), "u1", 42), ErrItemNotFound)
}
