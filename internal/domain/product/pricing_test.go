package product

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bundleProduct(price, bundlePrice string, buy, free int) Product {
	return Product{
		ID:            "p1",
		Name:          "Paracetamol 500mg",
		Price:         decimal.RequireFromString(price),
		BundleOffer:   true,
		BundleBuyQty:  buy,
		BundleFreeQty: free,
		BundlePrice:   decimal.RequireFromString(bundlePrice),
	}
}

func TestLinePrice_NoBundle(t *testing.T) {
	p := Product{
		ID:    "p2",
		Name:  "Vitamin C",
		Price: decimal.RequireFromString("7.50"),
	}

	for _, qty := range []int{1, 3, 12, 100} {
		charged, free := LinePrice(p, qty)
		want := p.Price.Mul(decimal.NewFromInt(int64(qty)))
		assert.True(t, want.Equal(charged), "qty=%d: expected %s, got %s", qty, want, charged)
		assert.Zero(t, free, "qty=%d", qty)
	}
}

func TestLinePrice_Bundle(t *testing.T) {
	// buy 10 get 2 free, bundle of 12 for 50, unit price 10.
	p := bundleProduct("10", "50", 10, 2)

	tests := []struct {
		name     string
		qty      int
		wantCost string
		wantFree int
	}{
		{"below unit size pays full price", 11, "110", 0},
		{"exactly one bundle", 12, "50", 2},
		{"one bundle plus remainder", 13, "60", 2},
		{"two bundles", 24, "100", 4},
		{"remainder above buy threshold still pays unit price", 23, "160", 2},
		{"single unit", 1, "10", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charged, free := LinePrice(p, tt.qty)
			want := decimal.RequireFromString(tt.wantCost)
			assert.True(t, want.Equal(charged), "expected %s, got %s", want, charged)
			assert.Equal(t, tt.wantFree, free)
		})
	}
}

func TestLinePrice_ExactDecimalArithmetic(t *testing.T) {
	// Repeated cent-level sums must not drift.
	p := Product{ID: "p3", Name: "Saline", Price: decimal.RequireFromString("0.10")}

	charged, free := LinePrice(p, 3)
	assert.True(t, decimal.RequireFromString("0.30").Equal(charged), "got %s", charged)
	assert.Zero(t, free)
}

func TestValidateBundle(t *testing.T) {
	require.NoError(t, bundleProduct("10", "50", 10, 2).ValidateBundle())

	noOffer := Product{Name: "plain"}
	require.NoError(t, noOffer.ValidateBundle())

	broken := bundleProduct("10", "50", 10, 2)
	broken.BundleBuyQty = 0
	require.Error(t, broken.ValidateBundle())

	broken = bundleProduct("10", "50", 10, 2)
	broken.BundleFreeQty = 0
	require.Error(t, broken.ValidateBundle())

	broken = bundleProduct("10", "0", 10, 2)
	require.Error(t, broken.ValidateBundle())
}
