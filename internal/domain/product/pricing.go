package product

import "github.com/shopspring/decimal"

// LinePrice computes the charged total and granted free units for qty units
// of p under its bundle configuration.
//
// Without a bundle offer, or when qty is too small to form a single bundle
// (qty < buy+free), the line is charged at plain unit pricing with no free
// units. Otherwise every whole bundle of buy+free units is charged at the
// bundle price and grants the free quantity; the remainder is always charged
// at unit price, even when it reaches the buy threshold on its own. Only
// whole bundles earn the discount.
func LinePrice(p Product, qty int) (charged decimal.Decimal, free int) {
	unitTotal := p.Price.Mul(decimal.NewFromInt(int64(qty)))

	if !p.BundleOffer || p.BundleBuyQty <= 0 || p.BundleFreeQty <= 0 {
		return unitTotal, 0
	}

	unitSize := p.BundleBuyQty + p.BundleFreeQty
	if qty < unitSize {
		return unitTotal, 0
	}

	bundles := qty / unitSize
	remainder := qty % unitSize

	charged = p.BundlePrice.Mul(decimal.NewFromInt(int64(bundles))).
		Add(p.Price.Mul(decimal.NewFromInt(int64(remainder))))
	free = bundles * p.BundleFreeQty
	return charged, free
}
