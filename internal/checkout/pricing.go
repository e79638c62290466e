package checkout

import (
	"github.com/kartify/storefront-core/internal/catalog"
	"github.com/shopspring/decimal"
)

// Flat business rules: 18% tax rounded to whole major units, free shipping
// at and above the threshold, flat rate below it.
var (
	taxRate               = decimal.NewFromFloat(0.18)
	freeShippingThreshold = decimal.NewFromInt(999)
	flatShippingRate      = decimal.NewFromInt(99)
)

type PriceBreakdown struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Price computes the order totals for a line set. Discount comes from an
// external lookup and defaults to zero. Total is built from its parts, so
// total = subtotal + tax + shipping - discount holds by construction.
func Price(entries []catalog.CartEntry, discount decimal.Decimal) PriceBreakdown {
	subtotal := decimal.Zero
	for _, e := range entries {
		subtotal = subtotal.Add(e.UnitPrice.Mul(decimal.NewFromInt(int64(e.Quantity))))
	}

	tax := subtotal.Mul(taxRate).Round(0)

	shipping := flatShippingRate
	if subtotal.GreaterThanOrEqual(freeShippingThreshold) {
		shipping = decimal.Zero
	}

	return PriceBreakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}
