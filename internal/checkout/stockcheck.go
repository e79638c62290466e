package checkout

import "github.com/kartify/storefront-core/internal/catalog"

// VerifyStock is the pure accept/reject gate over a cart snapshot. It
// accepts only when every line's requested quantity fits the product's live
// stock and the product is active; otherwise it rejects naming the first
// offending line. No side effects.
func VerifyStock(entries []catalog.CartEntry) ([]catalog.CartEntry, error) {
	for _, e := range entries {
		if e.ProductStatus != catalog.ProductActive {
			return nil, unavailable(e)
		}
		if e.Stock == 0 {
			return nil, outOfStock(e)
		}
		if e.Quantity > e.Stock {
			return nil, insufficientStock(e)
		}
	}
	return entries, nil
}
