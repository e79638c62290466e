package catalog

import (
	"context"
	"errors"
	"fmt"
)

// ErrProductUnavailable covers products whose lifecycle status is not active.
var ErrProductUnavailable = errors.New("product unavailable")

// CartLimitError reports a rejected cart mutation together with the exact
// shortfall, so the client can offer a precise remediation rather than a
// bare error string.
type CartLimitError struct {
	ProductID string
	Requested int
	InCart    int
	Available int
	MaxCanAdd int
	reason    error
}

func (e *CartLimitError) Error() string {
	return fmt.Sprintf("%v: product %s requested=%d in_cart=%d available=%d max_can_add=%d",
		e.reason, e.ProductID, e.Requested, e.InCart, e.Available, e.MaxCanAdd)
}

func (e *CartLimitError) Unwrap() error { return e.reason }

// GuardStore is the slice of the catalog store the guard needs.
type GuardStore interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
	GetCartLine(ctx context.Context, userID, productID string) (*CartLine, error)
	UpsertCartLine(ctx context.Context, userID, productID string, quantity int) (*CartLine, error)
}

// Guard sits in front of every cart write and keeps cart quantity from
// exceeding live stock. The same check runs again at fulfillment time,
// because stock can shrink between cart edit and checkout.
type Guard struct {
	Store GuardStore
}

// Add increments the cart quantity for a product by delta ("add to cart"
// semantics), creating the line if absent.
func (g *Guard) Add(ctx context.Context, userID, productID string, delta int) (*CartLine, error) {
	if delta < 1 {
		return nil, fmt.Errorf("quantity delta must be >= 1, got %d", delta)
	}
	existing, err := g.existingQuantity(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return g.apply(ctx, userID, productID, existing, existing+delta)
}

// SetQuantity writes an absolute cart quantity ("update quantity" semantics).
func (g *Guard) SetQuantity(ctx context.Context, userID, productID string, quantity int) (*CartLine, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be >= 1, got %d", quantity)
	}
	existing, err := g.existingQuantity(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	return g.apply(ctx, userID, productID, existing, quantity)
}

func (g *Guard) existingQuantity(ctx context.Context, userID, productID string) (int, error) {
	line, err := g.Store.GetCartLine(ctx, userID, productID)
	if errors.Is(err, ErrCartLineNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return line.Quantity, nil
}

func (g *Guard) apply(ctx context.Context, userID, productID string, existing, requested int) (*CartLine, error) {
	p, err := g.Store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Status != ProductActive {
		return nil, fmt.Errorf("product %s: %w", productID, ErrProductUnavailable)
	}

	if p.Stock == 0 {
		return nil, &CartLimitError{
			ProductID: productID,
			Requested: requested,
			InCart:    existing,
			Available: 0,
			MaxCanAdd: 0,
			reason:    ErrOutOfStock,
		}
	}
	if requested > p.Stock {
		// Stock may have shrunk below what is already carted; the shortfall
		// is clamped at zero and the overdrawn line is left as-is until the
		// next edit or checkout rejects it.
		maxAdd := p.Stock - existing
		if maxAdd < 0 {
			maxAdd = 0
		}
		return nil, &CartLimitError{
			ProductID: productID,
			Requested: requested,
			InCart:    existing,
			Available: p.Stock,
			MaxCanAdd: maxAdd,
			reason:    ErrInsufficientStock,
		}
	}

	return g.Store.UpsertCartLine(ctx, userID, productID, requested)
}
