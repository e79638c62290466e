package checkout

import (
	"errors"
	"fmt"

	"github.com/kartify/storefront-core/internal/catalog"
)

var (
	// ErrEmptyCart is terminal and user-facing; there is nothing to retry.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrOrderPersist: the order row failed to insert. Nothing downstream
	// has committed, so the whole checkout is safely retryable.
	ErrOrderPersist = errors.New("order persist failed")

	// ErrOrderLinePersist: line items failed after the order row landed.
	// The coordinator compensates by deleting the order.
	ErrOrderLinePersist = errors.New("order line persist failed")

	// ErrCompensationFailed: the compensating delete itself failed, leaving
	// a dangling order with no lines. Operational alert, not user-facing.
	ErrCompensationFailed = errors.New("compensating order delete failed")
)

// StockError names the first cart line that cannot be satisfied, with the
// exact shortfall so the client can offer "reduce quantity to N". Unwraps to
// catalog.ErrOutOfStock, catalog.ErrInsufficientStock, or
// catalog.ErrProductUnavailable.
type StockError struct {
	ProductID      string
	ProductName    string
	Requested      int
	Available      int
	MaxSatisfiable int
	reason         error
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%v: product %q (%s) requested=%d available=%d",
		e.reason, e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return e.reason }

func outOfStock(entry catalog.CartEntry) *StockError {
	return &StockError{
		ProductID:   entry.ProductID,
		ProductName: entry.ProductName,
		Requested:   entry.Quantity,
		reason:      catalog.ErrOutOfStock,
	}
}

func insufficientStock(entry catalog.CartEntry) *StockError {
	return &StockError{
		ProductID:      entry.ProductID,
		ProductName:    entry.ProductName,
		Requested:      entry.Quantity,
		Available:      entry.Stock,
		MaxSatisfiable: entry.Stock,
		reason:         catalog.ErrInsufficientStock,
	}
}

func unavailable(entry catalog.CartEntry) *StockError {
	return &StockError{
		ProductID:   entry.ProductID,
		ProductName: entry.ProductName,
		Requested:   entry.Quantity,
		Available:   entry.Stock,
		reason:      catalog.ErrProductUnavailable,
	}
}
