package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductInactive ProductStatus = "inactive"
	ProductDraft    ProductStatus = "draft"
	ProductArchived ProductStatus = "archived"
)

type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Stock     int
	Status    ProductStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartLine holds one (user, product) row. Adding an already-carted product
// merges into the existing row instead of duplicating it.
type CartLine struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartEntry is a cart line joined with the live product row, which is the
// shape stock verification and pricing work over.
type CartEntry struct {
	LineID        string
	ProductID     string
	ProductName   string
	UnitPrice     decimal.Decimal
	Quantity      int
	Stock         int
	ProductStatus ProductStatus
}
