package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "cod"
	PaymentOnline PaymentMethod = "online"
)

// Address is the shipping address snapshot taken at checkout. It is frozen
// into the order row and never tracks later address-book edits.
type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Phone      string
}

type Order struct {
	ID            string
	UserID        string
	OrderNumber   string
	Status        Status
	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
	PaymentRef    string
	CheckoutKey   string // idempotency key, empty when the client sent none

	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
	Currency string

	ShippingAddress Address

	Lines    []OrderLine
	Timeline []TimelineEntry

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderLine carries a product-name/price snapshot so historical orders stay
// stable even if the catalog row is later edited or deleted. The product id
// is a soft pointer into the catalog store, valid only at creation time.
type OrderLine struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
	CreatedAt   time.Time
}

// TimelineEntry records one status change. The timeline is append-only.
type TimelineEntry struct {
	ID        string
	OrderID   string
	Status    Status
	Note      string
	CreatedAt time.Time
}
