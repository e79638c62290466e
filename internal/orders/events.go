package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderConfirmed  = "OrderConfirmed"
	EventStatusChanged   = "OrderStatusChanged"
	EventDecrementFailed = "StockDecrementFailed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

type LineSummary struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"qty"`
}

type OrderConfirmedPayload struct {
	OrderID     string        `json:"order_id"`
	OrderNumber string        `json:"order_number"`
	UserID      string        `json:"user_id"`
	Total       string        `json:"total"`
	Currency    string        `json:"currency"`
	Lines       []LineSummary `json:"lines"`
}

type StatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    Status `json:"from"`
	To      Status `json:"to"`
	Note    string `json:"note,omitempty"`
}

// DecrementFailedPayload is published when the post-order stock decrement
// cannot be applied. The reconciler retries it until the catalog catches up.
type DecrementFailedPayload struct {
	OrderID   string `json:"order_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"qty"`
}
