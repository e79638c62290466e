package redisx

import (
	"fmt"
	"time"
)

const (
	// Checkout idempotency: idem:checkout:{user_id}:{checkout_key} -> order_id
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Cached order status: order_status:{order_id} -> {"status":"...","payment_status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Event-processing dedup for the reconciler: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

// StatusBody is the document cached under KeyOrderStatus. Every writer goes
// through here so cache readers always see the same shape.
func StatusBody(status, paymentStatus string) string {
	return fmt.Sprintf(`{"status":%q,"payment_status":%q}`, status, paymentStatus)
}
