package orders

const (
	TopicOrderConfirmed  = "order.confirmed"
	TopicStatusChanged   = "order.status.changed"
	TopicDecrementFailed = "inventory.decrement.failed"
)

// Partition key = order_id so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
