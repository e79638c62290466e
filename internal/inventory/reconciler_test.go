package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartify/storefront-core/internal/catalog"
	kafkax "github.com/kartify/storefront-core/internal/kafka"
	"github.com/kartify/storefront-core/internal/orders"
)

type fakeCatalog struct {
	calls []string
	err   error
}

func (f *fakeCatalog) DecrementStock(ctx context.Context, productID string, qty int) error {
	f.calls = append(f.calls, productID)
	return f.err
}

func decrementFailedMessage(t *testing.T, productID string, qty int) kafkago.Message {
	t.Helper()
	env := orders.Envelope{
		EventID:      uuid.NewString(),
		EventType:    orders.EventDecrementFailed,
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     "test",
		Payload: kafkax.MustMarshal(orders.DecrementFailedPayload{
			OrderID:   "order-1",
			ProductID: productID,
			Quantity:  qty,
		}),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func TestHandleDecrementFailed_RetriesDecrement(t *testing.T) {
	cat := &fakeCatalog{}
	r := &Reconciler{Catalog: cat, ServiceName: "test"}

	err := r.HandleDecrementFailed(context.Background(), decrementFailedMessage(t, "prod-1", 2))
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1"}, cat.calls)
}

func TestHandleDecrementFailed_TransientErrorRedelivered(t *testing.T) {
	cat := &fakeCatalog{err: errors.New("timeout")}
	r := &Reconciler{Catalog: cat, ServiceName: "test"}

	err := r.HandleDecrementFailed(context.Background(), decrementFailedMessage(t, "prod-1", 2))
	assert.Error(t, err) // offset stays uncommitted
}

func TestHandleDecrementFailed_OversellIsCommitted(t *testing.T) {
	cat := &fakeCatalog{err: catalog.ErrInsufficientStock}
	r := &Reconciler{Catalog: cat, ServiceName: "test"}

	// retrying cannot fix an oversold product, so the message is consumed
	err := r.HandleDecrementFailed(context.Background(), decrementFailedMessage(t, "prod-1", 2))
	assert.NoError(t, err)
}

func TestHandleDecrementFailed_IgnoresOtherEventTypes(t *testing.T) {
	cat := &fakeCatalog{}
	r := &Reconciler{Catalog: cat, ServiceName: "test"}

	env := orders.Envelope{EventID: uuid.NewString(), EventType: orders.EventOrderConfirmed}
	err := r.HandleDecrementFailed(context.Background(), kafkago.Message{Value: kafkax.MustMarshal(env)})
	require.NoError(t, err)
	assert.Empty(t, cat.calls)
}
