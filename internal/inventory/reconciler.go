package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/kartify/storefront-core/internal/catalog"
	kafkax "github.com/kartify/storefront-core/internal/kafka"
	"github.com/kartify/storefront-core/internal/orders"
	"github.com/kartify/storefront-core/internal/redisx"
)

// CatalogStore is the catalog slice the reconciler needs.
type CatalogStore interface {
	DecrementStock(ctx context.Context, productID string, qty int) error
}

// Reconciler closes the gap between "sold" and "decremented": when the
// coordinator's post-order decrement fails, the failure lands on a retry
// topic and this worker re-applies it against the catalog store.
type Reconciler struct {
	Catalog     CatalogStore
	Redis       *redis.Client
	ServiceName string
}

// HandleDecrementFailed is wired as the consumer handler. Returning non-nil
// leaves the offset uncommitted so the message is redelivered.
func (r *Reconciler) HandleDecrementFailed(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventDecrementFailed {
		return nil
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "reconciler", env.EventID)
	if r.Redis != nil {
		if done, _ := redisx.Exists(ctx, r.Redis, dkey); done {
			return nil
		}
	}

	p, err := kafkax.UnwrapPayload[orders.DecrementFailedPayload](env.Payload)
	if err != nil {
		return err
	}

	err = r.Catalog.DecrementStock(ctx, p.ProductID, p.Quantity)
	switch {
	case err == nil:
		log.Info().Str("service", r.ServiceName).Str("order_id", p.OrderID).
			Str("product_id", p.ProductID).Int("qty", p.Quantity).
			Msg("stock decrement reconciled")
	case errors.Is(err, catalog.ErrInsufficientStock):
		// The product was oversold; no amount of retrying fixes that.
		// Commit the message and leave the shortfall to a restock.
		log.Error().Str("service", r.ServiceName).Str("order_id", p.OrderID).
			Str("product_id", p.ProductID).Int("qty", p.Quantity).
			Msg("oversold product, decrement unrecoverable")
	default:
		return err
	}

	if r.Redis != nil {
		_ = r.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	}
	return nil
}
