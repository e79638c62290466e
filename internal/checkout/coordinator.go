package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/kartify/storefront-core/internal/catalog"
	kafkax "github.com/kartify/storefront-core/internal/kafka"
	"github.com/kartify/storefront-core/internal/orders"
	"github.com/kartify/storefront-core/internal/redisx"
)

// CatalogStore is the slice of the catalog store the coordinator touches.
type CatalogStore interface {
	ListCart(ctx context.Context, userID string) ([]catalog.CartEntry, error)
	DecrementStock(ctx context.Context, productID string, qty int) error
	ClearCart(ctx context.Context, userID string) error
}

// OrderStore is the slice of the order store the coordinator touches.
type OrderStore interface {
	InsertOrder(ctx context.Context, o *orders.Order) error
	InsertLines(ctx context.Context, lines []orders.OrderLine) error
	DeleteOrder(ctx context.Context, orderID string) error
	GetByCheckoutKey(ctx context.Context, userID, key string) (*orders.Order, error)
}

// Publisher matches the kafka producer's Publish signature.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// state tracks the coordinator's progress through a single checkout.
// Rollback exists only between stateOrderPersisted and stateLinesPersisted;
// once lines are persisted everything is durable and later failures degrade
// to logged inconsistencies instead of checkout failures.
type state int

const (
	stateIdle state = iota
	stateCartLoaded
	stateStockVerified
	statePriced
	stateOrderPersisted
	stateLinesPersisted
	stateStockDecremented
	stateCartCleared
	stateRolledBack
)

var stateNames = map[state]string{
	stateIdle:             "idle",
	stateCartLoaded:       "cart_loaded",
	stateStockVerified:    "stock_verified",
	statePriced:           "priced",
	stateOrderPersisted:   "order_persisted",
	stateLinesPersisted:   "lines_persisted",
	stateStockDecremented: "stock_decremented",
	stateCartCleared:      "cart_cleared",
	stateRolledBack:       "rolled_back",
}

func (s state) String() string { return stateNames[s] }

const orderNumberAttempts = 3

// Input is one checkout request. UserID comes from the identity provider and
// is trusted as-is. PaymentRef carries a gateway reference when payment was
// captured client-side before this call.
type Input struct {
	UserID        string
	Address       orders.Address
	PaymentMethod orders.PaymentMethod
	PaymentRef    string
	CheckoutKey   string // optional idempotency key
	Discount      decimal.Decimal
	Currency      string
}

// Coordinator runs the fulfillment sequence across the two stores. The
// stores share no transaction boundary, so cross-store atomicity is faked
// with a single compensating action (delete the order when its lines fail).
type Coordinator struct {
	Catalog          CatalogStore
	Orders           OrderStore
	ProducerOK       Publisher     // order.confirmed topic, optional
	ProducerDecrFail Publisher     // inventory.decrement.failed topic, optional
	Redis            *redis.Client // optional
	Service          string
}

// Fulfill executes the checkout sequence and returns the created order with
// its lines, or the existing order when the checkout key was already used.
func (c *Coordinator) Fulfill(ctx context.Context, in Input) (*orders.Order, error) {
	if in.Currency == "" {
		in.Currency = "INR"
	}
	logger := log.With().Str("user_id", in.UserID).Logger()
	st := stateIdle

	advance := func(to state) {
		logger.Debug().Str("from", st.String()).Str("to", to.String()).Msg("checkout state")
		st = to
	}

	// Idempotent replay: the order store's checkout_key column is the
	// durable truth; Redis is only a shortcut primed after creation.
	if in.CheckoutKey != "" {
		existing, err := c.Orders.GetByCheckoutKey(ctx, in.UserID, in.CheckoutKey)
		if err == nil {
			logger.Info().Str("order_id", existing.ID).Msg("checkout key replayed, returning existing order")
			return existing, nil
		}
		if !errors.Is(err, orders.ErrOrderNotFound) {
			return nil, fmt.Errorf("checkout key lookup: %w", err)
		}
	}

	// Step 1: load cart.
	entries, err := c.Catalog.ListCart(ctx, in.UserID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}
	advance(stateCartLoaded)

	// Step 2: verify stock against the live snapshot. This re-runs the cart
	// guard's check because stock can change between cart edit and checkout.
	if _, err := VerifyStock(entries); err != nil {
		return nil, err
	}
	advance(stateStockVerified)

	// Step 3: price.
	pb := Price(entries, in.Discount)
	advance(statePriced)

	// Steps 4-5: generate a number and insert the order. Collisions on the
	// store's unique constraint are retried with a fresh number.
	order := c.buildOrder(in, pb)
	if err := c.insertOrderRetrying(ctx, order); err != nil {
		var replay *orders.Order
		if errors.Is(err, orders.ErrDuplicateCheckoutKey) {
			// A concurrent request with the same key won the insert.
			if replay, err = c.Orders.GetByCheckoutKey(ctx, in.UserID, in.CheckoutKey); err == nil {
				return replay, nil
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrOrderPersist, err)
	}
	advance(stateOrderPersisted)
	logger = logger.With().Str("order_id", order.ID).Str("order_number", order.OrderNumber).Logger()

	// From here the operation runs to completion even if the caller goes
	// away: a half-finished checkout is worse than a slow response.
	ctx = context.WithoutCancel(ctx)

	// Step 6: insert line items with name/price snapshots. This is the one
	// step with a compensating action: an order must never exist with zero
	// lines, so a failure here deletes the just-inserted order.
	lines := buildLines(order.ID, entries)
	if err := c.Orders.InsertLines(ctx, lines); err != nil {
		// An order that is already gone is what the compensation wanted, so
		// not-found counts as success here.
		delErr := c.Orders.DeleteOrder(ctx, order.ID)
		if errors.Is(delErr, orders.ErrOrderNotFound) {
			delErr = nil
		}
		if delErr != nil {
			advance(stateRolledBack)
			logger.Error().Err(delErr).AnErr("cause", err).
				Msg("COMPENSATION FAILED: dangling order with no lines, manual cleanup required")
			return nil, fmt.Errorf("%w: delete after line failure: %v (cause: %v)",
				ErrCompensationFailed, delErr, err)
		}
		advance(stateRolledBack)
		logger.Warn().Err(err).Msg("order rolled back after line persist failure")
		return nil, fmt.Errorf("%w: %v", ErrOrderLinePersist, err)
	}
	order.Lines = lines
	advance(stateLinesPersisted)

	// Step 7: decrement inventory. Decrements for distinct products are
	// independent and run in parallel. The order is durable at this point,
	// so failures are logged and queued for reconciliation, never rolled
	// back and never surfaced as checkout failures.
	c.decrementStock(ctx, logger, order, entries)
	advance(stateStockDecremented)

	// Step 8: clear the cart. Failure leaves a stale cart, which a later
	// cart fetch can reconcile against order history.
	if err := c.Catalog.ClearCart(ctx, in.UserID); err != nil {
		logger.Warn().Err(err).Msg("cart clear failed, cart left stale")
	}
	advance(stateCartCleared)

	c.primeCaches(ctx, in, order)
	c.publishConfirmed(order)
	logger.Info().Str("total", order.Total.String()).Msg("checkout fulfilled")
	return order, nil
}

func (c *Coordinator) buildOrder(in Input, pb PriceBreakdown) *orders.Order {
	status := orders.StatusPending
	payStatus := orders.PaymentPending
	if in.PaymentRef != "" {
		status = orders.StatusConfirmed
		payStatus = orders.PaymentPaid
	} else if in.PaymentMethod == orders.PaymentCOD {
		status = orders.StatusConfirmed
	}
	return &orders.Order{
		ID:              uuid.NewString(),
		UserID:          in.UserID,
		OrderNumber:     orders.NewOrderNumber(time.Now()),
		Status:          status,
		PaymentStatus:   payStatus,
		PaymentMethod:   in.PaymentMethod,
		PaymentRef:      in.PaymentRef,
		CheckoutKey:     in.CheckoutKey,
		Subtotal:        pb.Subtotal,
		Tax:             pb.Tax,
		Shipping:        pb.Shipping,
		Discount:        pb.Discount,
		Total:           pb.Total,
		Currency:        in.Currency,
		ShippingAddress: in.Address,
	}
}

func (c *Coordinator) insertOrderRetrying(ctx context.Context, order *orders.Order) error {
	var err error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		if err = c.Orders.InsertOrder(ctx, order); !errors.Is(err, orders.ErrDuplicateOrderNumber) {
			return err
		}
		order.OrderNumber = orders.NewOrderNumber(time.Now())
	}
	return err
}

func buildLines(orderID string, entries []catalog.CartEntry) []orders.OrderLine {
	lines := make([]orders.OrderLine, 0, len(entries))
	for _, e := range entries {
		qty := decimal.NewFromInt(int64(e.Quantity))
		lines = append(lines, orders.OrderLine{
			ID:          uuid.NewString(),
			OrderID:     orderID,
			ProductID:   e.ProductID,
			ProductName: e.ProductName,
			UnitPrice:   e.UnitPrice,
			Quantity:    e.Quantity,
			LineTotal:   e.UnitPrice.Mul(qty),
		})
	}
	return lines
}

func (c *Coordinator) decrementStock(ctx context.Context, logger zerolog.Logger, order *orders.Order, entries []catalog.CartEntry) {
	var g errgroup.Group
	for _, e := range entries {
		g.Go(func() error {
			if err := c.Catalog.DecrementStock(ctx, e.ProductID, e.Quantity); err != nil {
				logger.Error().Err(err).Str("product_id", e.ProductID).Int("qty", e.Quantity).
					Msg("stock decrement failed, queueing for reconciliation")
				c.publishDecrementFailed(order.ID, e.ProductID, e.Quantity)
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Warn().Err(err).Msg("stock decrement pass incomplete")
	}
}

func (c *Coordinator) primeCaches(ctx context.Context, in Input, order *orders.Order) {
	if c.Redis == nil {
		return
	}
	if in.CheckoutKey != "" {
		key := fmt.Sprintf(redisx.KeyIdemCheckout, in.UserID, in.CheckoutKey)
		_ = c.Redis.Set(ctx, key, order.ID, redisx.TTLIdempotency).Err()
	}
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, order.ID)
	body := redisx.StatusBody(string(order.Status), string(order.PaymentStatus))
	_ = c.Redis.Set(ctx, statusKey, body, redisx.TTLStatusCache).Err()
}

func (c *Coordinator) publishConfirmed(order *orders.Order) {
	if c.ProducerOK == nil {
		return
	}
	lines := make([]orders.LineSummary, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, orders.LineSummary{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.Service,
		CorrelationID: order.ID,
		Payload: kafkax.MustMarshal(orders.OrderConfirmedPayload{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Total:       order.Total.String(),
			Currency:    order.Currency,
			Lines:       lines,
		}),
	}
	c.ProducerOK.Publish(orders.PartitionKey(order.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (c *Coordinator) publishDecrementFailed(orderID, productID string, qty int) {
	if c.ProducerDecrFail == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventDecrementFailed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.Service,
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(orders.DecrementFailedPayload{
			OrderID:   orderID,
			ProductID: productID,
			Quantity:  qty,
		}),
	}
	c.ProducerDecrFail.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventDecrementFailed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
