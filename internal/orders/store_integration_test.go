package orders

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupOrdersDB(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("INTEGRATION") == "" {
		t.Skip("set INTEGRATION=1 to run store integration tests")
	}
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "orders",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	host, err := pg.Host(ctx)
	require.NoError(t, err)
	port, err := pg.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://testuser:testpass@%s:%s/orders?sslmode=disable", host, port.Port())
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/orders/001_init.up.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	return &Store{DB: pool}
}

func sampleOrder(checkoutKey string) *Order {
	return &Order{
		ID:            uuid.NewString(),
		UserID:        "user-1",
		OrderNumber:   NewOrderNumber(time.Now()),
		Status:        StatusConfirmed,
		PaymentStatus: PaymentPending,
		PaymentMethod: PaymentCOD,
		CheckoutKey:   checkoutKey,
		Subtotal:      decimal.NewFromInt(250),
		Tax:           decimal.NewFromInt(45),
		Shipping:      decimal.NewFromInt(99),
		Discount:      decimal.Zero,
		Total:         decimal.NewFromInt(394),
		Currency:      "INR",
		ShippingAddress: Address{
			Name: "A Kumar", Line1: "12 MG Road", City: "Pune",
			State: "MH", PostalCode: "411001", Phone: "9800000000",
		},
	}
}

func sampleLines(orderID string) []OrderLine {
	return []OrderLine{
		{
			ID: uuid.NewString(), OrderID: orderID, ProductID: uuid.NewString(),
			ProductName: "Product A", UnitPrice: decimal.NewFromInt(100),
			Quantity: 2, LineTotal: decimal.NewFromInt(200),
		},
		{
			ID: uuid.NewString(), OrderID: orderID, ProductID: uuid.NewString(),
			ProductName: "Product B", UnitPrice: decimal.NewFromInt(50),
			Quantity: 1, LineTotal: decimal.NewFromInt(50),
		},
	}
}

func TestStore_InsertAndGetRoundtrip(t *testing.T) {
	s := setupOrdersDB(t)
	ctx := context.Background()

	o := sampleOrder("")
	require.NoError(t, s.InsertOrder(ctx, o))
	require.NoError(t, s.InsertLines(ctx, sampleLines(o.ID)))

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, got.OrderNumber)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(394)))
	assert.Equal(t, "12 MG Road", got.ShippingAddress.Line1)
	assert.Len(t, got.Lines, 2)

	// creation wrote the first timeline entry
	require.Len(t, got.Timeline, 1)
	assert.Equal(t, StatusConfirmed, got.Timeline[0].Status)
}

func TestStore_DuplicateOrderNumber(t *testing.T) {
	s := setupOrdersDB(t)
	ctx := context.Background()

	first := sampleOrder("")
	require.NoError(t, s.InsertOrder(ctx, first))

	second := sampleOrder("")
	second.OrderNumber = first.OrderNumber
	err := s.InsertOrder(ctx, second)
	assert.ErrorIs(t, err, ErrDuplicateOrderNumber)
}

func TestStore_DuplicateCheckoutKey(t *testing.T) {
	s := setupOrdersDB(t)
	ctx := context.Background()

	require.NoError(t, s.InsertOrder(ctx, sampleOrder("key-1")))
	err := s.InsertOrder(ctx, sampleOrder("key-1"))
	assert.ErrorIs(t, err, ErrDuplicateCheckoutKey)

	// empty keys never collide
	require.NoError(t, s.InsertOrder(ctx, sampleOrder("")))
	require.NoError(t, s.InsertOrder(ctx, sampleOrder("")))
}

func TestStore_GetByCheckoutKey(t *testing.T) {
	s := setupOrdersDB(t)
	ctx := context.Background()

	o := sampleOrder("key-9")
	require.NoError(t, s.InsertOrder(ctx, o))
	require.NoError(t, s.InsertLines(ctx, sampleLines(o.ID)))

	got, err := s.GetByCheckoutKey(ctx, "user-1", "key-9")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Len(t, got.Lines, 2)

	_, err = s.GetByCheckoutKey(ctx, "user-1", "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStore_DeleteOrderRemovesEverything(t *testing.T) {
	s := setupOrdersDB(t)
	ctx := context.Background()

	o := sampleOrder("")
	require.NoError(t, s.InsertOrder(ctx, o))
	require.NoError(t, s.InsertLines(ctx, sampleLines(o.ID)))

	require.NoError(t, s.DeleteOrder(ctx, o.ID))

	_, err := s.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStore_UpdateStatusAppendsTimeline(t *testing.T) {
	s := setupOrdersDB(t)
	ctx := context.Background()

	o := sampleOrder("")
	require.NoError(t, s.InsertOrder(ctx, o))

	from, payment, err := s.UpdateStatus(ctx, o.ID, StatusProcessing, "packing started")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, from)
	assert.Equal(t, PaymentPending, payment)

	from, _, err = s.UpdateStatus(ctx, o.ID, StatusShipped, "handed to courier")
	require.NoError(t, err)
	assert.Equal(t, StatusProcessing, from)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, got.Status)

	// append-only, in order
	require.Len(t, got.Timeline, 3)
	assert.Equal(t, StatusConfirmed, got.Timeline[0].Status)
	assert.Equal(t, StatusProcessing, got.Timeline[1].Status)
	assert.Equal(t, StatusShipped, got.Timeline[2].Status)
	assert.Equal(t, "handed to courier", got.Timeline[2].Note)
}

func TestStore_UpdateStatusRejectsIllegalTransition(t *testing.T) {
	s := setupOrdersDB(t)
	ctx := context.Background()

	o := sampleOrder("")
	require.NoError(t, s.InsertOrder(ctx, o))

	_, _, err := s.UpdateStatus(ctx, o.ID, StatusDelivered, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := s.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Len(t, got.Timeline, 1, "no timeline entry for a rejected transition")
}
