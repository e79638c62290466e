package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartify/storefront-core/internal/catalog"
	"github.com/kartify/storefront-core/internal/checkout"
	"github.com/kartify/storefront-core/internal/orders"
)

type memCatalog struct {
	entries []catalog.CartEntry
	cleared bool
}

func (m *memCatalog) ListCart(ctx context.Context, userID string) ([]catalog.CartEntry, error) {
	return m.entries, nil
}
func (m *memCatalog) DecrementStock(ctx context.Context, productID string, qty int) error {
	return nil
}
func (m *memCatalog) ClearCart(ctx context.Context, userID string) error {
	m.cleared = true
	return nil
}

type memOrders struct{ inserted *orders.Order }

func (m *memOrders) InsertOrder(ctx context.Context, o *orders.Order) error {
	m.inserted = o
	return nil
}
func (m *memOrders) InsertLines(ctx context.Context, lines []orders.OrderLine) error { return nil }
func (m *memOrders) DeleteOrder(ctx context.Context, orderID string) error           { return nil }
func (m *memOrders) GetByCheckoutKey(ctx context.Context, userID, key string) (*orders.Order, error) {
	return nil, orders.ErrOrderNotFound
}

func checkoutServer(entries ...catalog.CartEntry) (*httptest.Server, *memCatalog) {
	cat := &memCatalog{entries: entries}
	c := &checkout.Coordinator{Catalog: cat, Orders: &memOrders{}, Service: "test"}
	r := NewRouter()
	(&CheckoutHandler{Coordinator: c}).Register(r)
	return httptest.NewServer(r), cat
}

func postCheckout(t *testing.T, srv *httptest.Server, userID, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/checkout", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("X-User-Id", userID)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestCheckoutEndpoint_Success(t *testing.T) {
	srv, cat := checkoutServer(catalog.CartEntry{
		ProductID: "p1", ProductName: "Product A",
		UnitPrice: decimal.NewFromInt(100), Quantity: 2, Stock: 5,
		ProductStatus: catalog.ProductActive,
	})
	defer srv.Close()

	resp := postCheckout(t, srv, "user-1",
		`{"payment_method":"cod","address":{"name":"A","line1":"12 MG Road","city":"Pune","state":"MH","postal_code":"411001"}}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body struct {
		OrderNumber string          `json:"order_number"`
		Status      orders.Status   `json:"status"`
		Total       decimal.Decimal `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body.OrderNumber)
	assert.Equal(t, orders.StatusConfirmed, body.Status)
	// 200 + 36 tax + 99 shipping
	assert.True(t, body.Total.Equal(decimal.NewFromInt(335)), "total %s", body.Total)
	assert.True(t, cat.cleared)
}

func TestCheckoutEndpoint_StockConflictCarriesShortfall(t *testing.T) {
	srv, _ := checkoutServer(catalog.CartEntry{
		ProductID: "p1", ProductName: "Product A",
		UnitPrice: decimal.NewFromInt(100), Quantity: 4, Stock: 1,
		ProductStatus: catalog.ProductActive,
	})
	defer srv.Close()

	resp := postCheckout(t, srv, "user-1", `{"payment_method":"cod","address":{}}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	var body stockErrorResp
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "p1", body.ProductID)
	assert.Equal(t, 4, body.Requested)
	assert.Equal(t, 1, body.Available)
	assert.Equal(t, 1, body.MaxSatisfiable)
}

func TestCheckoutEndpoint_EmptyCart(t *testing.T) {
	srv, _ := checkoutServer()
	defer srv.Close()

	resp := postCheckout(t, srv, "user-1", `{"payment_method":"cod","address":{}}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCheckoutEndpoint_RejectsUnknownPaymentMethod(t *testing.T) {
	srv, _ := checkoutServer()
	defer srv.Close()

	resp := postCheckout(t, srv, "user-1", `{"payment_method":"barter","address":{}}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postCheckout(t, srv, "", `{"payment_method":"cod","address":{}}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
