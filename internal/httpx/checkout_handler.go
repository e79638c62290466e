package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kartify/storefront-core/internal/checkout"
	"github.com/kartify/storefront-core/internal/orders"
)

type CheckoutHandler struct {
	Coordinator *checkout.Coordinator
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.checkout)
}

type addressReq struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
}

type checkoutReq struct {
	PaymentMethod string          `json:"payment_method"`
	PaymentRef    string          `json:"payment_ref,omitempty"`
	CheckoutKey   string          `json:"checkout_key,omitempty"`
	Discount      decimal.Decimal `json:"discount"`
	Currency      string          `json:"currency,omitempty"`
	Address       addressReq      `json:"address"`
}

type stockErrorResp struct {
	Error          string `json:"error"`
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Requested      int    `json:"requested"`
	Available      int    `json:"available"`
	MaxSatisfiable int    `json:"max_satisfiable"`
}

func (h *CheckoutHandler) checkout(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	method := orders.PaymentMethod(req.PaymentMethod)
	if uid == "" || (method != orders.PaymentCOD && method != orders.PaymentOnline) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	// The coordinator detaches from this deadline once the order row is
	// durable; the timeout only bounds the pre-insert steps.
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	order, err := h.Coordinator.Fulfill(ctx, checkout.Input{
		UserID:        uid,
		PaymentMethod: method,
		PaymentRef:    req.PaymentRef,
		CheckoutKey:   req.CheckoutKey,
		Discount:      req.Discount,
		Currency:      req.Currency,
		Address: orders.Address{
			Name:       req.Address.Name,
			Line1:      req.Address.Line1,
			Line2:      req.Address.Line2,
			City:       req.Address.City,
			State:      req.Address.State,
			PostalCode: req.Address.PostalCode,
			Phone:      req.Address.Phone,
		},
	})
	if err != nil {
		h.writeCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderResp(order))
}

func (h *CheckoutHandler) writeCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *checkout.StockError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, stockErrorResp{
			Error:          stockErr.Unwrap().Error(),
			ProductID:      stockErr.ProductID,
			ProductName:    stockErr.ProductName,
			Requested:      stockErr.Requested,
			Available:      stockErr.Available,
			MaxSatisfiable: stockErr.MaxSatisfiable,
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
