package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kartify/storefront-core/internal/catalog"
)

type CartHandler struct {
	Guard *catalog.Guard
	Store *catalog.Store
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.getCart)
	r.Post("/cart/items", h.addItem)
	r.Put("/cart/items/{productID}", h.setQuantity)
	r.Delete("/cart/items/{productID}", h.removeItem)
}

type cartMutationReq struct {
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type cartLineResp struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type cartLimitResp struct {
	Error     string `json:"error"`
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	InCart    int    `json:"in_cart"`
	Available int    `json:"available"`
	MaxCanAdd int    `json:"max_can_add"`
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing user"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	entries, err := h.Store.ListCart(ctx, uid)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	var req cartMutationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if uid == "" || req.ProductID == "" || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	line, err := h.Guard.Add(ctx, uid, req.ProductID, req.Quantity)
	if err != nil {
		h.writeGuardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartLineResp{ID: line.ID, ProductID: line.ProductID, Quantity: line.Quantity})
}

func (h *CartHandler) setQuantity(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	productID := chi.URLParam(r, "productID")
	var req cartMutationReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if uid == "" || productID == "" || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	line, err := h.Guard.SetQuantity(ctx, uid, productID, req.Quantity)
	if err != nil {
		h.writeGuardError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cartLineResp{ID: line.ID, ProductID: line.ProductID, Quantity: line.Quantity})
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	productID := chi.URLParam(r, "productID")
	if uid == "" || productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Store.RemoveCartLine(ctx, uid, productID); err != nil {
		if errors.Is(err, catalog.ErrCartLineNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) writeGuardError(w http.ResponseWriter, err error) {
	var limitErr *catalog.CartLimitError
	switch {
	case errors.As(err, &limitErr):
		writeJSON(w, http.StatusConflict, cartLimitResp{
			Error:     limitErr.Unwrap().Error(),
			ProductID: limitErr.ProductID,
			Requested: limitErr.Requested,
			InCart:    limitErr.InCart,
			Available: limitErr.Available,
			MaxCanAdd: limitErr.MaxCanAdd,
		})
	case errors.Is(err, catalog.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
	case errors.Is(err, catalog.ErrProductUnavailable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "product unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
