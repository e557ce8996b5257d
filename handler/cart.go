package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"storefront/viewmodel"
)

// GetCart handles GET /cart
// A signed-out session is rendered as the unauthenticated cart state.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	err := settled(ws.Cart.Load(r.Context()))
	if err != nil && !errors.Is(err, viewmodel.ErrUnauthenticated) {
		h.fail(w, r, err, "Failed to load cart")
		return
	}
	writeData(w, http.StatusOK, toCartView(ws.Cart.State()))
}

// UpdateCartItem handles PATCH /cart/items/{productId}
// body: { "quantity": 3 }
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	var req quantityReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Quantity == nil {
		writeErr(w, http.StatusBadRequest, "quantity is required")
		return
	}
	if err := ws.Cart.SetQuantity(r.Context(), mux.Vars(r)["productId"], *req.Quantity); err != nil {
		h.fail(w, r, err, "Failed to update cart")
		return
	}
	writeData(w, http.StatusOK, toCartView(ws.Cart.State()))
}

// RemoveCartItem handles DELETE /cart/items/{productId}
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	if err := ws.Cart.Remove(r.Context(), mux.Vars(r)["productId"]); err != nil {
		h.fail(w, r, err, "Failed to remove item")
		return
	}
	writeData(w, http.StatusOK, toCartView(ws.Cart.State()))
}

// ClearCart handles DELETE /cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	if err := ws.Cart.Clear(r.Context()); err != nil {
		h.fail(w, r, err, "Failed to clear cart")
		return
	}
	writeData(w, http.StatusOK, toCartView(ws.Cart.State()))
}

// BeginCheckout handles GET /checkout
func (h *Handler) BeginCheckout(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	if err := ws.Checkout.Begin(r.Context()); err != nil {
		h.fail(w, r, err, "Failed to load cart")
		return
	}
	writeData(w, http.StatusOK, toCheckoutView(ws))
}

// SubmitCheckout handles POST /checkout
// body: { "shippingAddress": "...", "notes": "..." }
func (h *Handler) SubmitCheckout(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	var form viewmodel.CheckoutForm
	if err := decodeJSON(r, &form); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if _, err := ws.Checkout.Submit(r.Context(), form); err != nil {
		h.fail(w, r, err, "Failed to place order")
		return
	}
	writeData(w, http.StatusCreated, toCheckoutView(ws))
}
