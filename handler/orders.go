package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/receipt"
)

// ListOrders handles GET /orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	if err := settled(ws.Orders.Load(r.Context())); err != nil {
		h.fail(w, r, err, "Failed to load orders")
		return
	}
	st := ws.Orders.State()
	v := ordersView{Orders: make([]orderView, 0, len(st.Orders)), Error: st.Err}
	for _, o := range st.Orders {
		v.Orders = append(v.Orders, toOrderView(o))
	}
	writeData(w, http.StatusOK, v)
}

// GetOrder handles GET /orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	o, err := ws.Orders.Open(r.Context(), mux.Vars(r)["id"])
	if err := settled(err); err != nil {
		h.fail(w, r, err, "Failed to load order")
		return
	}
	writeData(w, http.StatusOK, toOrderView(o))
}

// OrderReceipt handles GET /orders/{id}/receipt.pdf
// The receipt never changes the selected order.
func (h *Handler) OrderReceipt(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	o, err := ws.Orders.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Failed to load order")
		return
	}
	doc, name, err := receipt.Bytes(o)
	if err != nil {
		h.log.Error("receipt render failed", zap.String("order_id", o.ID), zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}
