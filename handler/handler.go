// Package handler serves the storefront view state over HTTP. Each browser
// session gets its own Workspace of view-models; handlers only translate
// requests into view-model operations and render the resulting state.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"storefront/client"
	"storefront/config"
	"storefront/session"
	"storefront/viewmodel"
)

// Handler is the HTTP layer over the per-session workspaces.
type Handler struct {
	api      *client.Client
	sessions *session.Manager
	cfg      *config.Config
	log      *zap.Logger

	// session id -> *Workspace
	workspaces sync.Map
}

// NewHandler returns a Handler instance
func NewHandler(api *client.Client, sessions *session.Manager, cfg *config.Config, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{api: api, sessions: sessions, cfg: cfg, log: log}
}

// Router returns a router with the middleware chain and every route.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(RequestIDMiddleware, LoggingMiddleware(h.log), RecoveryMiddleware(h.log), CORSMiddleware(&h.cfg.CORS))
	r.Use(RateLimitMiddleware(&h.cfg.Server.RateLimit))
	// preflight requests only need to reach the CORS middleware
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	// Session
	r.HandleFunc("/session", h.GetSession).Methods("GET")
	r.HandleFunc("/session", h.SignIn).Methods("POST")
	r.HandleFunc("/session", h.SignOut).Methods("DELETE")

	// Products
	r.HandleFunc("/products", h.ListProducts).Methods("GET")
	r.HandleFunc("/products/search", h.SearchProducts).Methods("GET")
	r.HandleFunc("/products/page/{page}", h.GoToPage).Methods("POST")
	r.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")
	r.HandleFunc("/products/{id}/cart", h.AddToCart).Methods("POST")

	// Admin products
	r.HandleFunc("/admin/products", h.AdminListProducts).Methods("GET")
	r.HandleFunc("/admin/products", h.CreateProduct).Methods("POST")
	r.HandleFunc("/admin/products/{id}", h.UpdateProduct).Methods("PUT")
	r.HandleFunc("/admin/products/{id}", h.DeleteProduct).Methods("DELETE")

	// Cart
	r.HandleFunc("/cart", h.GetCart).Methods("GET")
	r.HandleFunc("/cart", h.ClearCart).Methods("DELETE")
	r.HandleFunc("/cart/items/{productId}", h.UpdateCartItem).Methods("PATCH")
	r.HandleFunc("/cart/items/{productId}", h.RemoveCartItem).Methods("DELETE")

	// Checkout
	r.HandleFunc("/checkout", h.BeginCheckout).Methods("GET")
	r.HandleFunc("/checkout", h.SubmitCheckout).Methods("POST")

	// Orders
	r.HandleFunc("/orders", h.ListOrders).Methods("GET")
	r.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET")
	r.HandleFunc("/orders/{id}/receipt.pdf", h.OrderReceipt).Methods("GET")

	r.HandleFunc("/notifications", h.Notifications).Methods("GET")
}

// Sweep drops workspaces idle for longer than idle, or longer than
// anonymousIdle when nobody is signed in, and reports how many.
func (h *Handler) Sweep(idle, anonymousIdle time.Duration) int {
	now := time.Now()
	n := 0
	h.workspaces.Range(func(k, v any) bool {
		ws := v.(*Workspace)
		limit := idle
		if _, ok := ws.Identity.Identity(); !ok && anonymousIdle < limit {
			limit = anonymousIdle
		}
		if ws.idleSince(now) > limit {
			h.workspaces.Delete(k)
			n++
		}
		return true
	})
	return n
}

// --- sessions ---

func (h *Handler) sessionID(r *http.Request) string {
	c, err := r.Cookie(h.cfg.Auth.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) setCookie(w http.ResponseWriter, sid string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    sid,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Auth.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// workspace returns the Workspace of the request's session, creating an
// anonymous session when the request carries none. A workspace missing
// from memory is rebuilt from the session store.
func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) *Workspace {
	sid := h.sessionID(r)
	if sid == "" {
		sid = session.NewSessionID()
		h.setCookie(w, sid, time.Time{})
	}
	if v, ok := h.workspaces.Load(sid); ok {
		ws := v.(*Workspace)
		ws.touch()
		return ws
	}

	ident := session.NewContext()
	id, err := h.sessions.Resume(r.Context(), sid)
	switch {
	case err == nil:
		ident.SignIn(id)
	case !errors.Is(err, session.ErrNoIdentity):
		h.log.Warn("session resume failed", zap.Error(err), zap.String("request_id", client.RequestIDFrom(r.Context())))
	}
	ws := newWorkspace(h.api, ident, h.cfg.API.PageSize, h.log)
	actual, _ := h.workspaces.LoadOrStore(sid, ws)
	return actual.(*Workspace)
}

// --- helpers ---

type response struct {
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	Field     string `json:"field,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, response{Success: true, Data: data})
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, response{Success: false, Message: msg})
}

// fail maps an operation error onto a status code and envelope.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var ve *viewmodel.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, response{Message: ve.Message, Field: ve.Field})
	case errors.Is(err, viewmodel.ErrNotPermitted):
		writeErr(w, http.StatusForbidden, "You do not have permission to do that")
	case errors.Is(err, viewmodel.ErrUnauthenticated), errors.Is(err, session.ErrNoIdentity):
		writeErr(w, http.StatusUnauthorized, "Please sign in")
	case errors.Is(err, session.ErrInvalidToken):
		writeErr(w, http.StatusUnauthorized, "Invalid access token")
	case errors.Is(err, viewmodel.ErrLineBusy):
		writeErr(w, http.StatusConflict, "This item is already updating")
	case errors.Is(err, viewmodel.ErrSubmitInProgress):
		writeErr(w, http.StatusConflict, "Your order is already being placed")
	case errors.Is(err, viewmodel.ErrEmptyCart):
		writeJSON(w, http.StatusConflict, response{Message: "Your cart is empty", Redirect: "/cart"})
	default:
		h.log.Warn("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", client.RequestIDFrom(r.Context())),
			zap.Error(err))
		writeErr(w, http.StatusBadGateway, viewmodel.UserMessage(err, fallback))
	}
}

// settled treats a superseded fetch as success; the newer request already
// owns the state.
func settled(err error) error {
	if errors.Is(err, viewmodel.ErrSuperseded) {
		return nil
	}
	return err
}

func decodeJSON(r *http.Request, v any) error {
	if r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// --- misc ---

// Healthz handles GET /healthz
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Notifications handles GET /notifications
func (h *Handler) Notifications(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	writeData(w, http.StatusOK, ws.Inbox.Drain())
}
