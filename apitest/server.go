package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"storefront/model"
)

// Route names accepted by Backend.FailNext and Backend.Calls.
const (
	RouteListProducts   = "listProducts"
	RouteSearchProducts = "searchProducts"
	RouteGetProduct     = "getProduct"
	RouteCreateProduct  = "createProduct"
	RouteUpdateProduct  = "updateProduct"
	RouteDeleteProduct  = "deleteProduct"
	RouteGetCart        = "getCart"
	RouteAddCartItem    = "addCartItem"
	RouteUpdateCartItem = "updateCartItem"
	RouteRemoveCartItem = "removeCartItem"
	RouteClearCart      = "clearCart"
	RouteCreateOrder    = "createOrder"
	RouteMyOrders       = "myOrders"
	RouteGetOrder       = "getOrder"
)

// Server serves a Backend over HTTP.
type Server struct {
	*httptest.Server
	Backend *Backend
}

// NewServer starts a fake API that is closed when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	b := NewBackend()
	s := &Server{Backend: b}
	s.Server = httptest.NewServer(Router(b))
	t.Cleanup(s.Close)
	return s
}

// Router exposes the fake API routes for b.
func Router(b *Backend) *mux.Router {
	a := &api{b: b}
	r := mux.NewRouter()

	r.HandleFunc("/products", a.wrap(RouteListProducts, a.listProducts)).Methods(http.MethodGet)
	r.HandleFunc("/products/search", a.wrap(RouteSearchProducts, a.searchProducts)).Methods(http.MethodGet)
	r.HandleFunc("/products", a.wrap(RouteCreateProduct, a.createProduct)).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", a.wrap(RouteGetProduct, a.getProduct)).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", a.wrap(RouteUpdateProduct, a.updateProduct)).Methods(http.MethodPut)
	r.HandleFunc("/products/{id}", a.wrap(RouteDeleteProduct, a.deleteProduct)).Methods(http.MethodDelete)

	r.HandleFunc("/cart", a.wrap(RouteGetCart, a.authed(a.getCart))).Methods(http.MethodGet)
	r.HandleFunc("/cart", a.wrap(RouteClearCart, a.authed(a.clearCart))).Methods(http.MethodDelete)
	r.HandleFunc("/cart/items", a.wrap(RouteAddCartItem, a.authed(a.addCartItem))).Methods(http.MethodPost)
	r.HandleFunc("/cart/items/{productId}", a.wrap(RouteUpdateCartItem, a.authed(a.updateCartItem))).Methods(http.MethodPatch)
	r.HandleFunc("/cart/items/{productId}", a.wrap(RouteRemoveCartItem, a.authed(a.removeCartItem))).Methods(http.MethodDelete)

	r.HandleFunc("/orders", a.wrap(RouteCreateOrder, a.authed(a.createOrder))).Methods(http.MethodPost)
	r.HandleFunc("/orders/my", a.wrap(RouteMyOrders, a.authed(a.myOrders))).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", a.wrap(RouteGetOrder, a.authed(a.getOrder))).Methods(http.MethodGet)
	return r
}

type api struct{ b *Backend }

type userHandler func(w http.ResponseWriter, r *http.Request, user string)

func (a *api) wrap(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if hd, ok := a.b.takeHold(route); ok {
			close(hd.parked)
			<-hd.release
		}
		if f, ok := a.b.record(route); ok {
			status := f.status
			if status == 0 {
				status = http.StatusOK
			}
			writeFailure(w, status, f.message, nil)
			return
		}
		h(w, r)
	}
}

func (a *api) authed(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		if user == "" {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		h(w, r, user)
	}
}

// --- helpers ---

func writeData(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"message":    "Success",
		"statusCode": code,
		"data":       data,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func writeFailure(w http.ResponseWriter, code int, msg string, validation map[string][]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(model.Envelope[struct{}]{
		Success:    false,
		Message:    msg,
		StatusCode: code,
		Error:      &model.ErrorDetails{ErrorMessage: msg, ValidationErrors: validation},
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

func intParam(r *http.Request, key string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(key))
	return n
}

// --- products ---

func (a *api) listProducts(w http.ResponseWriter, r *http.Request) {
	a.b.mu.Lock()
	page := paginate(a.b.products, intParam(r, "page"), intParam(r, "pageSize"))
	a.b.mu.Unlock()
	writeData(w, http.StatusOK, page)
}

func (a *api) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	c := model.SearchCriteria{Term: q.Get("searchTerm")}
	for key, dst := range map[string]**decimal.Decimal{"minPrice": &c.MinPrice, "maxPrice": &c.MaxPrice} {
		if v := q.Get(key); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				writeFailure(w, http.StatusBadRequest, "Invalid "+key, nil)
				return
			}
			*dst = &d
		}
	}
	if v := q.Get("sortOrder"); v != "" {
		so, err := model.ParseSortOrder(v)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid sortOrder", nil)
			return
		}
		c.SortOrder = &so
	}

	a.b.mu.Lock()
	page := paginate(a.b.search(c), intParam(r, "page"), intParam(r, "pageSize"))
	a.b.mu.Unlock()
	writeData(w, http.StatusOK, page)
}

func (a *api) getProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a.b.mu.Lock()
	i, ok := a.b.findProduct(id)
	var p model.Product
	if ok {
		p = a.b.products[i]
	}
	a.b.mu.Unlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeData(w, http.StatusOK, p)
}

func parseProductForm(r *http.Request) (model.Product, map[string][]string, error) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		return model.Product{}, nil, err
	}
	p := model.Product{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: r.FormValue("description"),
	}
	problems := map[string][]string{}
	if p.Name == "" {
		problems["name"] = []string{"Name is required"}
	}
	price, err := decimal.NewFromString(r.FormValue("price"))
	if err != nil || price.IsNegative() {
		problems["price"] = []string{"Price must be a non-negative number"}
	}
	p.Price = price
	if _, hdr, err := r.FormFile("imageFile"); err == nil {
		p.Image = "/images/" + hdr.Filename
	}
	if len(problems) > 0 {
		return p, problems, nil
	}
	return p, nil, nil
}

func (a *api) createProduct(w http.ResponseWriter, r *http.Request) {
	p, problems, err := parseProductForm(r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid form", nil)
		return
	}
	if problems != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", problems)
		return
	}
	a.b.mu.Lock()
	p.ID = a.b.nextID("p")
	a.b.products = append(a.b.products, p)
	a.b.mu.Unlock()
	writeData(w, http.StatusCreated, p)
}

func (a *api) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, problems, err := parseProductForm(r)
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid form", nil)
		return
	}
	if problems != nil {
		writeFailure(w, http.StatusBadRequest, "Validation failed", problems)
		return
	}
	a.b.mu.Lock()
	i, ok := a.b.findProduct(id)
	if ok {
		p.ID = id
		if p.Image == "" {
			p.Image = a.b.products[i].Image
		}
		a.b.products[i] = p
	}
	a.b.mu.Unlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeData(w, http.StatusOK, p)
}

func (a *api) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	a.b.mu.Lock()
	i, ok := a.b.findProduct(id)
	if ok {
		a.b.products = append(a.b.products[:i], a.b.products[i+1:]...)
	}
	a.b.mu.Unlock()
	if !ok {
		writeFailure(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeData(w, http.StatusOK, nil)
}

// --- cart ---

func (a *api) getCart(w http.ResponseWriter, r *http.Request, user string) {
	a.b.mu.Lock()
	c := a.b.carts[user].Clone()
	a.b.mu.Unlock()
	writeData(w, http.StatusOK, c)
}

func (a *api) addCartItem(w http.ResponseWriter, r *http.Request, user string) {
	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if req.Quantity < 1 {
		writeFailure(w, http.StatusBadRequest, "Quantity must be at least 1", nil)
		return
	}

	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	i, ok := a.b.findProduct(req.ProductID)
	if !ok {
		writeFailure(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	p := a.b.products[i]
	c := a.b.carts[user]
	if c == nil {
		now := time.Now().UTC()
		c = &model.Cart{ID: a.b.nextID("c"), UserID: user, Items: []model.CartItem{}, CreatedAt: model.NewTimestamp(now)}
		a.b.carts[user] = c
	}
	merged := false
	for j := range c.Items {
		if c.Items[j].ProductID == p.ID {
			c.Items[j].Quantity += req.Quantity
			merged = true
		}
	}
	if !merged {
		c.Items = append(c.Items, model.CartItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: req.Quantity, ImageURL: p.Image})
	}
	recompute(c)
	writeData(w, http.StatusOK, c.Clone())
}

func (a *api) updateCartItem(w http.ResponseWriter, r *http.Request, user string) {
	id := mux.Vars(r)["productId"]
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if req.Quantity < 1 {
		writeFailure(w, http.StatusBadRequest, "Quantity must be at least 1", nil)
		return
	}

	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	c := a.b.carts[user]
	if c == nil {
		writeFailure(w, http.StatusNotFound, "Cart not found", nil)
		return
	}
	for j := range c.Items {
		if c.Items[j].ProductID == id {
			c.Items[j].Quantity = req.Quantity
			recompute(c)
			writeData(w, http.StatusOK, c.Clone())
			return
		}
	}
	writeFailure(w, http.StatusNotFound, "Item not in cart", nil)
}

func (a *api) removeCartItem(w http.ResponseWriter, r *http.Request, user string) {
	id := mux.Vars(r)["productId"]
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	c := a.b.carts[user]
	if c == nil {
		writeFailure(w, http.StatusNotFound, "Cart not found", nil)
		return
	}
	for j := range c.Items {
		if c.Items[j].ProductID == id {
			c.Items = append(c.Items[:j], c.Items[j+1:]...)
			recompute(c)
			writeData(w, http.StatusOK, c.Clone())
			return
		}
	}
	writeFailure(w, http.StatusNotFound, "Item not in cart", nil)
}

func (a *api) clearCart(w http.ResponseWriter, r *http.Request, user string) {
	a.b.mu.Lock()
	delete(a.b.carts, user)
	a.b.mu.Unlock()
	writeData(w, http.StatusOK, nil)
}

// --- orders ---

func (a *api) createOrder(w http.ResponseWriter, r *http.Request, user string) {
	var in model.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if strings.TrimSpace(in.ShippingAddress) == "" {
		writeFailure(w, http.StatusBadRequest, "Validation failed", map[string][]string{"shippingAddress": {"Shipping address is required"}})
		return
	}

	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	c := a.b.carts[user]
	if c.IsEmpty() {
		writeFailure(w, http.StatusOK, "Cart is empty", nil)
		return
	}
	now := time.Now().UTC()
	o := model.Order{
		ID:              a.b.nextID("o"),
		UserID:          user,
		TotalAmount:     c.TotalAmount,
		TotalItems:      c.TotalItems,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
		Status:          model.OrderPending,
		CreatedAt:       model.NewTimestamp(now),
		UpdatedAt:       model.NewTimestamp(now),
	}
	for _, it := range c.Items {
		o.Items = append(o.Items, model.OrderItem{
			ProductID: it.ProductID, Name: it.Name, Price: it.Price,
			Quantity: it.Quantity, ImageURL: it.ImageURL, TotalPrice: it.TotalPrice,
		})
	}
	a.b.orders[user] = append([]model.Order{o}, a.b.orders[user]...)
	delete(a.b.carts, user)
	writeData(w, http.StatusCreated, o)
}

func (a *api) myOrders(w http.ResponseWriter, r *http.Request, user string) {
	a.b.mu.Lock()
	list := append([]model.Order{}, a.b.orders[user]...)
	a.b.mu.Unlock()
	writeData(w, http.StatusOK, list)
}

func (a *api) getOrder(w http.ResponseWriter, r *http.Request, user string) {
	id := mux.Vars(r)["id"]
	a.b.mu.Lock()
	defer a.b.mu.Unlock()
	for _, o := range a.b.orders[user] {
		if o.ID == id {
			writeData(w, http.StatusOK, o)
			return
		}
	}
	writeFailure(w, http.StatusNotFound, "Order not found", nil)
}
