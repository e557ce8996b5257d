package handler

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"storefront/model"
	"storefront/viewmodel"
)

const maxUpload = 10 << 20

func pageParam(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// showListing lands c on page in listing mode.
func showListing(r *http.Request, c *viewmodel.Catalog, page int) error {
	if c.State().Criteria != nil {
		if err := settled(c.ClearFilters(r.Context())); err != nil || page == 1 {
			return err
		}
		return settled(c.GoToPage(r.Context(), page))
	}
	return settled(c.Load(r.Context(), page))
}

// ListProducts handles GET /products?page=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	if err := showListing(r, ws.Catalog, pageParam(r)); err != nil {
		h.fail(w, r, err, "Failed to fetch products")
		return
	}
	writeData(w, http.StatusOK, toGridView(ws.Catalog))
}

func parseCriteria(r *http.Request) (model.SearchCriteria, error) {
	q := r.URL.Query()
	c := model.SearchCriteria{Term: strings.TrimSpace(q.Get("term"))}
	if v := strings.TrimSpace(q.Get("minPrice")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c, &viewmodel.ValidationError{Field: "minPrice", Message: "Minimum price must be a number"}
		}
		c.MinPrice = &d
	}
	if v := strings.TrimSpace(q.Get("maxPrice")); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c, &viewmodel.ValidationError{Field: "maxPrice", Message: "Maximum price must be a number"}
		}
		c.MaxPrice = &d
	}
	if v := strings.TrimSpace(q.Get("sort")); v != "" {
		so, err := model.ParseSortOrder(v)
		if err != nil {
			return c, &viewmodel.ValidationError{Field: "sort", Message: "Sort order must be asc or desc"}
		}
		c.SortOrder = &so
	}
	return c, nil
}

// SearchProducts handles GET /products/search?term&minPrice&maxPrice&sort&page
func (h *Handler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	criteria, err := parseCriteria(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	if err := settled(ws.Catalog.Search(r.Context(), &criteria)); err != nil {
		h.fail(w, r, err, "Failed to fetch products")
		return
	}
	if page := pageParam(r); page > 1 {
		if err := settled(ws.Catalog.GoToPage(r.Context(), page)); err != nil {
			h.fail(w, r, err, "Failed to fetch products")
			return
		}
	}
	writeData(w, http.StatusOK, toGridView(ws.Catalog))
}

// GoToPage handles POST /products/page/{page}
func (h *Handler) GoToPage(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	page, err := strconv.Atoi(mux.Vars(r)["page"])
	if err != nil {
		writeErr(w, http.StatusBadRequest, "page must be a number")
		return
	}
	if err := settled(ws.Catalog.GoToPage(r.Context(), page)); err != nil {
		h.fail(w, r, err, "Failed to fetch products")
		return
	}
	writeData(w, http.StatusOK, toGridView(ws.Catalog))
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	p, err := ws.Catalog.Product(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "Failed to fetch product")
		return
	}
	writeData(w, http.StatusOK, productDetailView{Product: toProductView(p), Actions: ws.Catalog.Capabilities()})
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

// AddToCart handles POST /products/{id}/cart
// body: { "quantity": 2 }, quantity defaults to 1
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	ws := h.workspace(w, r)
	var req quantityReq
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	if err := ws.Catalog.AddToCart(r.Context(), mux.Vars(r)["id"], qty); err != nil {
		h.fail(w, r, err, "Failed to add to cart")
		return
	}
	writeData(w, http.StatusOK, toCartView(ws.Cart.State()))
}

// --- admin ---

// adminWorkspace returns the workspace of a signed-in session, or writes 401.
func (h *Handler) adminWorkspace(w http.ResponseWriter, r *http.Request) (*Workspace, bool) {
	ws := h.workspace(w, r)
	if _, ok := ws.Identity.Identity(); !ok {
		h.fail(w, r, viewmodel.ErrUnauthenticated, "")
		return nil, false
	}
	return ws, true
}

// AdminListProducts handles GET /admin/products?page=
func (h *Handler) AdminListProducts(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.adminWorkspace(w, r)
	if !ok {
		return
	}
	if err := showListing(r, ws.Admin, pageParam(r)); err != nil {
		h.fail(w, r, err, "Failed to fetch products")
		return
	}
	writeData(w, http.StatusOK, toGridView(ws.Admin))
}

// parseProductForm reads the multipart product form: name, description,
// price and an optional imageFile.
func parseProductForm(r *http.Request) (model.ProductInput, error) {
	var in model.ProductInput
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		return in, &viewmodel.ValidationError{Message: "Invalid product form"}
	}
	in.Name = strings.TrimSpace(r.FormValue("name"))
	in.Description = strings.TrimSpace(r.FormValue("description"))
	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("price")))
	if err != nil {
		return in, &viewmodel.ValidationError{Field: "price", Message: "Price must be a number"}
	}
	in.Price = price

	f, hdr, err := r.FormFile("imageFile")
	if err == http.ErrMissingFile {
		return in, nil
	}
	if err != nil {
		return in, &viewmodel.ValidationError{Field: "imageFile", Message: "Invalid image upload"}
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return in, &viewmodel.ValidationError{Field: "imageFile", Message: "Invalid image upload"}
	}
	in.Image = &model.ImageFile{
		Filename:    hdr.Filename,
		ContentType: hdr.Header.Get("Content-Type"),
		Data:        data,
	}
	return in, nil
}

// CreateProduct handles POST /admin/products (multipart)
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.adminWorkspace(w, r)
	if !ok {
		return
	}
	if !ws.Admin.Capabilities().CanEdit {
		h.fail(w, r, viewmodel.ErrNotPermitted, "")
		return
	}
	in, err := parseProductForm(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	p, err := ws.Admin.Create(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, "Failed to create product")
		return
	}
	writeData(w, http.StatusCreated, map[string]any{"product": toProductView(p), "grid": toGridView(ws.Admin)})
}

// UpdateProduct handles PUT /admin/products/{id} (multipart)
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.adminWorkspace(w, r)
	if !ok {
		return
	}
	if !ws.Admin.Capabilities().CanEdit {
		h.fail(w, r, viewmodel.ErrNotPermitted, "")
		return
	}
	in, err := parseProductForm(r)
	if err != nil {
		h.fail(w, r, err, "")
		return
	}
	p, err := ws.Admin.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		h.fail(w, r, err, "Failed to update product")
		return
	}
	writeData(w, http.StatusOK, map[string]any{"product": toProductView(p), "grid": toGridView(ws.Admin)})
}

// DeleteProduct handles DELETE /admin/products/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.adminWorkspace(w, r)
	if !ok {
		return
	}
	if err := ws.Admin.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err, "Failed to delete product")
		return
	}
	writeData(w, http.StatusOK, toGridView(ws.Admin))
}
