package client

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"storefront/model"
)

// Products is the product resource of the remote API.
type Products struct{ c *Client }

func (c *Client) Products() Products { return Products{c: c} }

// List is GET /products?page&pageSize.
func (p Products) List(ctx context.Context, page, pageSize int) (model.Page[model.Product], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	v, err := do[model.Page[model.Product]](ctx, p.c, call{op: "list products", method: http.MethodGet, path: "/products", query: q})
	return required("list products", v, err)
}

// Search is GET /products/search with only the present criteria encoded.
func (p Products) Search(ctx context.Context, criteria model.SearchCriteria) (model.Page[model.Product], error) {
	v, err := do[model.Page[model.Product]](ctx, p.c, call{op: "search products", method: http.MethodGet, path: "/products/search", query: criteria.Values()})
	return required("search products", v, err)
}

func (p Products) Get(ctx context.Context, id string) (model.Product, error) {
	v, err := do[model.Product](ctx, p.c, call{op: "get product", method: http.MethodGet, path: "/products/" + segment(id)})
	return required("get product", v, err)
}

func (p Products) Create(ctx context.Context, in model.ProductInput) (model.Product, error) {
	rc, err := multipartCall("create product", http.MethodPost, "/products", in)
	if err != nil {
		return model.Product{}, err
	}
	v, err := do[model.Product](ctx, p.c, rc)
	return required("create product", v, err)
}

func (p Products) Update(ctx context.Context, id string, in model.ProductInput) (model.Product, error) {
	rc, err := multipartCall("update product", http.MethodPut, "/products/"+segment(id), in)
	if err != nil {
		return model.Product{}, err
	}
	v, err := do[model.Product](ctx, p.c, rc)
	return required("update product", v, err)
}

func (p Products) Delete(ctx context.Context, id string) error {
	_, err := do[struct{}](ctx, p.c, call{op: "delete product", method: http.MethodDelete, path: "/products/" + segment(id)})
	return err
}

// multipartCall builds the form used by create and update: name,
// description, price and an optional imageFile part.
func multipartCall(op, method, path string, in model.ProductInput) (call, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"name", in.Name},
		{"description", in.Description},
		{"price", in.Price.String()},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return call{}, fmt.Errorf("%s: write %s: %w", op, f[0], err)
		}
	}

	if in.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="imageFile"; filename=%q`, in.Image.Filename))
		ct := in.Image.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return call{}, fmt.Errorf("%s: image part: %w", op, err)
		}
		if _, err := part.Write(in.Image.Data); err != nil {
			return call{}, fmt.Errorf("%s: write image: %w", op, err)
		}
	}
	if err := w.Close(); err != nil {
		return call{}, fmt.Errorf("%s: close form: %w", op, err)
	}
	return call{op: op, method: method, path: path, body: &buf, contentType: w.FormDataContentType()}, nil
}
