package client

import (
	"context"
	"net/http"

	"storefront/model"
)

// Orders is the order resource of the remote API. Orders are never
// mutated after creation.
type Orders struct{ c *Client }

func (c *Client) Orders() Orders { return Orders{c: c} }

func (o Orders) Create(ctx context.Context, in model.CreateOrderInput) (model.Order, error) {
	rc, err := jsonCall("create order", http.MethodPost, "/orders", in)
	if err != nil {
		return model.Order{}, err
	}
	v, err := do[model.Order](ctx, o.c, rc)
	return required("create order", v, err)
}

// Mine is GET /orders/my. A null list decodes as no orders.
func (o Orders) Mine(ctx context.Context) ([]model.Order, error) {
	v, err := do[[]model.Order](ctx, o.c, call{op: "list orders", method: http.MethodGet, path: "/orders/my"})
	if err != nil {
		return nil, err
	}
	if v == nil {
		return []model.Order{}, nil
	}
	return *v, nil
}

func (o Orders) Get(ctx context.Context, id string) (model.Order, error) {
	v, err := do[model.Order](ctx, o.c, call{op: "get order", method: http.MethodGet, path: "/orders/" + segment(id)})
	return required("get order", v, err)
}
