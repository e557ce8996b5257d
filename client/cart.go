package client

import (
	"context"
	"net/http"

	"storefront/model"
)

// CartService is the authenticated user's cart on the remote API. Every
// mutation returns the authoritative new cart. A nil cart means the server
// has none for the user yet.
type CartService struct{ c *Client }

func (c *Client) Cart() CartService { return CartService{c: c} }

func (s CartService) Get(ctx context.Context) (*model.Cart, error) {
	return do[model.Cart](ctx, s.c, call{op: "get cart", method: http.MethodGet, path: "/cart"})
}

func (s CartService) Add(ctx context.Context, productID string, quantity int) (*model.Cart, error) {
	rc, err := jsonCall("add to cart", http.MethodPost, "/cart/items", struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}{productID, quantity})
	if err != nil {
		return nil, err
	}
	return do[model.Cart](ctx, s.c, rc)
}

func (s CartService) UpdateItem(ctx context.Context, productID string, quantity int) (*model.Cart, error) {
	rc, err := jsonCall("update cart item", http.MethodPatch, "/cart/items/"+segment(productID), struct {
		Quantity int `json:"quantity"`
	}{quantity})
	if err != nil {
		return nil, err
	}
	return do[model.Cart](ctx, s.c, rc)
}

func (s CartService) RemoveItem(ctx context.Context, productID string) (*model.Cart, error) {
	return do[model.Cart](ctx, s.c, call{op: "remove cart item", method: http.MethodDelete, path: "/cart/items/" + segment(productID)})
}

func (s CartService) Clear(ctx context.Context) error {
	_, err := do[struct{}](ctx, s.c, call{op: "clear cart", method: http.MethodDelete, path: "/cart"})
	return err
}
