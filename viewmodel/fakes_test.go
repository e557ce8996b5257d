package viewmodel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"storefront/apitest"
	"storefront/client"
	"storefront/model"
	"storefront/session"
)

// --- hand-written fakes ---

type fakeCollection struct {
	ListFn   func(ctx context.Context, page, pageSize int) (model.Page[string], error)
	SearchFn func(ctx context.Context, c model.SearchCriteria) (model.Page[string], error)
	CreateFn func(ctx context.Context, in string) (string, error)
	UpdateFn func(ctx context.Context, id, in string) (string, error)
	DeleteFn func(ctx context.Context, id string) error
}

func (f *fakeCollection) List(ctx context.Context, page, pageSize int) (model.Page[string], error) {
	if f.ListFn != nil {
		return f.ListFn(ctx, page, pageSize)
	}
	return model.Page[string]{}, errors.New("not implemented")
}
func (f *fakeCollection) Search(ctx context.Context, c model.SearchCriteria) (model.Page[string], error) {
	if f.SearchFn != nil {
		return f.SearchFn(ctx, c)
	}
	return model.Page[string]{}, errors.New("not implemented")
}
func (f *fakeCollection) Create(ctx context.Context, in string) (string, error) {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, in)
	}
	return "", errors.New("not implemented")
}
func (f *fakeCollection) Update(ctx context.Context, id, in string) (string, error) {
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, id, in)
	}
	return "", errors.New("not implemented")
}
func (f *fakeCollection) Delete(ctx context.Context, id string) error {
	if f.DeleteFn != nil {
		return f.DeleteFn(ctx, id)
	}
	return errors.New("not implemented")
}

type fakeCart struct {
	GetFn        func(ctx context.Context) (*model.Cart, error)
	AddFn        func(ctx context.Context, productID string, qty int) (*model.Cart, error)
	UpdateItemFn func(ctx context.Context, productID string, qty int) (*model.Cart, error)
	RemoveItemFn func(ctx context.Context, productID string) (*model.Cart, error)
	ClearFn      func(ctx context.Context) error
}

func (f *fakeCart) Get(ctx context.Context) (*model.Cart, error) {
	if f.GetFn != nil {
		return f.GetFn(ctx)
	}
	return nil, nil
}
func (f *fakeCart) Add(ctx context.Context, productID string, qty int) (*model.Cart, error) {
	return f.AddFn(ctx, productID, qty)
}
func (f *fakeCart) UpdateItem(ctx context.Context, productID string, qty int) (*model.Cart, error) {
	return f.UpdateItemFn(ctx, productID, qty)
}
func (f *fakeCart) RemoveItem(ctx context.Context, productID string) (*model.Cart, error) {
	return f.RemoveItemFn(ctx, productID)
}
func (f *fakeCart) Clear(ctx context.Context) error { return f.ClearFn(ctx) }

type fakeOrders struct {
	CreateFn func(ctx context.Context, in model.CreateOrderInput) (model.Order, error)
	MineFn   func(ctx context.Context) ([]model.Order, error)
	GetFn    func(ctx context.Context, id string) (model.Order, error)
}

func (f *fakeOrders) Create(ctx context.Context, in model.CreateOrderInput) (model.Order, error) {
	return f.CreateFn(ctx, in)
}
func (f *fakeOrders) Mine(ctx context.Context) ([]model.Order, error) { return f.MineFn(ctx) }
func (f *fakeOrders) Get(ctx context.Context, id string) (model.Order, error) {
	return f.GetFn(ctx, id)
}

// --- helpers ---

func signedIn(user string) *session.Context {
	return session.Signed(session.Identity{Subject: user, Token: user})
}

// newAPI starts the fake remote API and a client authenticated by ident.
func newAPI(t *testing.T, ident *session.Context) (*apitest.Server, *client.Client) {
	t.Helper()
	srv := apitest.NewServer(t)
	c, err := client.New(client.Config{BaseURL: srv.URL}, client.WithTokens(ident))
	require.NoError(t, err)
	return srv, c
}

func stringPage(page, size, total int, items ...string) model.Page[string] {
	pages := (total + size - 1) / size
	if items == nil {
		items = []string{}
	}
	return model.Page[string]{
		Items: items, CurrentPage: page, PageSize: size, TotalItems: total, TotalPages: pages,
		HasPrev: page > 1, HasNext: page < pages,
	}
}

func cartWith(items ...model.CartItem) *model.Cart {
	c := &model.Cart{ID: "c1", UserID: "user-1", Items: items}
	for _, it := range items {
		c.TotalItems += it.Quantity
		c.TotalAmount = c.TotalAmount.Add(it.TotalPrice)
	}
	return c
}
