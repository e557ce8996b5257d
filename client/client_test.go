package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/apitest"
	"storefront/client"
	"storefront/model"
)

func newClient(t *testing.T, baseURL, token string) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{BaseURL: baseURL}, client.WithTokens(client.TokenSourceFunc(
		func(context.Context) (string, error) { return token, nil },
	)))
	require.NoError(t, err)
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := client.New(client.Config{BaseURL: "  "})
	assert.Error(t, err)
}

func TestProducts_ListAndSearch(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Backend.Seed(
		model.Product{Name: "Blue shirt", Price: decimal.NewFromInt(25)},
		model.Product{Name: "Red shirt", Price: decimal.NewFromInt(15)},
		model.Product{Name: "Jeans", Price: decimal.NewFromInt(40)},
	)
	c := newClient(t, srv.URL, "")
	ctx := context.Background()

	page, err := c.Products().List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalItems)
	assert.Equal(t, 2, page.TotalPages)
	assert.True(t, page.HasNext)
	assert.True(t, page.InRange())

	desc := model.SortDescending
	max := decimal.NewFromInt(30)
	res, err := c.Products().Search(ctx, model.SearchCriteria{Term: "shirt", MaxPrice: &max, SortOrder: &desc, Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "Red shirt", res.Items[0].Name)
	assert.Equal(t, "Blue shirt", res.Items[1].Name)
}

func TestProducts_CreateUpdateDeleteMultipart(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newClient(t, srv.URL, "admin")
	ctx := context.Background()

	created, err := c.Products().Create(ctx, model.ProductInput{
		Name:  "Hat",
		Price: decimal.RequireFromString("9.99"),
		Image: &model.ImageFile{Filename: "hat.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "/images/hat.png", created.Image)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("9.99")))

	updated, err := c.Products().Update(ctx, created.ID, model.ProductInput{Name: "Cap", Price: decimal.NewFromInt(5)})
	require.NoError(t, err)
	assert.Equal(t, "Cap", updated.Name)
	assert.Equal(t, "/images/hat.png", updated.Image, "no new image keeps the old one")

	got, err := c.Products().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cap", got.Name)

	require.NoError(t, c.Products().Delete(ctx, created.ID))
	_, err = c.Products().Get(ctx, created.ID)
	assert.True(t, client.IsTransport(err), "404 is a transport failure: %v", err)
}

func TestCart_RoundTrip(t *testing.T) {
	srv := apitest.NewServer(t)
	ps := srv.Backend.Seed(model.Product{Name: "Tee", Price: decimal.RequireFromString("10.00")})
	c := newClient(t, srv.URL, "user-1")
	ctx := context.Background()

	cart, err := c.Cart().Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, cart, "no cart yet")

	cart, err = c.Cart().Add(ctx, ps[0].ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "$10.00", model.FormatUSD(cart.TotalAmount))

	cart, err = c.Cart().UpdateItem(ctx, ps[0].ID, 2)
	require.NoError(t, err)
	it, ok := cart.Item(ps[0].ID)
	require.True(t, ok)
	assert.Equal(t, 2, it.Quantity)
	assert.Equal(t, "$20.00", model.FormatUSD(it.TotalPrice))

	cart, err = c.Cart().RemoveItem(ctx, ps[0].ID)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	require.NoError(t, c.Cart().Clear(ctx))
	assert.Nil(t, srv.Backend.Cart("user-1"))
}

func TestCart_AnonymousIsRejected(t *testing.T) {
	srv := apitest.NewServer(t)
	c := newClient(t, srv.URL, "")

	_, err := c.Cart().Get(context.Background())
	var te *client.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
}

func TestOrders_CreateMineGet(t *testing.T) {
	srv := apitest.NewServer(t)
	ps := srv.Backend.SeedN(1)
	c := newClient(t, srv.URL, "user-1")
	ctx := context.Background()

	mine, err := c.Orders().Mine(ctx)
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = c.Cart().Add(ctx, ps[0].ID, 3)
	require.NoError(t, err)

	o, err := c.Orders().Create(ctx, model.CreateOrderInput{ShippingAddress: "1 Main St"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderPending, o.Status)
	assert.Equal(t, 3, o.TotalItems)

	got, err := c.Orders().Get(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	mine, err = c.Orders().Mine(ctx)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestSemanticFailure_IsAPIError(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.Backend.FailNext(apitest.RouteListProducts, 0, "Catalog is offline")
	c := newClient(t, srv.URL, "")

	_, err := c.Products().List(context.Background(), 1, 10)
	ae, ok := client.AsAPIError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "Catalog is offline", ae.Message)
	assert.False(t, client.IsTransport(err))

	_, err = c.Products().List(context.Background(), 1, 10)
	assert.NoError(t, err, "failure injection is one-shot")
}

func TestEnvelopeEdgeCases(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		check func(t *testing.T, err error)
	}{
		{
			name: "failed envelope data is ignored",
			body: `{"success":false,"data":{"id":"x"},"error":{"errorMessage":"boom"}}`,
			check: func(t *testing.T, err error) {
				ae, ok := client.AsAPIError(err)
				require.True(t, ok)
				assert.Equal(t, "boom", ae.Message)
			},
		},
		{
			name: "undecodable body",
			body: `<html>`,
			check: func(t *testing.T, err error) {
				assert.True(t, client.IsTransport(err))
			},
		},
		{
			name: "null data on required result",
			body: `{"success":true,"data":null}`,
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, client.ErrEmptyResponse))
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tc.body)
			}))
			defer ts.Close()

			_, err := newClient(t, ts.URL, "").Products().Get(context.Background(), "x")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestHeaders_RequestIDAndBearer(t *testing.T) {
	var gotID, gotAuth, gotPath string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get(client.RequestIDHeader)
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"success":true,"data":{"id":"a b"}}`)
	}))
	defer ts.Close()

	c := newClient(t, ts.URL, "tok")
	ctx := client.ContextWithRequestID(context.Background(), "req-42")
	_, err := c.Products().Get(ctx, "a b")
	require.NoError(t, err)
	assert.Equal(t, "req-42", gotID)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/products/a%20b", gotPath)

	_, err = c.WithTokenSource(nil).Products().Get(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.NotEmpty(t, gotID, "a request id is generated when none is set")
}
