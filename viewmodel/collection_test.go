package viewmodel

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/apitest"
	"storefront/model"
)

var adminCaps = Capabilities{CanEdit: true, CanDelete: true}

func TestCollection_GoToPage(t *testing.T) {
	srv, c := newAPI(t, signedIn("admin"))
	srv.Backend.SeedN(12)
	grid := NewCatalog(c.Products(), nil, Options{PageSize: 5})
	ctx := context.Background()

	require.NoError(t, grid.Load(ctx, 1))
	require.NoError(t, grid.GoToPage(ctx, 3))

	st := grid.State()
	assert.Equal(t, 3, st.CurrentPage)
	assert.Len(t, st.Items, 2)
	assert.LessOrEqual(t, len(st.Items), st.PageSize)
	assert.Equal(t, 3, st.TotalPages)
	assert.False(t, st.Loading)

	calls := srv.Backend.Calls(apitest.RouteListProducts)
	for _, page := range []int{0, -1, 4, 3} {
		require.NoError(t, grid.GoToPage(ctx, page))
	}
	assert.Equal(t, calls, srv.Backend.Calls(apitest.RouteListProducts), "out of range and current page are no-ops")

	require.NoError(t, grid.PrevPage(ctx))
	assert.Equal(t, 2, grid.State().CurrentPage)
	require.NoError(t, grid.NextPage(ctx))
	assert.Equal(t, 3, grid.State().CurrentPage)
}

func TestCollection_ClearFiltersMatchesDefaultListing(t *testing.T) {
	srv, c := newAPI(t, signedIn("u"))
	srv.Backend.Seed(
		model.Product{Name: "Alpha", Price: decimal.NewFromInt(1)},
		model.Product{Name: "Beta", Price: decimal.NewFromInt(2)},
		model.Product{Name: "Gamma", Price: decimal.NewFromInt(3)},
	)
	grid := NewCatalog(c.Products(), nil, Options{PageSize: 2})
	ctx := context.Background()

	require.NoError(t, grid.Load(ctx, 1))
	want := grid.State()

	desc := model.SortDescending
	require.NoError(t, grid.Search(ctx, &model.SearchCriteria{Term: "a", SortOrder: &desc}))
	searched := grid.State()
	assert.Equal(t, ModeSearching, searched.Mode)
	require.NotNil(t, searched.Criteria)
	assert.Equal(t, "Gamma", searched.Items[0].Name)

	for i := 0; i < 2; i++ {
		require.NoError(t, grid.ClearFilters(ctx))
		got := grid.State()
		assert.Equal(t, ModeListing, got.Mode)
		assert.Nil(t, got.Criteria)
		assert.Equal(t, want.Items, got.Items)
		assert.Equal(t, want.TotalItems, got.TotalItems)
		assert.Equal(t, 1, got.CurrentPage)
	}
}

func TestCollection_EmptyCriteriaIsListing(t *testing.T) {
	srv, c := newAPI(t, signedIn("u"))
	srv.Backend.SeedN(3)
	grid := NewCatalog(c.Products(), nil, Options{PageSize: 2})

	require.NoError(t, grid.Search(context.Background(), &model.SearchCriteria{Term: "   ", Page: 4}))
	assert.Equal(t, ModeListing, grid.State().Mode)
	assert.Zero(t, srv.Backend.Calls(apitest.RouteSearchProducts))
	assert.Equal(t, 1, srv.Backend.Calls(apitest.RouteListProducts))
}

func TestCollection_PagingStaysInSearchMode(t *testing.T) {
	srv, c := newAPI(t, signedIn("u"))
	srv.Backend.SeedN(7)
	grid := NewCatalog(c.Products(), nil, Options{PageSize: 3})
	ctx := context.Background()

	require.NoError(t, grid.Search(ctx, &model.SearchCriteria{Term: "product"}))
	require.NoError(t, grid.GoToPage(ctx, 2))

	assert.Equal(t, 2, srv.Backend.Calls(apitest.RouteSearchProducts))
	assert.Zero(t, srv.Backend.Calls(apitest.RouteListProducts))
	assert.Equal(t, ModeSearching, grid.State().Mode)
}

func TestCollection_DeleteReconciles(t *testing.T) {
	srv, c := newAPI(t, signedIn("admin"))
	ps := srv.Backend.SeedN(4)
	inbox := NewInbox(0)
	grid := NewCatalog(c.Products(), nil, Options{PageSize: 10, Capabilities: adminCaps, Notifier: inbox})
	ctx := context.Background()

	require.NoError(t, grid.Load(ctx, 1))
	before := grid.State().TotalItems

	require.NoError(t, grid.Delete(ctx, ps[1].ID))

	st := grid.State()
	assert.Equal(t, before-1, st.TotalItems)
	for _, p := range st.Items {
		assert.NotEqual(t, ps[1].ID, p.ID)
	}
	assert.Equal(t, 2, srv.Backend.Calls(apitest.RouteListProducts), "success reconciles with a re-fetch")

	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelSuccess, notes[0].Level)
	assert.Equal(t, "Product deleted successfully", notes[0].Message)
}

func TestCollection_DeletingLastItemOfLastPageClamps(t *testing.T) {
	srv, c := newAPI(t, signedIn("admin"))
	ps := srv.Backend.SeedN(11)
	grid := NewCatalog(c.Products(), nil, Options{PageSize: 5, Capabilities: adminCaps})
	ctx := context.Background()

	require.NoError(t, grid.Load(ctx, 3))
	require.Len(t, grid.State().Items, 1)

	require.NoError(t, grid.Delete(ctx, ps[10].ID))

	st := grid.State()
	assert.Equal(t, 2, st.CurrentPage)
	assert.Equal(t, 2, st.TotalPages)
	assert.Len(t, st.Items, 5)
	assert.Equal(t, 10, st.TotalItems)
}

func TestCollection_EmptyCollectionShowsPageOne(t *testing.T) {
	f := &fakeCollection{ListFn: func(_ context.Context, page, size int) (model.Page[string], error) {
		return stringPage(page, size, 0), nil
	}}
	col := NewCollection[string, string](f, Options{PageSize: 5})

	require.NoError(t, col.Load(context.Background(), 4))
	st := col.State()
	assert.Equal(t, 1, st.CurrentPage)
	assert.Empty(t, st.Items)
	assert.NotNil(t, st.Items)
}

func TestCollection_FailureKeepsItems(t *testing.T) {
	srv, c := newAPI(t, signedIn("admin"))
	ps := srv.Backend.SeedN(2)
	inbox := NewInbox(0)
	grid := NewCatalog(c.Products(), nil, Options{Capabilities: adminCaps, Notifier: inbox})
	ctx := context.Background()
	require.NoError(t, grid.Load(ctx, 1))

	srv.Backend.FailNext(apitest.RouteDeleteProduct, 0, "Product belongs to an order")
	err := grid.Delete(ctx, ps[0].ID)
	require.Error(t, err)

	st := grid.State()
	assert.Equal(t, "Product belongs to an order", st.Err)
	assert.Len(t, st.Items, 2)
	assert.Equal(t, 1, srv.Backend.Calls(apitest.RouteListProducts), "failed mutation does not re-fetch")

	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelError, notes[0].Level)

	srv.Backend.FailNext(apitest.RouteListProducts, 500, "")
	require.Error(t, grid.Load(ctx, 1))
	st = grid.State()
	assert.Equal(t, "Failed to fetch products", st.Err)
	assert.Len(t, st.Items, 2, "prior items stay visible")
}

func TestCollection_CapabilitiesAreEnforcedLocally(t *testing.T) {
	srv, c := newAPI(t, signedIn("shopper"))
	srv.Backend.SeedN(1)
	grid := NewCatalog(c.Products(), nil, Options{Capabilities: Capabilities{CanAddToCart: true}})
	ctx := context.Background()

	_, err := grid.Create(ctx, model.ProductInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotPermitted)
	_, err = grid.Update(ctx, "p-1", model.ProductInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotPermitted)
	assert.ErrorIs(t, grid.Delete(ctx, "p-1"), ErrNotPermitted)
	assert.Zero(t, srv.Backend.TotalCalls())
}

func TestCatalog_ValidationIsInline(t *testing.T) {
	srv, c := newAPI(t, signedIn("admin"))
	inbox := NewInbox(0)
	grid := NewCatalog(c.Products(), nil, Options{Capabilities: adminCaps, Notifier: inbox})
	ctx := context.Background()

	cases := map[string]model.ProductInput{
		"name":      {Name: "  ", Price: decimal.NewFromInt(1)},
		"price":     {Name: "Hat", Price: decimal.NewFromInt(-1)},
		"imageFile": {Name: "Hat", Image: &model.ImageFile{Filename: "a.txt", ContentType: "text/plain"}},
	}
	for field, in := range cases {
		t.Run(field, func(t *testing.T) {
			_, err := grid.Create(ctx, in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, field, ve.Field)
		})
	}
	assert.Zero(t, srv.Backend.TotalCalls())
	assert.Zero(t, inbox.Len())

	created, err := grid.Create(ctx, model.ProductInput{Name: "Hat", Price: decimal.NewFromInt(3)})
	require.NoError(t, err)
	assert.Equal(t, []model.Product{created}, grid.State().Items)
}

func TestCatalog_AddToCartNeedsCapability(t *testing.T) {
	ident := signedIn("user-1")
	srv, c := newAPI(t, ident)
	ps := srv.Backend.SeedN(1)
	cart := NewCart(c.Cart(), ident, nil, nil)

	admin := NewCatalog(c.Products(), cart, Options{Capabilities: adminCaps})
	assert.ErrorIs(t, admin.AddToCart(context.Background(), ps[0].ID, 1), ErrNotPermitted)

	shop := NewCatalog(c.Products(), cart, Options{Capabilities: Capabilities{CanAddToCart: true}})
	require.NoError(t, shop.AddToCart(context.Background(), ps[0].ID, 2))
	assert.Equal(t, 2, cart.State().Cart.TotalItems)
}

func TestCatalog_ProductDetail(t *testing.T) {
	srv, c := newAPI(t, signedIn("u"))
	ps := srv.Backend.SeedN(1)
	inbox := NewInbox(0)
	grid := NewCatalog(c.Products(), nil, Options{Notifier: inbox})

	p, err := grid.Product(context.Background(), ps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, ps[0].Name, p.Name)

	_, err = grid.Product(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, 1, inbox.Len())
}

func TestCollection_OutOfOrderResponses(t *testing.T) {
	type request struct {
		page  int
		reply chan model.Page[string]
	}
	requests := make(chan request)
	f := &fakeCollection{ListFn: func(_ context.Context, page, _ int) (model.Page[string], error) {
		r := request{page: page, reply: make(chan model.Page[string])}
		requests <- r
		return <-r.reply, nil
	}}
	col := NewCollection[string, string](f, Options{PageSize: 2})
	ctx := context.Background()

	doneA := make(chan error, 1)
	go func() { doneA <- col.Load(ctx, 1) }()
	reqA := <-requests
	assert.True(t, col.State().Loading)

	doneB := make(chan error, 1)
	go func() { doneB <- col.Load(ctx, 2) }()
	reqB := <-requests

	reqB.reply <- stringPage(2, 2, 4, "c", "d")
	require.NoError(t, <-doneB)

	reqA.reply <- stringPage(1, 2, 4, "a", "b")
	assert.ErrorIs(t, <-doneA, ErrSuperseded)

	st := col.State()
	assert.Equal(t, 2, st.CurrentPage)
	assert.Equal(t, []string{"c", "d"}, st.Items)
	assert.Equal(t, 1, reqA.page)
	assert.Equal(t, 2, reqB.page)
}

func TestCollection_StateIsACopy(t *testing.T) {
	f := &fakeCollection{ListFn: func(_ context.Context, page, size int) (model.Page[string], error) {
		return stringPage(page, size, 1, "a"), nil
	}}
	col := NewCollection[string, string](f, Options{})
	require.NoError(t, col.Load(context.Background(), 1))

	st := col.State()
	st.Items[0] = "mutated"
	assert.Equal(t, "a", col.State().Items[0])
}
