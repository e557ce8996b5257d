package viewmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/apitest"
	"storefront/model"
	"storefront/session"
)

func TestCart_UnauthenticatedMakesNoCall(t *testing.T) {
	srv, c := newAPI(t, session.NewContext())
	cart := NewCart(c.Cart(), session.NewContext(), nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, cart.Load(ctx), ErrUnauthenticated)
	assert.Equal(t, CartUnauthenticated, cart.State().Status)
	assert.ErrorIs(t, cart.SetQuantity(ctx, "p-1", 2), ErrUnauthenticated)
	assert.ErrorIs(t, cart.Remove(ctx, "p-1"), ErrUnauthenticated)
	assert.ErrorIs(t, cart.Clear(ctx), ErrUnauthenticated)
	assert.Zero(t, srv.Backend.TotalCalls())
}

func TestCart_LoadStatuses(t *testing.T) {
	ident := signedIn("user-1")
	srv, c := newAPI(t, ident)
	ps := srv.Backend.SeedN(1)
	cart := NewCart(c.Cart(), ident, nil, nil)
	ctx := context.Background()

	assert.Equal(t, CartUnknown, cart.State().Status)

	require.NoError(t, cart.Load(ctx))
	assert.Equal(t, CartEmpty, cart.State().Status, "no server cart is empty")

	require.NoError(t, cart.Add(ctx, ps[0].ID, 1))
	assert.Equal(t, CartLoaded, cart.State().Status)
}

func TestCart_QuantityChangeShowsServerTotals(t *testing.T) {
	ident := signedIn("user-1")
	srv, c := newAPI(t, ident)
	ps := srv.Backend.Seed(model.Product{Name: "Tee", Price: decimal.RequireFromString("10.00")})
	inbox := NewInbox(0)
	cart := NewCart(c.Cart(), ident, inbox, nil)
	ctx := context.Background()

	require.NoError(t, cart.Add(ctx, ps[0].ID, 1))
	require.NoError(t, cart.Load(ctx))
	line, _ := cart.State().Cart.Item(ps[0].ID)
	assert.Equal(t, "$10.00", model.FormatUSD(line.TotalPrice))

	require.NoError(t, cart.SetQuantity(ctx, ps[0].ID, 2))

	st := cart.State()
	line, ok := st.Cart.Item(ps[0].ID)
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "$20.00", model.FormatUSD(line.TotalPrice))
	assert.Equal(t, "$20.00", model.FormatUSD(st.Cart.TotalAmount))
	assert.Empty(t, st.Updating)

	notes := inbox.Drain()
	require.Len(t, notes, 2)
	assert.Equal(t, "Added to cart!", notes[0].Message)
	assert.Equal(t, "Cart updated", notes[1].Message)
}

func TestCart_QuantityBelowOneIsLocal(t *testing.T) {
	ident := signedIn("user-1")
	srv, c := newAPI(t, ident)
	ps := srv.Backend.SeedN(1)
	cart := NewCart(c.Cart(), ident, nil, nil)
	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, ps[0].ID, 1))
	before := cart.State().Cart

	for _, q := range []int{0, -3} {
		err := cart.SetQuantity(ctx, ps[0].ID, q)
		assert.True(t, IsValidation(err), "q=%d: %v", q, err)
	}
	assert.Zero(t, srv.Backend.Calls(apitest.RouteUpdateCartItem))
	assert.Equal(t, before, cart.State().Cart)
	assert.True(t, cart.DecrementDisabled(ps[0].ID), "quantity one cannot decrement")
}

func TestCart_FailureKeepsSnapshot(t *testing.T) {
	ident := signedIn("user-1")
	srv, c := newAPI(t, ident)
	ps := srv.Backend.SeedN(1)
	inbox := NewInbox(0)
	cart := NewCart(c.Cart(), ident, inbox, nil)
	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, ps[0].ID, 1))
	inbox.Drain()

	srv.Backend.FailNext(apitest.RouteUpdateCartItem, 0, "Only 1 left in stock")
	require.Error(t, cart.SetQuantity(ctx, ps[0].ID, 5))

	st := cart.State()
	line, _ := st.Cart.Item(ps[0].ID)
	assert.Equal(t, 1, line.Quantity)
	assert.Equal(t, "Only 1 left in stock", st.Err)
	assert.False(t, cart.LineDisabled(ps[0].ID))

	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, LevelError, notes[0].Level)
	assert.Equal(t, 1, srv.Backend.Calls(apitest.RouteUpdateCartItem), "no retry")
}

func TestCart_LineBusyOnlyBlocksThatLine(t *testing.T) {
	type call struct {
		productID string
		reply     chan *model.Cart
	}
	calls := make(chan call)
	reconciled := cartWith(
		model.CartItem{ProductID: "p1", Quantity: 2},
		model.CartItem{ProductID: "p2", Quantity: 4},
	)
	gets := 0
	f := &fakeCart{
		UpdateItemFn: func(_ context.Context, productID string, _ int) (*model.Cart, error) {
			c := call{productID: productID, reply: make(chan *model.Cart)}
			calls <- c
			return <-c.reply, nil
		},
		GetFn: func(context.Context) (*model.Cart, error) {
			gets++
			return reconciled, nil
		},
	}
	cart := NewCart(f, signedIn("user-1"), nil, nil)
	ctx := context.Background()

	done1 := make(chan error, 1)
	go func() { done1 <- cart.SetQuantity(ctx, "p1", 2) }()
	c1 := <-calls

	assert.True(t, cart.LineDisabled("p1"))
	assert.True(t, cart.DecrementDisabled("p1"))
	assert.False(t, cart.LineDisabled("p2"))
	assert.ErrorIs(t, cart.SetQuantity(ctx, "p1", 3), ErrLineBusy)
	assert.ErrorIs(t, cart.Remove(ctx, "p1"), ErrLineBusy)

	done2 := make(chan error, 1)
	go func() { done2 <- cart.SetQuantity(ctx, "p2", 4) }()
	c2 := <-calls
	assert.Equal(t, "p2", c2.productID)

	newest := cartWith(
		model.CartItem{ProductID: "p1", Quantity: 1},
		model.CartItem{ProductID: "p2", Quantity: 4},
	)
	c2.reply <- newest
	require.NoError(t, <-done2)
	assert.Equal(t, newest, cart.State().Cart)
	assert.Zero(t, gets)

	// p1's reply arrives after p2's was shown: it is not applied, and the
	// cart is re-read since the server may have processed p1 last
	c1.reply <- cartWith(
		model.CartItem{ProductID: "p1", Quantity: 2},
		model.CartItem{ProductID: "p2", Quantity: 4},
	)
	require.NoError(t, <-done1)

	st := cart.State()
	assert.Equal(t, 1, gets)
	assert.Equal(t, reconciled, st.Cart)
	assert.Empty(t, st.Updating)
	assert.Equal(t, "p1", c1.productID)
}

func TestCart_StaleLoadFailureIsDiscarded(t *testing.T) {
	loadReply := make(chan error)
	f := &fakeCart{
		GetFn: func(context.Context) (*model.Cart, error) {
			return nil, <-loadReply
		},
		UpdateItemFn: func(context.Context, string, int) (*model.Cart, error) {
			return cartWith(model.CartItem{ProductID: "p1", Quantity: 3}), nil
		},
	}
	inbox := NewInbox(0)
	cart := NewCart(f, signedIn("user-1"), inbox, nil)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- cart.Load(ctx) }()
	require.Eventually(t, func() bool { return cart.State().Loading }, time.Second, time.Millisecond)

	require.NoError(t, cart.SetQuantity(ctx, "p1", 3))
	inbox.Drain()

	loadReply <- errors.New("connection reset")
	assert.ErrorIs(t, <-done, ErrSuperseded)

	st := cart.State()
	assert.Empty(t, st.Err)
	assert.Equal(t, CartLoaded, st.Status)
	assert.False(t, st.Loading)
	assert.Zero(t, inbox.Len(), "no failure toast for a superseded load")
}

func TestCart_ClearIsEmptyNotUnknown(t *testing.T) {
	ident := signedIn("user-1")
	srv, c := newAPI(t, ident)
	ps := srv.Backend.SeedN(2)
	cart := NewCart(c.Cart(), ident, nil, nil)
	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, ps[0].ID, 1))
	require.NoError(t, cart.Add(ctx, ps[1].ID, 1))

	require.NoError(t, cart.Clear(ctx))

	st := cart.State()
	assert.Equal(t, CartEmpty, st.Status)
	require.NotNil(t, st.Cart)
	assert.True(t, st.Cart.IsEmpty())
	assert.Nil(t, srv.Backend.Cart("user-1"))
}

func TestCart_RemoveLastItemIsEmpty(t *testing.T) {
	ident := signedIn("user-1")
	srv, c := newAPI(t, ident)
	ps := srv.Backend.SeedN(1)
	cart := NewCart(c.Cart(), ident, nil, nil)
	ctx := context.Background()
	require.NoError(t, cart.Add(ctx, ps[0].ID, 2))

	require.NoError(t, cart.Remove(ctx, ps[0].ID))
	assert.Equal(t, CartEmpty, cart.State().Status)
}

func TestCart_AddSignedOutNotifies(t *testing.T) {
	inbox := NewInbox(0)
	cart := NewCart(&fakeCart{}, session.NewContext(), inbox, nil)

	assert.ErrorIs(t, cart.Add(context.Background(), "p1", 1), ErrUnauthenticated)
	notes := inbox.Drain()
	require.Len(t, notes, 1)
	assert.Equal(t, "Please sign in to add items to cart", notes[0].Message)
}
