package viewmodel

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"storefront/model"
)

type CartStatus string

const (
	CartUnauthenticated CartStatus = "unauthenticated"
	CartUnknown         CartStatus = "unknown"
	CartLoaded          CartStatus = "loaded"
	CartEmpty           CartStatus = "empty"
)

type CartState struct {
	Status CartStatus
	Cart   *model.Cart
	// Updating holds the product ids with a mutation in flight.
	Updating map[string]bool
	Loading  bool
	Err      string
}

// Cart mirrors the server cart of the signed-in user. Every mutation sends
// one request and adopts the returned cart as the new snapshot.
type Cart struct {
	remote   CartRemote
	identity IdentityProvider
	notifier Notifier
	log      *zap.Logger

	mu    sync.Mutex
	seq   sequencer
	loads int
	state CartState
}

func NewCart(remote CartRemote, identity IdentityProvider, n Notifier, log *zap.Logger) *Cart {
	if n == nil {
		n = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cart{
		remote:   remote,
		identity: identity,
		notifier: n,
		log:      log,
		state:    CartState{Status: CartUnknown, Updating: map[string]bool{}},
	}
}

func (c *Cart) State() CartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Cart = c.state.Cart.Clone()
	st.Updating = make(map[string]bool, len(c.state.Updating))
	for id := range c.state.Updating {
		st.Updating[id] = true
	}
	return st
}

func (c *Cart) signedIn() bool {
	_, ok := c.identity.Identity()
	return ok
}

func (c *Cart) Load(ctx context.Context) error {
	if !c.signedIn() {
		c.mu.Lock()
		c.state = CartState{Status: CartUnauthenticated, Updating: map[string]bool{}}
		c.mu.Unlock()
		return ErrUnauthenticated
	}

	c.mu.Lock()
	tok := c.seq.next()
	c.loads++
	c.state.Loading = true
	c.mu.Unlock()

	cart, err := c.remote.Get(ctx)

	c.mu.Lock()
	c.loads--
	c.state.Loading = c.loads > 0
	if c.seq.stale(tok) {
		c.mu.Unlock()
		c.log.Debug("discarding stale cart", zap.Uint64("token", tok), zap.Error(err))
		return ErrSuperseded
	}
	if err != nil {
		c.state.Err = UserMessage(err, "Failed to load cart")
		msg := c.state.Err
		c.mu.Unlock()
		c.log.Warn("cart load failed", zap.Error(err))
		failure(c.notifier, msg)
		return err
	}
	c.seq.apply(tok)
	c.adopt(cart)
	c.mu.Unlock()
	return nil
}

// adopt must be called with mu held.
func (c *Cart) adopt(cart *model.Cart) {
	c.state.Cart = cart.Clone()
	c.state.Err = ""
	if cart.IsEmpty() {
		c.state.Status = CartEmpty
	} else {
		c.state.Status = CartLoaded
	}
}

// SetQuantity sets the quantity of one line. Quantities below one are
// rejected without a request.
func (c *Cart) SetQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return invalid("quantity", "Quantity must be at least 1")
	}
	if !c.signedIn() {
		return ErrUnauthenticated
	}
	return c.mutateLine(ctx, productID, "Cart updated", "Failed to update cart", func(ctx context.Context) (*model.Cart, error) {
		return c.remote.UpdateItem(ctx, productID, quantity)
	})
}

func (c *Cart) Add(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return invalid("quantity", "Quantity must be at least 1")
	}
	if !c.signedIn() {
		failure(c.notifier, "Please sign in to add items to cart")
		return ErrUnauthenticated
	}
	return c.mutateLine(ctx, productID, "Added to cart!", "Failed to add to cart", func(ctx context.Context) (*model.Cart, error) {
		return c.remote.Add(ctx, productID, quantity)
	})
}

func (c *Cart) Remove(ctx context.Context, productID string) error {
	if !c.signedIn() {
		return ErrUnauthenticated
	}
	return c.mutateLine(ctx, productID, "Item removed from cart", "Failed to remove item", func(ctx context.Context) (*model.Cart, error) {
		return c.remote.RemoveItem(ctx, productID)
	})
}

// mutateLine runs one line-scoped mutation. Only productID is locked out
// while it is in flight; the rest of the cart stays interactive.
func (c *Cart) mutateLine(ctx context.Context, productID, okMsg, failMsg string, send func(context.Context) (*model.Cart, error)) error {
	c.mu.Lock()
	if c.state.Updating[productID] {
		c.mu.Unlock()
		return ErrLineBusy
	}
	c.state.Updating[productID] = true
	tok := c.seq.next()
	c.mu.Unlock()

	cart, err := send(ctx)

	c.mu.Lock()
	delete(c.state.Updating, productID)
	if err != nil {
		c.state.Err = UserMessage(err, failMsg)
		msg := c.state.Err
		c.mu.Unlock()
		c.log.Warn("cart mutation failed", zap.String("product_id", productID), zap.Error(err))
		failure(c.notifier, msg)
		return err
	}
	applied := c.seq.apply(tok)
	if applied {
		c.adopt(cart)
	}
	c.mu.Unlock()
	success(c.notifier, okMsg)

	if !applied {
		c.reconcile(ctx, tok)
	}
	return nil
}

// Clear empties the cart. On success the state is Empty, not Unknown.
func (c *Cart) Clear(ctx context.Context) error {
	if !c.signedIn() {
		return ErrUnauthenticated
	}
	c.mu.Lock()
	tok := c.seq.next()
	c.mu.Unlock()

	if err := c.remote.Clear(ctx); err != nil {
		c.mu.Lock()
		c.state.Err = UserMessage(err, "Failed to clear cart")
		msg := c.state.Err
		c.mu.Unlock()
		c.log.Warn("cart clear failed", zap.Error(err))
		failure(c.notifier, msg)
		return err
	}

	c.mu.Lock()
	applied := c.seq.apply(tok)
	if applied {
		empty := &model.Cart{Items: []model.CartItem{}}
		if prev := c.state.Cart; prev != nil {
			empty.ID, empty.UserID = prev.ID, prev.UserID
		}
		c.adopt(empty)
	}
	c.mu.Unlock()
	success(c.notifier, "Cart cleared")
	if !applied {
		c.reconcile(ctx, tok)
	}
	return nil
}

// reconcile re-reads the cart after the reply for tok lost to a newer one.
// The server may have applied tok's change after the newer one, so neither
// reply is known to be current.
func (c *Cart) reconcile(ctx context.Context, tok uint64) {
	c.log.Debug("stale cart reply, reconciling", zap.Uint64("token", tok))
	if err := c.Load(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		c.log.Warn("cart reconcile failed", zap.Error(err))
	}
}

// LineDisabled reports whether the controls of productID are disabled.
func (c *Cart) LineDisabled(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Updating[productID]
}

// DecrementDisabled is also true at quantity one.
func (c *Cart) DecrementDisabled(productID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Updating[productID] {
		return true
	}
	it, ok := c.state.Cart.Item(productID)
	return !ok || it.Quantity <= 1
}
