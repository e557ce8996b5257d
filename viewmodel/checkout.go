package viewmodel

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"storefront/model"
)

type Phase string

const (
	PhaseEditing    Phase = "editing"
	PhaseSubmitting Phase = "submitting"
	PhaseSucceeded  Phase = "succeeded"
)

type CheckoutForm struct {
	ShippingAddress string `json:"shippingAddress"`
	Notes           string `json:"notes"`
}

type CheckoutState struct {
	Phase Phase
	// Order is set once the phase is Succeeded.
	Order *model.Order
	Err   string
}

// Checkout turns the current cart into an order.
type Checkout struct {
	cart     *Cart
	orders   OrderRemote
	identity IdentityProvider
	notifier Notifier
	log      *zap.Logger

	mu    sync.Mutex
	phase Phase
	order *model.Order
	err   string
}

func NewCheckout(cart *Cart, orders OrderRemote, identity IdentityProvider, n Notifier, log *zap.Logger) *Checkout {
	if n == nil {
		n = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Checkout{cart: cart, orders: orders, identity: identity, notifier: n, log: log, phase: PhaseEditing}
}

func (c *Checkout) State() CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := CheckoutState{Phase: c.phase, Err: c.err}
	if c.order != nil {
		o := *c.order
		st.Order = &o
	}
	return st
}

// Begin reconciles the cart before the form is shown. Signed-out users and
// empty carts never reach the form.
func (c *Checkout) Begin(ctx context.Context) error {
	if _, ok := c.identity.Identity(); !ok {
		return ErrUnauthenticated
	}
	if err := c.cart.Load(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		return err
	}
	if c.cart.State().Cart.IsEmpty() {
		failure(c.notifier, "Your cart is empty")
		return ErrEmptyCart
	}
	c.mu.Lock()
	if c.phase != PhaseSubmitting {
		c.phase, c.order, c.err = PhaseEditing, nil, ""
	}
	c.mu.Unlock()
	return nil
}

// Submit places the order. Only one submission runs at a time.
func (c *Checkout) Submit(ctx context.Context, form CheckoutForm) (model.Order, error) {
	addr := strings.TrimSpace(form.ShippingAddress)
	if addr == "" {
		return model.Order{}, invalid("shippingAddress", "Please enter a shipping address")
	}
	if _, ok := c.identity.Identity(); !ok {
		return model.Order{}, ErrUnauthenticated
	}

	c.mu.Lock()
	if c.phase == PhaseSubmitting {
		c.mu.Unlock()
		return model.Order{}, ErrSubmitInProgress
	}
	if c.cart.State().Cart.IsEmpty() {
		c.mu.Unlock()
		return model.Order{}, ErrEmptyCart
	}
	c.phase, c.err = PhaseSubmitting, ""
	c.mu.Unlock()

	var order model.Order
	err := mutateThenReconcile(ctx, mutation{
		run: func(ctx context.Context) error {
			var err error
			order, err = c.orders.Create(ctx, model.CreateOrderInput{
				ShippingAddress: addr,
				Notes:           strings.TrimSpace(form.Notes),
			})
			return err
		},
		onSuccess: func() {
			placed := order
			c.mu.Lock()
			c.phase, c.order = PhaseSucceeded, &placed
			c.mu.Unlock()
			success(c.notifier, "Order placed successfully!")
		},
		onFailure: func(err error) {
			msg := UserMessage(err, "Failed to place order")
			c.mu.Lock()
			c.phase, c.err = PhaseEditing, msg
			c.mu.Unlock()
			c.log.Warn("order submission failed", zap.Error(err))
			failure(c.notifier, msg)
		},
		// the server empties the cart when it creates the order
		reconcile: c.cart.Load,
	})
	if err != nil {
		return model.Order{}, err
	}
	return order, nil
}

// Reset returns to Editing. It does not interrupt a running submission.
func (c *Checkout) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == PhaseSubmitting {
		return
	}
	c.phase, c.order, c.err = PhaseEditing, nil, ""
}
