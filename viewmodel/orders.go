package viewmodel

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"storefront/model"
)

type OrderHistoryState struct {
	Orders   []model.Order
	Selected *model.Order
	Loading  bool
	Err      string
}

// OrderHistory lists the signed-in user's orders. Orders are read-only.
type OrderHistory struct {
	remote   OrderRemote
	identity IdentityProvider
	notifier Notifier
	log      *zap.Logger

	mu      sync.Mutex
	listSeq sequencer
	openSeq sequencer
	state   OrderHistoryState
}

func NewOrderHistory(remote OrderRemote, identity IdentityProvider, n Notifier, log *zap.Logger) *OrderHistory {
	if n == nil {
		n = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderHistory{
		remote:   remote,
		identity: identity,
		notifier: n,
		log:      log,
		state:    OrderHistoryState{Orders: []model.Order{}},
	}
}

func (h *OrderHistory) State() OrderHistoryState {
	h.mu.Lock()
	defer h.mu.Unlock()
	st := h.state
	st.Orders = append([]model.Order(nil), h.state.Orders...)
	if h.state.Selected != nil {
		o := *h.state.Selected
		st.Selected = &o
	}
	return st
}

func (h *OrderHistory) Load(ctx context.Context) error {
	if _, ok := h.identity.Identity(); !ok {
		return ErrUnauthenticated
	}
	h.mu.Lock()
	tok := h.listSeq.next()
	h.state.Loading = true
	h.mu.Unlock()

	orders, err := h.remote.Mine(ctx)

	h.mu.Lock()
	if !h.listSeq.latest(tok) {
		h.mu.Unlock()
		h.log.Debug("discarding superseded order list", zap.Uint64("token", tok))
		return ErrSuperseded
	}
	h.state.Loading = false
	if err != nil {
		h.state.Err = UserMessage(err, "Failed to load orders")
		msg := h.state.Err
		h.mu.Unlock()
		h.log.Warn("order list failed", zap.Error(err))
		failure(h.notifier, msg)
		return err
	}
	if orders == nil {
		orders = []model.Order{}
	}
	h.state.Orders, h.state.Err = orders, ""
	h.mu.Unlock()
	return nil
}

// Open selects one order. On failure nothing stays selected.
//
// When a newer Open overtakes this one the selection is left to it: a
// successful fetch is still returned, paired with ErrSuperseded, and a
// failed fetch returns its error without touching state.
func (h *OrderHistory) Open(ctx context.Context, id string) (model.Order, error) {
	if _, ok := h.identity.Identity(); !ok {
		return model.Order{}, ErrUnauthenticated
	}
	h.mu.Lock()
	tok := h.openSeq.next()
	h.mu.Unlock()

	order, err := h.remote.Get(ctx, id)

	h.mu.Lock()
	if !h.openSeq.latest(tok) {
		h.mu.Unlock()
		if err != nil {
			return model.Order{}, err
		}
		h.log.Debug("order selection superseded", zap.String("order_id", id), zap.Uint64("token", tok))
		return order, ErrSuperseded
	}
	if err != nil {
		h.state.Selected = nil
		h.state.Err = UserMessage(err, "Failed to load order")
		msg := h.state.Err
		h.mu.Unlock()
		h.log.Warn("order fetch failed", zap.String("order_id", id), zap.Error(err))
		failure(h.notifier, msg)
		return model.Order{}, err
	}
	selected := order
	h.state.Selected, h.state.Err = &selected, ""
	h.mu.Unlock()
	return order, nil
}

// Get fetches one order without selecting it.
func (h *OrderHistory) Get(ctx context.Context, id string) (model.Order, error) {
	if _, ok := h.identity.Identity(); !ok {
		return model.Order{}, ErrUnauthenticated
	}
	order, err := h.remote.Get(ctx, id)
	if err != nil {
		h.log.Warn("order fetch failed", zap.String("order_id", id), zap.Error(err))
		return model.Order{}, err
	}
	return order, nil
}
