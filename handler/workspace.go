package handler

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"storefront/client"
	"storefront/logger"
	"storefront/session"
	"storefront/viewmodel"
)

// Workspace is the view state of one browser session. Nothing in it is
// shared with another session.
type Workspace struct {
	Identity *session.Context
	Inbox    *viewmodel.Inbox

	// Catalog is the shopper grid; Admin is the management table and only
	// edits when the identity was an admin at sign-in.
	Catalog  *viewmodel.Catalog
	Admin    *viewmodel.Catalog
	Cart     *viewmodel.Cart
	Checkout *viewmodel.Checkout
	Orders   *viewmodel.OrderHistory

	lastSeen atomic.Int64
}

func newWorkspace(api *client.Client, ident *session.Context, pageSize int, log *zap.Logger) *Workspace {
	bound := api.WithTokenSource(ident)
	inbox := viewmodel.NewInbox(0)
	n := viewmodel.Tee(inbox, logger.Notifier(log))

	admin := false
	if id, ok := ident.Identity(); ok {
		admin = id.IsAdmin()
	}

	cart := viewmodel.NewCart(bound.Cart(), ident, n, log)
	ws := &Workspace{
		Identity: ident,
		Inbox:    inbox,
		Cart:     cart,
		Catalog: viewmodel.NewCatalog(bound.Products(), cart, viewmodel.Options{
			PageSize:     pageSize,
			Capabilities: viewmodel.Capabilities{CanAddToCart: true},
			Notifier:     n,
			Logger:       log,
		}),
		Admin: viewmodel.NewCatalog(bound.Products(), nil, viewmodel.Options{
			PageSize:     pageSize,
			Capabilities: viewmodel.Capabilities{CanEdit: admin, CanDelete: admin},
			Notifier:     n,
			Logger:       log,
		}),
		Checkout: viewmodel.NewCheckout(cart, bound.Orders(), ident, n, log),
		Orders:   viewmodel.NewOrderHistory(bound.Orders(), ident, n, log),
	}
	ws.touch()
	return ws
}

func (w *Workspace) touch() { w.lastSeen.Store(time.Now().UnixNano()) }

func (w *Workspace) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, w.lastSeen.Load()))
}
