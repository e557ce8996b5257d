package viewmodel

import (
	"context"

	"storefront/model"
	"storefront/session"
)

// RemoteCollection is a server-paginated resource that can be listed,
// searched and mutated.
type RemoteCollection[T, In any] interface {
	List(ctx context.Context, page, pageSize int) (model.Page[T], error)
	Search(ctx context.Context, criteria model.SearchCriteria) (model.Page[T], error)
	Create(ctx context.Context, in In) (T, error)
	Update(ctx context.Context, id string, in In) (T, error)
	Delete(ctx context.Context, id string) error
}

type ProductSource interface {
	RemoteCollection[model.Product, model.ProductInput]
	Get(ctx context.Context, id string) (model.Product, error)
}

// CartRemote returns the authoritative cart after every mutation. A nil
// cart means the server has none yet.
type CartRemote interface {
	Get(ctx context.Context) (*model.Cart, error)
	Add(ctx context.Context, productID string, quantity int) (*model.Cart, error)
	UpdateItem(ctx context.Context, productID string, quantity int) (*model.Cart, error)
	RemoveItem(ctx context.Context, productID string) (*model.Cart, error)
	Clear(ctx context.Context) error
}

type OrderRemote interface {
	Create(ctx context.Context, in model.CreateOrderInput) (model.Order, error)
	Mine(ctx context.Context) ([]model.Order, error)
	Get(ctx context.Context, id string) (model.Order, error)
}

// IdentityProvider is satisfied by *session.Context.
type IdentityProvider interface {
	Identity() (session.Identity, bool)
}
