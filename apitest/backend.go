// Package apitest is an in-process fake of the remote storefront API. It
// speaks the same envelope and routes as the real service so clients and
// view-models can be tested end to end.
package apitest

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"storefront/model"
)

// Backend is the state behind a Server. Users are identified by their
// bearer token verbatim.
type Backend struct {
	mu       sync.Mutex
	seq      int
	products []model.Product
	carts    map[string]*model.Cart
	orders   map[string][]model.Order

	failures map[string]failure
	holds    map[string]hold
	calls    map[string]int
}

type hold struct {
	parked  chan struct{}
	release chan struct{}
}

type failure struct {
	status  int
	message string
}

func NewBackend() *Backend {
	return &Backend{
		carts:    map[string]*model.Cart{},
		orders:   map[string][]model.Order{},
		failures: map[string]failure{},
		holds:    map[string]hold{},
		calls:    map[string]int{},
	}
}

func (b *Backend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

// Seed adds products, assigning ids to those without one.
func (b *Backend) Seed(products ...model.Product) []model.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			p.ID = b.nextID("p")
		}
		b.products = append(b.products, p)
		out = append(out, p)
	}
	return out
}

// Product builds an unsaved product; price is a decimal string.
func Product(name, price string) model.Product {
	return model.Product{Name: name, Price: decimal.RequireFromString(price)}
}

// SeedN adds n products named "Product 01".."Product n" priced 1..n.
func (b *Backend) SeedN(n int) []model.Product {
	ps := make([]model.Product, n)
	for i := range ps {
		ps[i] = model.Product{
			Name:        fmt.Sprintf("Product %02d", i+1),
			Description: "seeded",
			Price:       decimal.NewFromInt(int64(i + 1)),
		}
	}
	return b.Seed(ps...)
}

func (b *Backend) Products() []model.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Product(nil), b.products...)
}

func (b *Backend) Cart(user string) *model.Cart {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.carts[user].Clone()
}

func (b *Backend) Orders(user string) []model.Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Order(nil), b.orders[user]...)
}

// FailNext makes the next call of route fail once. A zero status answers
// 200 with success=false; otherwise the HTTP status is status.
func (b *Backend) FailNext(route string, status int, message string) {
	b.mu.Lock()
	b.failures[route] = failure{status: status, message: message}
	b.mu.Unlock()
}

// Calls returns how many requests route has received.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// TotalCalls sums Calls over every route.
func (b *Backend) TotalCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

// HoldNext parks the next call to route before it is answered. parked is
// closed once that call is waiting; release lets it proceed and is safe to
// call more than once.
func (b *Backend) HoldNext(route string) (parked <-chan struct{}, release func()) {
	h := hold{parked: make(chan struct{}), release: make(chan struct{})}
	b.mu.Lock()
	b.holds[route] = h
	b.mu.Unlock()
	var once sync.Once
	return h.parked, func() { once.Do(func() { close(h.release) }) }
}

func (b *Backend) takeHold(route string) (hold, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.holds[route]
	if ok {
		delete(b.holds, route)
	}
	return h, ok
}

func (b *Backend) record(route string) (failure, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[route]++
	f, ok := b.failures[route]
	if ok {
		delete(b.failures, route)
	}
	return f, ok
}

func (b *Backend) findProduct(id string) (int, bool) {
	for i, p := range b.products {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (b *Backend) search(c model.SearchCriteria) []model.Product {
	term := strings.ToLower(strings.TrimSpace(c.Term))
	out := make([]model.Product, 0, len(b.products))
	for _, p := range b.products {
		if term != "" && !strings.Contains(strings.ToLower(p.Name), term) && !strings.Contains(strings.ToLower(p.Description), term) {
			continue
		}
		if c.MinPrice != nil && p.Price.LessThan(*c.MinPrice) {
			continue
		}
		if c.MaxPrice != nil && p.Price.GreaterThan(*c.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	if c.SortOrder != nil {
		desc := *c.SortOrder == model.SortDescending
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].Name > out[j].Name
			}
			return out[i].Name < out[j].Name
		})
	}
	return out
}

func paginate[T any](all []T, page, size int) model.Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	total := len(all)
	pages := (total + size - 1) / size
	start := (page - 1) * size
	items := []T{}
	if start < total {
		end := start + size
		if end > total {
			end = total
		}
		items = append(items, all[start:end]...)
	}
	return model.Page[T]{
		Items:       items,
		CurrentPage: page,
		PageSize:    size,
		TotalItems:  total,
		TotalPages:  pages,
		HasPrev:     page > 1,
		HasNext:     page < pages,
	}
}

// recompute must be called with mu held.
func recompute(c *model.Cart) {
	c.TotalAmount = decimal.Zero
	c.TotalItems = 0
	for i := range c.Items {
		it := &c.Items[i]
		it.TotalPrice = it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		c.TotalAmount = c.TotalAmount.Add(it.TotalPrice)
		c.TotalItems += it.Quantity
	}
	c.UpdatedAt = model.NewTimestamp(time.Now().UTC())
}
