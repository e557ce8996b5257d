// Package viewmodel keeps presentation state in sync with the remote API.
// View-models hold snapshots of server data and never derive business
// values from them; every change is a server round-trip followed by a
// re-fetch.
package viewmodel

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"storefront/model"
)

// Mode is the kind of request that produced the displayed page.
type Mode string

const (
	ModeListing   Mode = "listing"
	ModeSearching Mode = "searching"
)

// Capabilities gate the actions a collection exposes. They are fixed when
// the collection is built.
type Capabilities struct {
	CanEdit      bool `json:"canEdit"`
	CanDelete    bool `json:"canDelete"`
	CanAddToCart bool `json:"canAddToCart"`
}

// CollectionState is a point-in-time copy of a Collection.
type CollectionState[T any] struct {
	Items       []T
	CurrentPage int
	PageSize    int
	TotalItems  int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	Mode        Mode
	Criteria    *model.SearchCriteria
	Loading     bool
	Err         string
}

type Options struct {
	// Name is the singular noun used in notifications, e.g. "product".
	Name         string
	PageSize     int
	Capabilities Capabilities
	Notifier     Notifier
	Logger       *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = "item"
	}
	if o.PageSize <= 0 {
		o.PageSize = 10
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Collection is a paginated, filterable view of a RemoteCollection. It is
// safe for concurrent use. A newer fetch always wins over an older one.
type Collection[T, In any] struct {
	remote RemoteCollection[T, In]
	opts   Options

	mu       sync.Mutex
	seq      sequencer
	criteria *model.SearchCriteria
	state    CollectionState[T]
}

func NewCollection[T, In any](remote RemoteCollection[T, In], opts Options) *Collection[T, In] {
	opts = opts.withDefaults()
	return &Collection[T, In]{
		remote: remote,
		opts:   opts,
		state: CollectionState[T]{
			Items:       []T{},
			CurrentPage: 1,
			PageSize:    opts.PageSize,
			Mode:        ModeListing,
		},
	}
}

func (c *Collection[T, In]) Capabilities() Capabilities { return c.opts.Capabilities }

// State returns a copy that shares nothing with the collection.
func (c *Collection[T, In]) State() CollectionState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.state
	st.Items = append([]T(nil), c.state.Items...)
	if c.criteria != nil {
		cp := c.criteria.Clone()
		st.Criteria = &cp
	}
	return st
}

// Load fetches page in the active mode.
func (c *Collection[T, In]) Load(ctx context.Context, page int) error {
	if page < 1 {
		page = 1
	}
	c.mu.Lock()
	tok := c.seq.next()
	criteria := c.activeCriteria()
	c.state.Loading = true
	c.mu.Unlock()

	return c.fetch(ctx, tok, page, criteria, true)
}

// activeCriteria must be called with mu held.
func (c *Collection[T, In]) activeCriteria() *model.SearchCriteria {
	if c.criteria == nil {
		return nil
	}
	cp := c.criteria.Clone()
	return &cp
}

func (c *Collection[T, In]) fetch(ctx context.Context, tok uint64, page int, criteria *model.SearchCriteria, clamp bool) error {
	var (
		pg  model.Page[T]
		err error
	)
	if criteria == nil {
		pg, err = c.remote.List(ctx, page, c.opts.PageSize)
	} else {
		criteria.Page = page
		criteria.PageSize = c.opts.PageSize
		pg, err = c.remote.Search(ctx, *criteria)
	}

	c.mu.Lock()
	if !c.seq.latest(tok) {
		c.mu.Unlock()
		c.opts.Logger.Debug("discarding superseded page",
			zap.String("collection", c.opts.Name),
			zap.Uint64("token", tok),
			zap.Int("page", page))
		return ErrSuperseded
	}
	if err != nil {
		c.state.Loading = false
		c.state.Err = UserMessage(err, "Failed to fetch "+c.opts.Name+"s")
		msg := c.state.Err
		c.mu.Unlock()
		c.opts.Logger.Warn("page fetch failed",
			zap.String("collection", c.opts.Name),
			zap.Int("page", page),
			zap.Error(err))
		failure(c.opts.Notifier, msg)
		return err
	}
	if clamp && pg.TotalPages >= 1 && pg.TotalPages < page {
		// The requested page vanished, e.g. its last item was deleted.
		next := c.seq.next()
		c.mu.Unlock()
		return c.fetch(ctx, next, pg.TotalPages, criteria, false)
	}

	c.apply(pg, page, criteria)
	c.mu.Unlock()
	return nil
}

// apply must be called with mu held.
func (c *Collection[T, In]) apply(pg model.Page[T], requested int, criteria *model.SearchCriteria) {
	items := pg.Items
	if items == nil {
		items = []T{}
	}
	current := pg.CurrentPage
	if current < 1 {
		current = requested
	}
	if pg.TotalItems == 0 {
		current = 1
	}
	mode := ModeListing
	if criteria != nil {
		mode = ModeSearching
	}
	c.state = CollectionState[T]{
		Items:       items,
		CurrentPage: current,
		PageSize:    c.opts.PageSize,
		TotalItems:  pg.TotalItems,
		TotalPages:  pg.TotalPages,
		HasPrev:     pg.HasPrev,
		HasNext:     pg.HasNext,
		Mode:        mode,
	}
}

// Search makes criteria the active filter and shows its first page. Nil or
// empty criteria restore the plain listing.
func (c *Collection[T, In]) Search(ctx context.Context, criteria *model.SearchCriteria) error {
	c.mu.Lock()
	if criteria == nil || criteria.IsEmpty() {
		c.criteria = nil
	} else {
		cp := criteria.Clone()
		cp.Term = strings.TrimSpace(cp.Term)
		c.criteria = &cp
	}
	c.mu.Unlock()
	return c.Load(ctx, 1)
}

func (c *Collection[T, In]) ClearFilters(ctx context.Context) error {
	return c.Search(ctx, nil)
}

// GoToPage is a no-op outside [1, TotalPages] and on the current page.
func (c *Collection[T, In]) GoToPage(ctx context.Context, page int) error {
	c.mu.Lock()
	skip := page < 1 || page > c.state.TotalPages || page == c.state.CurrentPage
	c.mu.Unlock()
	if skip {
		return nil
	}
	return c.Load(ctx, page)
}

func (c *Collection[T, In]) NextPage(ctx context.Context) error {
	return c.GoToPage(ctx, c.currentPage()+1)
}

func (c *Collection[T, In]) PrevPage(ctx context.Context) error {
	return c.GoToPage(ctx, c.currentPage()-1)
}

func (c *Collection[T, In]) currentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.CurrentPage
}

// Reload re-fetches the current page in the active mode.
func (c *Collection[T, In]) Reload(ctx context.Context) error {
	return c.Load(ctx, c.currentPage())
}

func (c *Collection[T, In]) Create(ctx context.Context, in In) (T, error) {
	var created T
	if !c.opts.Capabilities.CanEdit {
		return created, ErrNotPermitted
	}
	err := c.mutate(ctx, "create", "created", func(ctx context.Context) error {
		var err error
		created, err = c.remote.Create(ctx, in)
		return err
	})
	return created, err
}

func (c *Collection[T, In]) Update(ctx context.Context, id string, in In) (T, error) {
	var updated T
	if !c.opts.Capabilities.CanEdit {
		return updated, ErrNotPermitted
	}
	err := c.mutate(ctx, "update", "updated", func(ctx context.Context) error {
		var err error
		updated, err = c.remote.Update(ctx, id, in)
		return err
	})
	return updated, err
}

func (c *Collection[T, In]) Delete(ctx context.Context, id string) error {
	if !c.opts.Capabilities.CanDelete {
		return ErrNotPermitted
	}
	return c.mutate(ctx, "delete", "deleted", func(ctx context.Context) error {
		return c.remote.Delete(ctx, id)
	})
}

func (c *Collection[T, In]) mutate(ctx context.Context, verb, done string, run func(context.Context) error) error {
	noun := c.opts.Name
	return mutateThenReconcile(ctx, mutation{
		run: run,
		onSuccess: func() {
			success(c.opts.Notifier, capitalize(noun)+" "+done+" successfully")
		},
		onFailure: func(err error) {
			msg := UserMessage(err, "Failed to "+verb+" "+noun)
			c.mu.Lock()
			c.state.Err = msg
			c.mu.Unlock()
			c.opts.Logger.Warn(noun+" "+verb+" failed", zap.Error(err))
			failure(c.opts.Notifier, msg)
		},
		reconcile: c.Reload,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
