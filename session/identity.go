// Package session owns the signed-in identity of one storefront session.
// Identity is injected into view-models through a Context instead of being
// read from global state.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrNoIdentity   = errors.New("no signed-in identity")
	ErrInvalidToken = errors.New("invalid access token")
)

const RoleAdmin = "admin"

// Identity is the user the identity provider vouched for.
type Identity struct {
	Subject   string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`

	// Token is the provider's access token, forwarded as the bearer credential.
	Token string `json:"-"`
}

func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }

// Expired reports whether the token is past its expiry at now. A zero
// ExpiresAt never expires.
func (i Identity) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// Context holds the identity of one session. The zero value is signed out.
// It is safe for concurrent use.
type Context struct {
	mu  sync.RWMutex
	id  *Identity
	now func() time.Time
}

func NewContext() *Context { return &Context{now: time.Now} }

// Signed returns a Context already signed in as id.
func Signed(id Identity) *Context {
	c := NewContext()
	c.SignIn(id)
	return c
}

func (c *Context) SignIn(id Identity) {
	c.mu.Lock()
	c.id = &id
	c.mu.Unlock()
}

func (c *Context) SignOut() {
	c.mu.Lock()
	c.id = nil
	c.mu.Unlock()
}

// Identity returns the current identity. An expired identity counts as
// signed out.
func (c *Context) Identity() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.id == nil {
		return Identity{}, false
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if c.id.Expired(now()) {
		return Identity{}, false
	}
	return *c.id, true
}

// Require is Identity with ErrNoIdentity for the signed-out case.
func (c *Context) Require() (Identity, error) {
	id, ok := c.Identity()
	if !ok {
		return Identity{}, ErrNoIdentity
	}
	return id, nil
}

// Token implements client.TokenSource. Signed-out sessions call the API
// anonymously.
func (c *Context) Token(context.Context) (string, error) {
	id, ok := c.Identity()
	if !ok {
		return "", nil
	}
	return id.Token, nil
}
