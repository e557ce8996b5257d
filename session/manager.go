package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/store"
)

// Manager binds provider tokens to browser session ids and persists them.
type Manager struct {
	store  store.SessionStore
	parser *Parser
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(st store.SessionStore, parser *Parser, ttl time.Duration) *Manager {
	return &Manager{store: st, parser: parser, ttl: ttl, now: time.Now}
}

// NewSessionID returns a fresh opaque browser session id.
func NewSessionID() string { return uuid.NewString() }

// SignIn parses token and records it for sessionID. The session expires at
// the token expiry or after the configured ttl, whichever is sooner.
func (m *Manager) SignIn(ctx context.Context, sessionID, token string) (Identity, error) {
	if sessionID == "" {
		return Identity{}, errors.New("session id required")
	}
	id, err := m.parser.Parse(token)
	if err != nil {
		return Identity{}, err
	}

	now := m.now()
	expires := now.Add(m.ttl)
	if m.ttl <= 0 || (!id.ExpiresAt.IsZero() && id.ExpiresAt.Before(expires)) {
		expires = id.ExpiresAt
	}
	if expires.IsZero() {
		expires = now.Add(24 * time.Hour)
	}

	err = m.store.Save(ctx, store.Session{
		ID:        sessionID,
		Subject:   id.Subject,
		Email:     id.Email,
		Name:      id.Name,
		Role:      id.Role,
		Token:     id.Token,
		ExpiresAt: expires,
		CreatedAt: now,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("save session: %w", err)
	}
	id.ExpiresAt = expires
	return id, nil
}

// Resume restores the identity of a previously signed-in session. Unknown
// and expired sessions yield ErrNoIdentity; expired ones are removed.
func (m *Manager) Resume(ctx context.Context, sessionID string) (Identity, error) {
	if sessionID == "" {
		return Identity{}, ErrNoIdentity
	}
	s, err := m.store.Get(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return Identity{}, ErrNoIdentity
	}
	if err != nil {
		return Identity{}, fmt.Errorf("load session: %w", err)
	}
	if s.Expired(m.now()) {
		_ = m.store.Delete(ctx, sessionID)
		return Identity{}, ErrNoIdentity
	}
	return Identity{
		Subject:   s.Subject,
		Email:     s.Email,
		Name:      s.Name,
		Role:      s.Role,
		ExpiresAt: s.ExpiresAt,
		Token:     s.Token,
	}, nil
}

func (m *Manager) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return m.store.Delete(ctx, sessionID)
}

// Purge drops expired sessions from the store.
func (m *Manager) Purge(ctx context.Context) (int64, error) {
	return m.store.PurgeExpired(ctx, m.now())
}
