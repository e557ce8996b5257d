package store

import (
	"context"
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is a persisted sign-in. Token is the provider access token the
// BFF forwards to the remote API on the user's behalf.
type Session struct {
	ID        string
	Subject   string
	Email     string
	Name      string
	Role      string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

type SessionStore interface {
	// Save inserts or replaces the session with s.ID.
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	// Delete is idempotent.
	Delete(ctx context.Context, id string) error
	// PurgeExpired removes sessions whose expiry is at or before now and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	Close() error
}
