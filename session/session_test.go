package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/store"
)

func signToken(t *testing.T, secret string, c jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestParser_VerifiedToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	tok := signToken(t, "s3cret", jwt.MapClaims{
		"sub":           "user-1",
		"email":         "a@b.c",
		"role":          "authenticated",
		"app_metadata":  map[string]any{"role": "admin"},
		"user_metadata": map[string]any{"full_name": "Ann"},
		"exp":           exp.Unix(),
	})

	id, err := NewParser("s3cret").Parse("Bearer " + tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.Subject)
	assert.Equal(t, "a@b.c", id.Email)
	assert.Equal(t, "Ann", id.Name)
	assert.True(t, id.IsAdmin())
	assert.Equal(t, tok, id.Token)
	assert.True(t, id.ExpiresAt.Equal(exp))
}

func TestParser_Rejects(t *testing.T) {
	good := jwt.MapClaims{"sub": "u", "exp": time.Now().Add(time.Hour).Unix()}

	cases := map[string]struct {
		parser *Parser
		token  string
	}{
		"wrong secret":       {NewParser("a"), signToken(t, "b", good)},
		"expired verified":   {NewParser("a"), signToken(t, "a", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()})},
		"expired unverified": {NewParser(""), signToken(t, "x", jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Minute).Unix()})},
		"missing subject":    {NewParser(""), signToken(t, "x", jwt.MapClaims{"email": "a@b.c"})},
		"garbage":            {NewParser(""), "not-a-jwt"},
		"empty":              {NewParser(""), "  "},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.parser.Parse(tc.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestContext_SignInSignOut(t *testing.T) {
	c := NewContext()
	_, ok := c.Identity()
	assert.False(t, ok)
	tok, err := c.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tok, "signed out calls are anonymous")

	c.SignIn(Identity{Subject: "u1", Token: "t1"})
	tok, _ = c.Token(context.Background())
	assert.Equal(t, "t1", tok)

	c.SignOut()
	_, err = c.Require()
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestContext_ExpiredIdentityIsSignedOut(t *testing.T) {
	c := Signed(Identity{Subject: "u1", ExpiresAt: time.Now().Add(-time.Second)})
	_, ok := c.Identity()
	assert.False(t, ok)
}

func TestManager_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewManager(st, NewParser("k"), 30*time.Minute)

	tok := signToken(t, "k", jwt.MapClaims{"sub": "user-9", "exp": time.Now().Add(2 * time.Hour).Unix()})
	sid := NewSessionID()

	id, err := m.SignIn(ctx, sid, tok)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), id.ExpiresAt, 5*time.Second, "ttl caps the token expiry")

	resumed, err := m.Resume(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "user-9", resumed.Subject)
	assert.Equal(t, tok, resumed.Token)

	require.NoError(t, m.SignOut(ctx, sid))
	_, err = m.Resume(ctx, sid)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestManager_ResumeDropsExpired(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewManager(st, NewParser(""), time.Hour)
	require.NoError(t, st.Save(ctx, store.Session{ID: "old", Subject: "u", ExpiresAt: time.Now().Add(-time.Minute)}))

	_, err := m.Resume(ctx, "old")
	assert.ErrorIs(t, err, ErrNoIdentity)
	_, err = st.Get(ctx, "old")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestManager_InvalidTokenIsNotStored(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	m := NewManager(st, NewParser("k"), time.Hour)

	_, err := m.SignIn(ctx, "s1", "bogus")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = st.Get(ctx, "s1")
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}
