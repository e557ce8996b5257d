package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "storefront:session:"

// RedisStore keeps each session in a hash that expires with the session.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, defaultKeyPrefix), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (r *RedisStore) key(id string) string { return r.prefix + id }

func (r *RedisStore) Save(ctx context.Context, s Session) error {
	if s.ID == "" {
		return errors.New("session id required")
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	key := r.key(s.ID)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		"subject":    s.Subject,
		"email":      s.Email,
		"name":       s.Name,
		"role":       s.Role,
		"token":      s.Token,
		"expires_at": s.ExpiresAt.UTC().Format(time.RFC3339Nano),
		"created_at": s.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	pipe.ExpireAt(ctx, key, s.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id string) (Session, error) {
	fields, err := r.client.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	if len(fields) == 0 {
		return Session{}, ErrSessionNotFound
	}

	s := Session{
		ID:      id,
		Subject: fields["subject"],
		Email:   fields["email"],
		Name:    fields["name"],
		Role:    fields["role"],
		Token:   fields["token"],
	}
	if s.ExpiresAt, err = time.Parse(time.RFC3339Nano, fields["expires_at"]); err != nil {
		return Session{}, fmt.Errorf("session %s: bad expires_at: %w", id, err)
	}
	if v := fields["created_at"]; v != "" {
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, v)
	}
	return s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis expires the keys itself.
func (r *RedisStore) PurgeExpired(context.Context, time.Time) (int64, error) { return 0, nil }

func (r *RedisStore) Close() error { return r.client.Close() }
