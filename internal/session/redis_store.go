package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed binding cache.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "session:",
	}
}

func (r *RedisStore) key(token string) string {
	return r.prefix + token
}

func (r *RedisStore) Put(ctx context.Context, b Binding) error {
	if b.Token == "" || b.AccountID == "" {
		return fmt.Errorf("session: missing token or account_id")
	}

	ttl := time.Until(b.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("session: marshal binding: %w", err)
	}

	return r.client.Set(ctx, r.key(b.Token), data, ttl).Err()
}

func (r *RedisStore) Get(ctx context.Context, token string) (*Binding, error) {
	val, err := r.client.Get(ctx, r.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var b Binding
	if err := json.Unmarshal(val, &b); err != nil {
		return nil, fmt.Errorf("session: unmarshal binding: %w", err)
	}
	return &b, nil
}

func (r *RedisStore) Delete(ctx context.Context, token string) error {
	return r.client.Del(ctx, r.key(token)).Err()
}
