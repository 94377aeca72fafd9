package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/attos/attos-backend/pkg/redis"
)

type redisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	StateKey(namespace, name string) string
}

// RedisStore keeps each payload as a plain string value without expiry.
type RedisStore struct {
	client    redisClient
	namespace string
}

func NewRedisStore(client redisClient, namespace string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	return &RedisStore{client: client, namespace: namespace}, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.client.StateKey(s.namespace, key))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return []byte(value), nil
}

func (s *RedisStore) Save(ctx context.Context, key string, payload []byte) error {
	if err := s.client.Set(ctx, s.client.StateKey(s.namespace, key), string(payload), 0); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
