package ranking

import (
	"context"
	"fmt"
	"sync"

	goredis "github.com/redis/go-redis/v9"
)

// Counter keeps per-product ordered quantities.
type Counter interface {
	Incr(ctx context.Context, productID string, n int64) error
	Counts(ctx context.Context) (map[string]int64, error)
	Reset(ctx context.Context) error
}

// MemoryCounter counts in process.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int64)}
}

func (c *MemoryCounter) Incr(_ context.Context, productID string, n int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[productID] += n
	return nil
}

func (c *MemoryCounter) Counts(context.Context) (map[string]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.counts))
	for id, n := range c.counts {
		out[id] = n
	}
	return out, nil
}

func (c *MemoryCounter) Reset(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts = make(map[string]int64)
	return nil
}

type sortedSetClient interface {
	ZIncrBy(ctx context.Context, key string, incr float64, member string) (float64, error)
	ZRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]goredis.Z, error)
	Del(ctx context.Context, keys ...string) error
	RankingKey(name string) string
}

// RedisCounter keeps counts in a sorted set so the API and the ranking worker share them.
type RedisCounter struct {
	client sortedSetClient
	key    string
}

// NewRedisCounter stores counts under the ranking key for name.
func NewRedisCounter(client sortedSetClient, name string) (*RedisCounter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if name == "" {
		name = "products"
	}
	return &RedisCounter{client: client, key: client.RankingKey(name)}, nil
}

func (c *RedisCounter) Incr(ctx context.Context, productID string, n int64) error {
	if _, err := c.client.ZIncrBy(ctx, c.key, float64(n), productID); err != nil {
		return fmt.Errorf("zincrby %s: %w", c.key, err)
	}
	return nil
}

func (c *RedisCounter) Counts(ctx context.Context) (map[string]int64, error) {
	members, err := c.client.ZRevRangeWithScores(ctx, c.key, 0, -1)
	if err != nil {
		return nil, fmt.Errorf("zrevrange %s: %w", c.key, err)
	}
	out := make(map[string]int64, len(members))
	for _, z := range members {
		id, ok := z.Member.(string)
		if !ok {
			id = fmt.Sprint(z.Member)
		}
		out[id] = int64(z.Score)
	}
	return out, nil
}

func (c *RedisCounter) Reset(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key); err != nil {
		return fmt.Errorf("del %s: %w", c.key, err)
	}
	return nil
}
