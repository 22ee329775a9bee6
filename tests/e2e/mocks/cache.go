package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// InMemoryCache always misses; it stands in for Redis when a test only needs
// the read-through path to fall through to the services.
type InMemoryCache struct{}

func (c *InMemoryCache) Get(ctx context.Context, key string, dest any) error {
	return redis.Nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	return nil
}

func (c *InMemoryCache) Del(ctx context.Context, keys ...string) error {
	return nil
}

func (c *InMemoryCache) Close() error {
	return nil
}

// TrackingCache counts cache traffic so tests can assert on invalidation.
type TrackingCache struct {
	mu       sync.Mutex
	GetCalls int
	SetCalls int
	DelKeys  []string
}

func (c *TrackingCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GetCalls++
	return redis.Nil
}

func (c *TrackingCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetCalls++
	return nil
}

func (c *TrackingCache) Del(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.DelKeys = append(c.DelKeys, keys...)
	return nil
}

func (c *TrackingCache) Close() error {
	return nil
}

// Deleted returns a copy of every key invalidated so far.
func (c *TrackingCache) Deleted() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.DelKeys))
	copy(out, c.DelKeys)
	return out
}
