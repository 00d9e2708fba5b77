package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/consorcio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// defaultL1TTL bounds how long an instance can serve a value another instance deleted
// while the invalidation message is in flight
const defaultL1TTL = 30 * time.Second

// remoteCache is the shared L2 tier
type remoteCache interface {
	shared.Cache
	Subscribe(ctx context.Context, callback func(keys []string)) error
	Ping(ctx context.Context) error
}

// TieredCache implements a two-tier caching strategy
// L1: local in-memory cache (fast, but local to instance)
// L2: Redis cache (slower, but shared across instances)
// Reads go L1 then L2, writes go to both, deletes are broadcast to every L1.
type TieredCache struct {
	l1     *InMemoryCache
	l2     remoteCache
	l1TTL  time.Duration
	logger *zap.Logger

	l1Hits   atomic.Int64
	l2Hits   atomic.Int64
	misses   atomic.Int64
	l2Errors atomic.Int64
}

// TieredCacheOption is a functional option for configuring the cache
type TieredCacheOption func(*TieredCache)

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredCacheOption {
	return func(c *TieredCache) {
		c.logger = logger
	}
}

// WithL1TTL caps the lifetime of local copies
func WithL1TTL(ttl time.Duration) TieredCacheOption {
	return func(c *TieredCache) {
		c.l1TTL = ttl
	}
}

// NewTieredCache creates a tiered cache over a local and a shared tier
func NewTieredCache(l1 *InMemoryCache, l2 remoteCache, opts ...TieredCacheOption) *TieredCache {
	c := &TieredCache{
		l1:     l1,
		l2:     l2,
		l1TTL:  defaultL1TTL,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartInvalidationSubscription drops local copies of keys deleted by any instance.
// It blocks and is typically run in a goroutine.
func (c *TieredCache) StartInvalidationSubscription(ctx context.Context) error {
	return c.l2.Subscribe(ctx, func(keys []string) {
		if err := c.l1.Delete(ctx, keys...); err != nil {
			c.logger.Error("Failed to invalidate L1 keys", zap.Strings("keys", keys), zap.Error(err))
			return
		}
		c.logger.Debug("Invalidated L1 keys", zap.Strings("keys", keys))
	})
}

// Get reads L1 first, then L2. An L2 failure is logged and reported as a miss so
// callers fall back to the database.
func (c *TieredCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if ok, err := c.l1.Get(ctx, key, dest); err == nil && ok {
		c.l1Hits.Add(1)
		return true, nil
	}

	ok, err := c.l2.Get(ctx, key, dest)
	if err != nil {
		c.l2Errors.Add(1)
		c.logger.Warn("L2 cache read failed", zap.String("key", key), zap.Error(err))
		c.misses.Add(1)
		return false, nil
	}
	if !ok {
		c.misses.Add(1)
		return false, nil
	}
	c.l2Hits.Add(1)
	_ = c.l1.Set(ctx, key, dest, c.l1TTL)
	return true, nil
}

// Set writes both tiers; the local copy lives at most l1TTL
func (c *TieredCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	l1TTL := c.l1TTL
	if ttl < l1TTL {
		l1TTL = ttl
	}
	_ = c.l1.Set(ctx, key, value, l1TTL)
	if err := c.l2.Set(ctx, key, value, ttl); err != nil {
		c.l2Errors.Add(1)
		return err
	}
	return nil
}

// Delete removes keys from both tiers and broadcasts the removal
func (c *TieredCache) Delete(ctx context.Context, keys ...string) error {
	_ = c.l1.Delete(ctx, keys...)
	if err := c.l2.Delete(ctx, keys...); err != nil {
		c.l2Errors.Add(1)
		return err
	}
	return nil
}

// Ping checks the shared tier
func (c *TieredCache) Ping(ctx context.Context) error {
	return c.l2.Ping(ctx)
}

// Close closes both tiers
func (c *TieredCache) Close() error {
	_ = c.l1.Close()
	return c.l2.Close()
}

// TieredCacheStats holds hit counters for monitoring
type TieredCacheStats struct {
	L1Hits   int64 `json:"l1_hits"`
	L2Hits   int64 `json:"l2_hits"`
	Misses   int64 `json:"misses"`
	L2Errors int64 `json:"l2_errors"`
}

// Stats returns the hit counters
func (c *TieredCache) Stats() TieredCacheStats {
	return TieredCacheStats{
		L1Hits:   c.l1Hits.Load(),
		L2Hits:   c.l2Hits.Load(),
		Misses:   c.misses.Load(),
		L2Errors: c.l2Errors.Load(),
	}
}

var _ shared.Cache = (*TieredCache)(nil)
