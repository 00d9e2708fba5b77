package shared

import (
	"context"
	"time"
)

// Cache is a key/value store for read models.
// Values are serialized by the implementation; Get reports false on a miss.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Cache keys shared between services that read and services that invalidate.
const (
	CacheKeyRules      = "catalog:rules"
	CacheKeyUsers      = "directory:users"
	CacheKeyClients    = "directory:clients"
	CacheKeyLedgerStat = "ledger:summary"
)

// ReadThrough returns the cached value under key, loading and caching it on a miss.
// A nil cache or a failing cache call degrades to calling load directly.
func ReadThrough[T any](ctx context.Context, c Cache, key string, ttl time.Duration, load func(ctx context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}
	var cached T
	if ok, err := c.Get(ctx, key, &cached); err == nil && ok {
		return cached, nil
	}
	value, err := load(ctx)
	if err != nil {
		return value, err
	}
	_ = c.Set(ctx, key, value, ttl)
	return value, nil
}

// Invalidate deletes keys, ignoring a nil cache. Errors are returned for logging only;
// the stale entry still expires with its TTL.
func Invalidate(ctx context.Context, c Cache, keys ...string) error {
	if c == nil || len(keys) == 0 {
		return nil
	}
	return c.Delete(ctx, keys...)
}
