package cache

import (
	"context"
	"fmt"

	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Cache is the shared.Cache the server wires, with a health check
type Cache interface {
	shared.Cache
	Ping(ctx context.Context) error
}

// Factory creates the read-model cache based on configuration
type Factory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to a local cache when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           redisCfg,
		cacheConfig:           cacheCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a tiered Redis cache when Redis is enabled and reachable, or an
// in-memory cache otherwise. Local caches are not shared across instances, so a
// write on one instance may be served stale by another until the TTL expires.
func (f *Factory) Create(ctx context.Context) (Cache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory cache")
		return NewInMemoryCache(), nil
	}

	remote, err := NewRedisCache(f.redisConfig,
		WithKeyPrefix(f.cacheConfig.KeyPrefix),
		WithRedisLogger(f.logger),
	)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for cache but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory cache", zap.Error(err))
		return NewInMemoryCache(), nil
	}

	tiered := NewTieredCache(NewInMemoryCache(), remote, WithTieredLogger(f.logger))
	go func() {
		if err := tiered.StartInvalidationSubscription(ctx); err != nil && ctx.Err() == nil {
			f.logger.Error("Cache invalidation subscription ended", zap.Error(err))
		}
	}()
	f.logger.Info("Using tiered Redis cache", zap.String("addr", f.redisConfig.Addr()))
	return tiered, nil
}
