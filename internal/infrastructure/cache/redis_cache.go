package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultCloseTimeout = 5 * time.Second
	invalidationChannel = "cache:invalidate"
)

// invalidation is the Pub/Sub payload announcing deleted keys to other instances
type invalidation struct {
	Keys      []string `json:"keys"`
	Timestamp int64    `json:"ts"`
}

// RedisCache implements shared.Cache using Redis with JSON values.
// Deletes are announced on a Pub/Sub channel so local caches of other instances drop the keys.
type RedisCache struct {
	client     *redis.Client
	ownsClient bool // true if we created the client and should close it
	prefix     string
	channel    string
	logger     *zap.Logger

	mu        sync.Mutex
	cancelFn  context.CancelFunc
	doneCh    chan struct{}
	doneOnce  sync.Once
	isRunning bool
}

// RedisCacheOption is a functional option for configuring the cache
type RedisCacheOption func(*RedisCache)

// WithRedisLogger sets the logger for the cache
func WithRedisLogger(logger *zap.Logger) RedisCacheOption {
	return func(c *RedisCache) {
		c.logger = logger
	}
}

// WithKeyPrefix namespaces every key
func WithKeyPrefix(prefix string) RedisCacheOption {
	return func(c *RedisCache) {
		c.prefix = prefix
	}
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg config.RedisConfig, opts ...RedisCacheOption) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisCacheWithClient(client, opts...)
	c.ownsClient = true
	return c, nil
}

// NewRedisCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisCacheWithClient(client *redis.Client, opts ...RedisCacheOption) *RedisCache {
	c := &RedisCache{
		client:  client,
		channel: invalidationChannel,
		logger:  zap.NewNop(),
		doneCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get reads and decodes a value; a missing key is a miss, not an error
func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// A value written by an older build is treated as a miss
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

// Set encodes and stores a value with a TTL
func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Delete removes keys and announces the removal to other instances
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	if err := c.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return c.publish(ctx, keys)
}

func (c *RedisCache) publish(ctx context.Context, keys []string) error {
	data, err := json.Marshal(invalidation{Keys: keys, Timestamp: time.Now().UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}
	if err := c.client.Publish(ctx, c.prefix+c.channel, data).Err(); err != nil {
		c.logger.Error("Failed to publish cache invalidation",
			zap.String("channel", c.prefix+c.channel),
			zap.Error(err))
		return fmt.Errorf("failed to publish invalidation: %w", err)
	}
	return nil
}

// Subscribe blocks, invoking callback with the keys deleted by any instance,
// until ctx is cancelled or Close is called
func (c *RedisCache) Subscribe(ctx context.Context, callback func(keys []string)) error {
	c.mu.Lock()
	if c.isRunning {
		c.mu.Unlock()
		return fmt.Errorf("subscription already running")
	}
	c.isRunning = true
	subCtx, cancel := context.WithCancel(ctx)
	c.cancelFn = cancel
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.isRunning = false
		c.mu.Unlock()
		c.doneOnce.Do(func() { close(c.doneCh) })
	}()

	pubsub := c.client.Subscribe(subCtx, c.prefix+c.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(subCtx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}
	c.logger.Info("Subscribed to cache invalidation channel", zap.String("channel", c.prefix+c.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-subCtx.Done():
			c.logger.Info("Cache invalidation subscription stopped")
			return subCtx.Err()
		case msg, ok := <-ch:
			if !ok {
				c.logger.Warn("Cache invalidation channel closed")
				return nil
			}
			var inv invalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				c.logger.Error("Failed to unmarshal cache invalidation",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			callback(inv.Keys)
		}
	}
}

// Ping checks the connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close stops the subscription and closes the client when owned
func (c *RedisCache) Close() error {
	c.mu.Lock()
	cancelFn, running := c.cancelFn, c.isRunning
	c.mu.Unlock()

	if cancelFn != nil {
		cancelFn()
		if running {
			select {
			case <-c.doneCh:
			case <-time.After(defaultCloseTimeout):
				c.logger.Warn("Timeout waiting for subscription to stop")
			}
		}
	}
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

// Client returns the underlying Redis client
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

var _ shared.Cache = (*RedisCache)(nil)
