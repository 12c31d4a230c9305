package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"example.com/backstage/services/challan/config"
	"example.com/backstage/services/challan/internal/models"
)

var (
	// ErrCacheMiss is returned when a key is not cached
	ErrCacheMiss = errors.New("key not found in cache")

	// ErrCacheDisabled is returned by every call on a disabled cache
	ErrCacheDisabled = errors.New("cache is disabled")
)

// RedisCache provides caching using Redis. Rendered documents never change,
// so entries only expire to bound memory.
type RedisCache struct {
	client  *redis.Client
	enabled bool
	ttl     time.Duration
}

// NewRedisCache creates a new Redis cache
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	if !cfg.Enabled {
		return &RedisCache{enabled: false}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return NewRedisCacheFromClient(client, cfg.TTL), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		enabled: true,
		ttl:     ttl,
	}
}

// Enabled reports whether the cache talks to Redis
func (c *RedisCache) Enabled() bool {
	return c != nil && c.enabled
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrCacheMiss
		}
		return errors.Wrap(err, "failed to get value from Redis")
	}

	if err := json.Unmarshal(data, value); err != nil {
		return errors.Wrap(err, "failed to unmarshal cached value")
	}

	return nil
}

// Set stores a value in cache with the configured expiration
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}

	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to marshal value for caching")
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set value in Redis")
	}

	return nil
}

// GetDocument returns a cached document or ErrCacheMiss
func (c *RedisCache) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	if err := c.Get(ctx, DocumentCacheKey(id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// SetDocument caches a rendered document
func (c *RedisCache) SetDocument(ctx context.Context, doc *models.Document) error {
	return c.Set(ctx, DocumentCacheKey(doc.ID), doc)
}

// DeleteDocument evicts a cached document
func (c *RedisCache) DeleteDocument(ctx context.Context, id uint) error {
	if !c.Enabled() {
		return ErrCacheDisabled
	}
	if err := c.client.Del(ctx, DocumentCacheKey(id)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete value from Redis")
	}
	return nil
}

// DocumentCacheKey generates a cache key for a rendered challan
func DocumentCacheKey(id uint) string {
	return fmt.Sprintf("challan:document:%d", id)
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	if !c.Enabled() || c.client == nil {
		return nil
	}
	return c.client.Close()
}
