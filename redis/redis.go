// Package redis provides a Redis-backed respcache.Cache using
// github.com/redis/go-redis/v9. Entry TTLs map onto Redis key expiry,
// so Redis removes stale entries on its own.
package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix is prepended to all cache keys to avoid collision
// with other data stored in the same Redis database.
const DefaultKeyPrefix = "respcache:"

// Config holds the configuration for creating a Redis cache.
type Config struct {
	// Address is the Redis server address (e.g., "localhost:6379").
	// Required unless Client is set.
	Address string

	// Password is the Redis password for authentication.
	// Optional - leave empty if no authentication is required.
	Password string

	// DB is the Redis database number to use.
	// Optional - defaults to 0.
	DB int

	// KeyPrefix is prepended to all keys.
	// Optional - defaults to DefaultKeyPrefix.
	KeyPrefix string

	// Client is an optional pre-built client; when set, Address,
	// Password and DB are ignored.
	Client redis.UniversalClient
}

// Cache is an implementation of respcache.Cache that stores entries in
// a Redis server.
type Cache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// New creates a Cache from the given configuration.
func New(config Config) (*Cache, error) {
	client := config.Client
	if client == nil {
		if config.Address == "" {
			return nil, errors.New("redis: address is required")
		}
		client = redis.NewClient(&redis.Options{
			Addr:     config.Address,
			Password: config.Password,
			DB:       config.DB,
		})
	}
	prefix := config.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{client: client, keyPrefix: prefix}, nil
}

func (c *Cache) cacheKey(key string) string {
	return c.keyPrefix + key
}

// Get returns the entry bytes and true if the key is present.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, c.cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// Set stores the entry with the given TTL via SET with expiry.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		// Redis rejects non-positive expirations; an expired entry
		// simply is not written.
		return nil
	}
	return c.client.Set(ctx, c.cacheKey(key), value, ttl).Err()
}

// Close releases the underlying client's resources.
func (c *Cache) Close() error {
	return c.client.Close()
}
