// Package postgresql provides a PostgreSQL-backed respcache.Cache
// using github.com/jackc/pgx/v5.
//
// Each row carries its absolute expiry; reads filter expired rows and
// writes opportunistically sweep them, so the table stays bounded
// without an external reaper.
package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultTableName is the default table name for cache storage.
const DefaultTableName = "respcache"

// ErrNilPool is returned when a nil pool is provided.
var ErrNilPool = errors.New("postgresql: pool cannot be nil")

// Config holds the configuration for the PostgreSQL cache.
type Config struct {
	// TableName is the name of the table to store cache entries
	// (default: "respcache").
	TableName string
	// Timeout is the maximum time to wait for database operations
	// (default: 5s).
	Timeout time.Duration
}

// Cache is an implementation of respcache.Cache that stores entries in
// PostgreSQL.
type Cache struct {
	pool      *pgxpool.Pool
	tableName string
	timeout   time.Duration
}

// New creates a Cache over the given pool and ensures the cache table
// exists.
func New(ctx context.Context, pool *pgxpool.Pool, config *Config) (*Cache, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	c := &Cache{pool: pool, tableName: DefaultTableName, timeout: 5 * time.Second}
	if config != nil {
		if config.TableName != "" {
			c.tableName = config.TableName
		}
		if config.Timeout > 0 {
			c.timeout = config.Timeout
		}
	}

	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := pool.Exec(opCtx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			data       BYTEA NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`, c.tableName))
	if err != nil {
		return nil, fmt.Errorf("postgresql: create table: %w", err)
	}
	_, err = pool.Exec(opCtx, fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_expires_at_idx ON %s (expires_at)`,
		c.tableName, c.tableName))
	if err != nil {
		return nil, fmt.Errorf("postgresql: create index: %w", err)
	}
	return c, nil
}

// Get returns the entry bytes and true when a live row exists.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var data []byte
	err := c.pool.QueryRow(opCtx, fmt.Sprintf(
		`SELECT data FROM %s WHERE key = $1 AND expires_at > now()`, c.tableName),
		key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgresql: get %q: %w", key, err)
	}
	return data, true, nil
}

// Set upserts the entry with an absolute expiry derived from ttl, and
// sweeps a handful of expired rows while it is at it.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.pool.Exec(opCtx, fmt.Sprintf(`
		INSERT INTO %s (key, data, expires_at) VALUES ($1, $2, now() + $3)
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, expires_at = EXCLUDED.expires_at`,
		c.tableName), key, value, ttl)
	if err != nil {
		return fmt.Errorf("postgresql: set %q: %w", key, err)
	}

	_, err = c.pool.Exec(opCtx, fmt.Sprintf(`
		DELETE FROM %s WHERE key IN (
			SELECT key FROM %s WHERE expires_at <= now() LIMIT 16
		)`, c.tableName, c.tableName))
	if err != nil {
		return fmt.Errorf("postgresql: sweep: %w", err)
	}
	return nil
}
