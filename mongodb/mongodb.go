// Package mongodb provides a MongoDB-backed respcache.Cache.
//
// Each entry is a document carrying its own absolute expiry. Reads
// filter expired documents out; a TTL index on the expiresAt field lets
// MongoDB reap them in the background.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Config holds the configuration for creating a MongoDB cache.
type Config struct {
	// URI is the MongoDB connection URI (e.g., "mongodb://localhost:27017").
	// Required field.
	URI string

	// Database is the name of the database to use for caching.
	// Required field.
	Database string

	// Collection is the name of the collection to use for caching.
	// Optional - defaults to "respcache".
	Collection string

	// Timeout is the timeout for database operations.
	// Optional - defaults to 5 seconds.
	Timeout time.Duration

	// ClientOptions are additional options to pass to mongo.Connect.
	// Optional.
	ClientOptions *options.ClientOptions
}

// cacheEntry represents a cache entry document.
type cacheEntry struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Cache is an implementation of respcache.Cache that stores entries in
// MongoDB.
type Cache struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
}

// New creates a Cache from the given configuration and ensures the TTL
// index exists.
func New(ctx context.Context, config Config) (*Cache, error) {
	if config.URI == "" || config.Database == "" {
		return nil, errors.New("mongodb: URI and Database are required")
	}
	collection := config.Collection
	if collection == "" {
		collection = "respcache"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	opts := config.ClientOptions
	if opts == nil {
		opts = options.Client()
	}
	opts = opts.ApplyURI(config.URI)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	c := &Cache{
		client:     client,
		collection: client.Database(config.Database).Collection(collection),
		timeout:    timeout,
	}

	// expireAfterSeconds=0 reaps documents as soon as expiresAt passes
	indexCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err = c.collection.Indexes().CreateOne(indexCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: create TTL index: %w", err)
	}
	return c, nil
}

// Get returns the entry bytes and true if a live document exists. The
// TTL index reaps in the background, so expiry is also enforced here.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var entry cacheEntry
	err := c.collection.FindOne(opCtx, bson.M{
		"_id":       key,
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongodb: get %q: %w", key, err)
	}
	return entry.Data, true, nil
}

// Set upserts the entry with an absolute expiry derived from ttl.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	entry := cacheEntry{Key: key, Data: value, ExpiresAt: time.Now().Add(ttl)}
	_, err := c.collection.ReplaceOne(opCtx,
		bson.M{"_id": key},
		entry,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongodb: set %q: %w", key, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (c *Cache) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
