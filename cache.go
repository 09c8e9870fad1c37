// Package respcache provides an http.Handler middleware that works as a
// mostly RFC 7234 compliant shared cache for HTTP responses.
//
// The middleware intercepts requests on their way to an inner handler,
// serves matching stored responses when the caching rules permit it, and
// captures fresh responses for future reuse. Storage is delegated to a
// pluggable byte-addressable Cache backend; subpackages provide backends
// for freecache, Redis, memcached, LevelDB, disk, MongoDB, NATS K/V,
// PostgreSQL, Hazelcast and cloud blob storage.
package respcache

import (
	"context"
	"time"
)

// A Cache is used by the Middleware to store and retrieve serialized
// entries. Implementations must be safe for concurrent use; entries are
// expected to disappear on their own once the supplied TTL has elapsed.
type Cache interface {
	// Get returns the bytes stored under key and a bool set to true
	// if the key was present and not yet expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key. The entry expires after ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
