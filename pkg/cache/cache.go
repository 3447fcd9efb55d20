// Package cache provides the byte-level caches used by the resolver: POM
// documents fetched from remote repositories and fully built graphs.
//
// Backends:
//   - [FileCache]: one JSON file per entry, for CLI usage
//   - [RedisCache]: shared cache for several resolver processes
//   - [MongoCache]: shared cache with a TTL index
//   - [NullCache]: stores nothing
//
// Keys are produced by a [Keyer]; [ScopedKeyer] prefixes them so that
// several configurations can share one backend.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrBackend is wrapped by errors from a cache backend that could not be
// reached or configured.
var ErrBackend = errors.New("cache backend unavailable")

// TTLs for cached entries.
const (
	POMTTL   = 7 * 24 * time.Hour // released POMs do not change
	GraphTTL = 24 * time.Hour     // built graphs depend on remote state
)

// Cache stores opaque byte values with an optional time-to-live.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. The boolean is false on a miss or if
	// the entry expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Pruner is implemented by caches that must drop expired entries
// themselves. Redis and MongoDB expire entries on the server.
type Pruner interface {
	Prune(ctx context.Context) (int, error)
}
