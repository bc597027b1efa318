package cache

import (
	"context"
	"time"
)

// Cache defines the primitive operations for a TTL key-value cache.
// T is the type of value stored in the cache (e.g. a session struct).
type Cache[T any] interface {
	// Get retrieves a single value from cache.
	// Returns ErrCacheMiss if the key does not exist or has expired.
	Get(ctx context.Context, key string) (T, error)

	// Set stores a single value in cache with TTL
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Take retrieves a value and removes it atomically, enforcing
	// single-use semantics. A second Take (or any Get) for the same key
	// returns ErrCacheMiss.
	Take(ctx context.Context, key string) (T, error)

	// Delete removes a key from cache
	Delete(ctx context.Context, key string) error

	// Close closes the cache connection
	Close() error

	// Health checks if the cache is healthy
	Health(ctx context.Context) error
}
