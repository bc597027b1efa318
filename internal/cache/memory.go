package cache

import (
	"context"
	"sync"
	"time"
)

type cacheItem[T any] struct {
	value     T
	expiresAt time.Time
}

// Compile-time interface check.
var _ Cache[struct{}] = (*MemoryCache[struct{}])(nil)

// defaultSweepInterval is how often the janitor removes expired entries
// that are never read again (e.g. abandoned authorization sessions).
const defaultSweepInterval = time.Minute

// MemoryCache implements Cache with in-memory storage.
// Reads check expiry lazily; a background janitor sweeps entries whose
// keys are never touched again. Suitable for single-instance deployments.
type MemoryCache[T any] struct {
	mu    sync.Mutex
	items map[string]cacheItem[T]

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryCache creates a new memory cache instance and starts its
// janitor. Call Close to stop it.
func NewMemoryCache[T any]() *MemoryCache[T] {
	return newMemoryCache[T](defaultSweepInterval)
}

func newMemoryCache[T any](sweepInterval time.Duration) *MemoryCache[T] {
	m := &MemoryCache[T]{
		items: make(map[string]cacheItem[T]),
		stop:  make(chan struct{}),
	}
	go m.janitor(sweepInterval)
	return m
}

func (m *MemoryCache[T]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *MemoryCache[T]) sweep() {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, item := range m.items {
		if now.After(item.expiresAt) {
			delete(m.items, key)
		}
	}
}

// Get retrieves a value from cache.
func (m *MemoryCache[T]) Get(ctx context.Context, key string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	if !exists {
		var zero T
		return zero, ErrCacheMiss
	}

	// Lazy expiration check
	if time.Now().After(item.expiresAt) {
		delete(m.items, key)
		var zero T
		return zero, ErrCacheMiss
	}

	return item.value, nil
}

// Set stores a value in cache with TTL.
func (m *MemoryCache[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = cacheItem[T]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Take retrieves a value and removes it under a single lock, so only one
// caller can ever observe a given key.
func (m *MemoryCache[T]) Take(ctx context.Context, key string) (T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.items[key]
	if !exists {
		var zero T
		return zero, ErrCacheMiss
	}

	delete(m.items, key)

	if time.Now().After(item.expiresAt) {
		var zero T
		return zero, ErrCacheMiss
	}

	return item.value, nil
}

// Delete removes a key from cache.
func (m *MemoryCache[T]) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Close stops the janitor and releases all entries.
func (m *MemoryCache[T]) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string]cacheItem[T])
	return nil
}

// Health checks if the cache is healthy (always true for memory cache).
func (m *MemoryCache[T]) Health(ctx context.Context) error {
	return nil
}
