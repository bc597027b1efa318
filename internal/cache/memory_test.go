package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemoryCache_GetSet(t *testing.T) {
	cache := NewMemoryCache[string]()
	ctx := context.Background()

	err := cache.Set(ctx, "test-key", "value", time.Minute)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := cache.Get(ctx, "test-key")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if value != "value" {
		t.Errorf("Expected value %q, got %q", "value", value)
	}
}

func TestMemoryCache_GetMiss(t *testing.T) {
	cache := NewMemoryCache[string]()
	ctx := context.Background()

	_, err := cache.Get(ctx, "non-existent")
	if err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache[int64]()
	ctx := context.Background()

	err := cache.Set(ctx, "expire-key", 100, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// Should be available immediately
	value, err := cache.Get(ctx, "expire-key")
	if err != nil {
		t.Fatalf("Get failed before expiration: %v", err)
	}
	if value != 100 {
		t.Errorf("Expected value 100, got %d", value)
	}

	time.Sleep(80 * time.Millisecond)

	if _, err := cache.Get(ctx, "expire-key"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after expiration, got %v", err)
	}
}

func TestMemoryCache_TakeSingleUse(t *testing.T) {
	cache := NewMemoryCache[string]()
	ctx := context.Background()

	if err := cache.Set(ctx, "state", "verifier", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	value, err := cache.Take(ctx, "state")
	if err != nil {
		t.Fatalf("Take failed: %v", err)
	}
	if value != "verifier" {
		t.Errorf("Expected value %q, got %q", "verifier", value)
	}

	// Second lookup behaves as if the key never existed
	if _, err := cache.Take(ctx, "state"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss on second Take, got %v", err)
	}
	if _, err := cache.Get(ctx, "state"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss on Get after Take, got %v", err)
	}
}

func TestMemoryCache_TakeExpired(t *testing.T) {
	cache := NewMemoryCache[string]()
	ctx := context.Background()

	if err := cache.Set(ctx, "state", "verifier", 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(30 * time.Millisecond)

	if _, err := cache.Take(ctx, "state"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss for expired key, got %v", err)
	}
}

func TestMemoryCache_TakeConcurrent(t *testing.T) {
	cache := NewMemoryCache[string]()
	ctx := context.Background()

	if err := cache.Set(ctx, "state", "verifier", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var winners atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Take(ctx, "state"); err == nil {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Errorf("Expected exactly one successful Take, got %d", got)
	}
}

func TestMemoryCache_SweepRemovesAbandonedEntries(t *testing.T) {
	cache := newMemoryCache[string](10 * time.Millisecond)
	defer cache.Close()
	ctx := context.Background()

	// Entries that are never read again must still be reclaimed.
	for i := 0; i < 5; i++ {
		key := string(rune('a' + i))
		if err := cache.Set(ctx, key, "verifier", 20*time.Millisecond); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	if err := cache.Set(ctx, "live", "verifier", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		cache.mu.Lock()
		n := len(cache.items)
		cache.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("Expected sweep to leave 1 entry, still have %d", n)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := cache.Get(ctx, "live"); err != nil {
		t.Errorf("Unexpired entry should survive the sweep, got %v", err)
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache[string]()
	if err := cache.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache[string]()
	ctx := context.Background()

	if err := cache.Set(ctx, "key", "value", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := cache.Delete(ctx, "key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := cache.Get(ctx, "key"); err != ErrCacheMiss {
		t.Errorf("Expected ErrCacheMiss after delete, got %v", err)
	}
}
