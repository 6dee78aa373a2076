package cache

import (
	"context"
	"sync"
	"time"
)

const defaultCleanupInterval = time.Minute

// cacheItem represents a cached item with expiration
type cacheItem struct {
	data      []byte
	expiresAt time.Time
}

// isExpired checks if the cache item has expired
func (ci *cacheItem) isExpired(now time.Time) bool {
	return now.After(ci.expiresAt)
}

// MemoryStore is an in-process Store with TTL and a size bound
type MemoryStore struct {
	items    map[string]*cacheItem
	mu       sync.RWMutex
	maxSize  int
	stopChan chan struct{}
	stopOnce sync.Once
	stats    statsRecorder
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store and starts its cleanup loop.
// Call Close to stop it.
func NewMemoryStore(maxSize int, cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	ms := &MemoryStore{
		items:    make(map[string]*cacheItem),
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}

	go ms.cleanup(cleanupInterval)

	return ms
}

// Get retrieves a value from the memory cache
func (ms *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	ms.mu.RLock()
	item, exists := ms.items[key]
	ms.mu.RUnlock()

	if !exists || item.isExpired(time.Now()) {
		ms.stats.recordMiss()
		return nil, ErrCacheMiss
	}

	ms.stats.recordHit()
	out := make([]byte, len(item.data))
	copy(out, item.data)
	return out, nil
}

// Set stores a value in the memory cache
func (ms *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.items[key] = &cacheItem{
		data:      data,
		expiresAt: time.Now().Add(ttl),
	}

	ms.evictIfNeeded()
	return nil
}

// Delete removes keys from the memory cache
func (ms *MemoryStore) Delete(_ context.Context, keys ...string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, key := range keys {
		delete(ms.items, key)
	}
	return nil
}

// Stats returns cache statistics
func (ms *MemoryStore) Stats() CacheStats {
	return ms.stats.snapshot()
}

// evictIfNeeded removes expired items and enforces max size. Caller holds mu.
func (ms *MemoryStore) evictIfNeeded() {
	if ms.maxSize <= 0 || len(ms.items) <= ms.maxSize {
		return
	}

	ms.removeExpired(time.Now())

	// still over: drop the entries closest to expiry
	for len(ms.items) > ms.maxSize {
		var oldestKey string
		var oldest time.Time
		for key, item := range ms.items {
			if oldestKey == "" || item.expiresAt.Before(oldest) {
				oldestKey, oldest = key, item.expiresAt
			}
		}
		delete(ms.items, oldestKey)
	}
}

func (ms *MemoryStore) removeExpired(now time.Time) {
	for key, item := range ms.items {
		if item.isExpired(now) {
			delete(ms.items, key)
		}
	}
}

// cleanup periodically removes expired items
func (ms *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ms.mu.Lock()
			ms.removeExpired(time.Now())
			ms.mu.Unlock()
		case <-ms.stopChan:
			return
		}
	}
}

// Close stops the cleanup goroutine
func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stopChan) })
}

// Size returns the current number of items in cache
func (ms *MemoryStore) Size() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.items)
}
