package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store is a byte-oriented key/value cache with per-key TTL
type Store interface {
	// Get returns ErrCacheMiss when the key is absent or expired
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Stats() CacheStats
}

// CacheStats holds cache performance statistics
type CacheStats struct {
	Hits        int64
	Misses      int64
	Errors      int64
	HitRatio    float64
	TotalOps    int64
	LastUpdated time.Time
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	DefaultTTL      time.Duration
	MemoryCacheSize int
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	EnableMemory    bool
	EnableRedis     bool
	CleanupInterval time.Duration
}

// Custom errors
var (
	ErrCacheMiss = errors.New("cache miss")
)

// statsRecorder is shared by the store implementations
type statsRecorder struct {
	stats CacheStats
	mu    sync.RWMutex
}

func (s *statsRecorder) snapshot() CacheStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := s.stats
	if stats.TotalOps > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(stats.TotalOps)
	}
	return stats
}

func (s *statsRecorder) recordHit() {
	s.mu.Lock()
	s.stats.Hits++
	s.stats.TotalOps++
	s.stats.LastUpdated = time.Now()
	s.mu.Unlock()
}

func (s *statsRecorder) recordMiss() {
	s.mu.Lock()
	s.stats.Misses++
	s.stats.TotalOps++
	s.stats.LastUpdated = time.Now()
	s.mu.Unlock()
}

func (s *statsRecorder) recordError() {
	s.mu.Lock()
	s.stats.Errors++
	s.stats.LastUpdated = time.Now()
	s.mu.Unlock()
}

// HybridStore layers an optional in-process tier over an optional shared
// Redis tier. With both tiers disabled every Get misses.
type HybridStore struct {
	// In-memory cache for ultra-fast access
	memory *MemoryStore
	// Redis cache for shared state
	redis  *RedisStore
	config CacheConfig
	stats  statsRecorder
}

var _ Store = (*HybridStore)(nil)

// NewHybridStore creates a new hybrid store
func NewHybridStore(config CacheConfig) (*HybridStore, error) {
	var redisStore *RedisStore
	if config.EnableRedis {
		var err error
		redisStore, err = NewRedisStore(config)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
	}

	var memoryStore *MemoryStore
	if config.EnableMemory {
		memoryStore = NewMemoryStore(config.MemoryCacheSize, config.CleanupInterval)
	}

	return newHybridStore(memoryStore, redisStore, config), nil
}

func newHybridStore(memory *MemoryStore, redis *RedisStore, config CacheConfig) *HybridStore {
	hs := &HybridStore{
		memory: memory,
		redis:  redis,
		config: config,
	}
	hs.stats.stats.LastUpdated = time.Now()
	return hs
}

// Get looks in memory first, then Redis, warming memory on a Redis hit
func (hs *HybridStore) Get(ctx context.Context, key string) ([]byte, error) {
	if hs.memory != nil {
		if data, err := hs.memory.Get(ctx, key); err == nil {
			hs.stats.recordHit()
			return data, nil
		}
	}

	if hs.redis != nil {
		data, err := hs.redis.Get(ctx, key)
		switch {
		case err == nil:
			hs.stats.recordHit()
			if hs.memory != nil {
				_ = hs.memory.Set(ctx, key, data, hs.config.DefaultTTL)
			}
			return data, nil
		case !errors.Is(err, ErrCacheMiss):
			hs.stats.recordError()
			return nil, err
		}
	}

	hs.stats.recordMiss()
	return nil, ErrCacheMiss
}

// Set stores the value in both tiers
func (hs *HybridStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if hs.memory != nil {
		_ = hs.memory.Set(ctx, key, value, ttl)
	}

	if hs.redis != nil {
		if err := hs.redis.Set(ctx, key, value, ttl); err != nil {
			hs.stats.recordError()
			return err
		}
	}
	return nil
}

// Delete removes the keys from both tiers. When both tiers are enabled the
// deletion is also published so other replicas drop their memory copies.
func (hs *HybridStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	if hs.memory != nil {
		_ = hs.memory.Delete(ctx, keys...)
	}

	if hs.redis != nil {
		if err := hs.redis.Delete(ctx, keys...); err != nil {
			hs.stats.recordError()
			return err
		}
		if hs.memory != nil {
			if err := hs.redis.PublishInvalidation(ctx, keys...); err != nil {
				hs.stats.recordError()
				return err
			}
		}
	}
	return nil
}

// Listen drops memory entries named by invalidations published by other
// replicas. It blocks until ctx is cancelled and is a no-op unless both tiers
// are enabled.
func (hs *HybridStore) Listen(ctx context.Context) error {
	if hs.memory == nil || hs.redis == nil {
		return nil
	}
	return hs.redis.SubscribeInvalidation(ctx, func(keys []string) {
		_ = hs.memory.Delete(ctx, keys...)
	})
}

// Stats returns cache statistics
func (hs *HybridStore) Stats() CacheStats {
	return hs.stats.snapshot()
}

// Ping reports whether the shared tier is reachable
func (hs *HybridStore) Ping(ctx context.Context) error {
	if hs.redis == nil {
		return nil
	}
	return hs.redis.Ping(ctx)
}

// MemoryEnabled reports whether the in-process tier is active
func (hs *HybridStore) MemoryEnabled() bool {
	return hs.memory != nil
}

// RedisEnabled reports whether the shared tier is active
func (hs *HybridStore) RedisEnabled() bool {
	return hs.redis != nil
}

// Close stops the memory cleanup loop and closes the Redis client
func (hs *HybridStore) Close() error {
	if hs.memory != nil {
		hs.memory.Close()
	}
	if hs.redis != nil {
		return hs.redis.Close()
	}
	return nil
}
