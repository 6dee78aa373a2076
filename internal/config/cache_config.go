package config

import (
	"context"
	"time"

	"github.com/prajwalbharadwajbm/bidengine/internal/cache"
)

// GetCacheConfig creates cache configuration from environment variables.
// The memory tier is off by default: with several replicas only the shared
// Redis tier sees every invalidation synchronously.
func GetCacheConfig() cache.CacheConfig {
	return cache.CacheConfig{
		DefaultTTL:      getDurationEnv("CACHE_DEFAULT_TTL", cache.DefaultTTL),
		MemoryCacheSize: getEnvInt("CACHE_MEMORY_SIZE", 1000),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),
		EnableMemory:    getBoolEnv("CACHE_ENABLE_MEMORY", false),
		EnableRedis:     getBoolEnv("CACHE_ENABLE_REDIS", true),
		CleanupInterval: getDurationEnv("CACHE_CLEANUP_INTERVAL", time.Minute),
	}
}

// CacheHealthCheck represents cache health status
type CacheHealthCheck struct {
	Memory struct {
		Enabled bool `json:"enabled"`
		Size    int  `json:"size"`
	} `json:"memory"`
	Redis struct {
		Enabled   bool   `json:"enabled"`
		Connected bool   `json:"connected"`
		Address   string `json:"address"`
	} `json:"redis"`
	Stats cache.CacheStats `json:"stats"`
}

// GetCacheHealth returns current cache health status
func GetCacheHealth(ctx context.Context, store *cache.HybridStore, cfg cache.CacheConfig) CacheHealthCheck {
	health := CacheHealthCheck{}

	health.Memory.Enabled = store.MemoryEnabled()
	health.Memory.Size = cfg.MemoryCacheSize

	health.Redis.Enabled = store.RedisEnabled()
	health.Redis.Address = cfg.RedisAddr
	health.Redis.Connected = store.RedisEnabled() && store.Ping(ctx) == nil

	health.Stats = store.Stats()

	return health
}
