package config

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prajwalbharadwajbm/bidengine/internal/cache"
)

func TestLoadConfigs_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EXPERIMENT_BID_SELECTOR_SPLIT", "70")
	t.Setenv("DB_ENABLED", "false")
	t.Setenv("BID_SEMANTIC_TOP_K", "not-a-number")

	LoadConfigs()

	assert.Equal(t, 9090, AppConfigInstance.GeneralConfig.Port)
	assert.Equal(t, 70, AppConfigInstance.BidConfig.SelectorSplit)
	assert.False(t, AppConfigInstance.DatabaseConfig.Enabled)
	assert.Equal(t, 5, AppConfigInstance.BidConfig.SemanticTopK)
}

func TestGetCacheConfig(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "2m")
	t.Setenv("CACHE_ENABLE_MEMORY", "true")
	t.Setenv("REDIS_DB", "3")

	cfg := GetCacheConfig()
	assert.Equal(t, 2*time.Minute, cfg.DefaultTTL)
	assert.True(t, cfg.EnableMemory)
	assert.True(t, cfg.EnableRedis)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestGetCacheConfig_BadValuesFallBack(t *testing.T) {
	t.Setenv("CACHE_DEFAULT_TTL", "soon")
	t.Setenv("CACHE_ENABLE_REDIS", "maybe")

	cfg := GetCacheConfig()
	assert.Equal(t, cache.DefaultTTL, cfg.DefaultTTL)
	assert.True(t, cfg.EnableRedis)
}

func TestGetCacheHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := cache.CacheConfig{
		DefaultTTL:      time.Minute,
		MemoryCacheSize: 10,
		RedisAddr:       mr.Addr(),
		EnableRedis:     true,
	}
	store, err := cache.NewHybridStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	health := GetCacheHealth(context.Background(), store, cfg)
	assert.True(t, health.Redis.Enabled)
	assert.True(t, health.Redis.Connected)
	assert.False(t, health.Memory.Enabled)

	mr.Close()
	health = GetCacheHealth(context.Background(), store, cfg)
	assert.False(t, health.Redis.Connected)
}
