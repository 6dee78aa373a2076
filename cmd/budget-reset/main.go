// Command budget-reset zeroes the daily spend of every campaign. The
// scheduler runs it once per billing day; running it twice is harmless.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/prajwalbharadwajbm/bidengine/internal/budget"
	"github.com/prajwalbharadwajbm/bidengine/internal/cache"
	"github.com/prajwalbharadwajbm/bidengine/internal/config"
	"github.com/prajwalbharadwajbm/bidengine/internal/database"
	"github.com/prajwalbharadwajbm/bidengine/internal/logger"
	"github.com/prajwalbharadwajbm/bidengine/internal/repository"
)

const resetTimeout = time.Minute

func main() {
	config.LoadConfigs()
	general := config.AppConfigInstance.GeneralConfig
	kitLogger := logger.New(logger.Config{
		Service: "bidengine-budget-reset",
		Version: general.Version,
		Level:   general.LogLevel,
	})

	if err := run(kitLogger); err != nil {
		level.Error(kitLogger).Log("msg", "daily budget reset failed", "err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	dbConfig := config.AppConfigInstance.DatabaseConfig
	if !dbConfig.Enabled {
		return fmt.Errorf("database is disabled, nothing to reset")
	}
	db, cleanup, err := database.Initialize(ctx, dbConfig, logger)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer cleanup()
	repo := repository.NewPostgresRepository(db)

	// stale cached spend would let the servers refuse bids the reset allows.
	// The memory tier stays on when configured so the deletions are also
	// published to the servers' memory tiers.
	cacheConfig := config.GetCacheConfig()
	store, err := cache.NewHybridStore(cacheConfig)
	if err != nil {
		level.Warn(logger).Log("msg", "redis unavailable, cached campaigns expire on their ttl", "err", err)
		cacheConfig.EnableRedis = false
		if store, err = cache.NewHybridStore(cacheConfig); err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
	}
	defer store.Close()
	campaigns := cache.NewCampaignCache(store, repo, cacheConfig.DefaultTTL, logger, nil)

	_, err = budget.NewLedger(repo, campaigns, logger, nil).ResetDailyBudget(ctx)
	return err
}
