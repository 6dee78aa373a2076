package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/prajwalbharadwajbm/bidengine/internal/auction"
	"github.com/prajwalbharadwajbm/bidengine/internal/budget"
	"github.com/prajwalbharadwajbm/bidengine/internal/cache"
	"github.com/prajwalbharadwajbm/bidengine/internal/config"
	"github.com/prajwalbharadwajbm/bidengine/internal/database"
	"github.com/prajwalbharadwajbm/bidengine/internal/experiment"
	"github.com/prajwalbharadwajbm/bidengine/internal/logger"
	"github.com/prajwalbharadwajbm/bidengine/internal/metrics"
	"github.com/prajwalbharadwajbm/bidengine/internal/repository"
	"github.com/prajwalbharadwajbm/bidengine/internal/service"
)

const serviceName = "bidengine"

func init() {
	config.LoadConfigs()
}

// application holds the wired components the routes are built from
type application struct {
	logger      log.Logger
	metrics     *metrics.Metrics
	repo        repository.Repository
	store       *cache.HybridStore
	cacheConfig cache.CacheConfig
	service     service.BidService
}

func main() {
	general := config.AppConfigInstance.GeneralConfig
	kitLogger := logger.New(logger.Config{
		Service: serviceName,
		Version: general.Version,
		Level:   general.LogLevel,
	})

	if err := run(kitLogger); err != nil {
		level.Error(kitLogger).Log("msg", "server exited", "err", err)
		os.Exit(1)
	}
}

func run(logger log.Logger) error {
	cfg := config.AppConfigInstance
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewPrometheusMetrics(prometheus.DefaultRegisterer)

	repo, cleanup, err := openRepository(ctx, cfg.DatabaseConfig, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	repo = repository.NewInstrumentedRepository(repo, m)

	cacheConfig := config.GetCacheConfig()
	store, err := cache.NewHybridStore(cacheConfig)
	if err != nil {
		// the cache is an accelerator; serve from the store without it
		level.Warn(logger).Log("msg", "redis unavailable, continuing without shared cache", "addr", cacheConfig.RedisAddr, "err", err)
		cacheConfig.EnableRedis = false
		store, err = cache.NewHybridStore(cacheConfig)
		if err != nil {
			return fmt.Errorf("init cache: %w", err)
		}
	}
	defer store.Close()
	go func() {
		if err := store.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
			level.Warn(logger).Log("msg", "cache invalidation listener stopped", "err", err)
		}
	}()

	campaigns := cache.NewCampaignCache(store, repo, cacheConfig.DefaultTTL, logger, m)

	assigner, err := experiment.NewHashAssigner(experiment.BidSelectorExperiment(cfg.BidConfig.SelectorSplit))
	if err != nil {
		return fmt.Errorf("init experiments: %w", err)
	}

	selector := auction.NewSelector(campaigns, repo, assigner,
		auction.WithTopK(cfg.BidConfig.SemanticTopK),
		auction.WithLogger(logger),
		auction.WithMetrics(m),
	)
	ledger := budget.NewLedger(repo, campaigns, logger, m)

	app := &application{
		logger:      logger,
		metrics:     m,
		repo:        repo,
		store:       store,
		cacheConfig: cacheConfig,
		service:     service.NewBidService(selector, ledger, repo, logger, m),
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.GeneralConfig.Port),
		Handler:      Routes(app),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		level.Info(logger).Log("msg", "starting server", "port", cfg.GeneralConfig.Port, "env", cfg.GeneralConfig.Env)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	level.Info(logger).Log("msg", "shutting down", "timeout", cfg.GeneralConfig.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GeneralConfig.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openRepository connects to Postgres and runs migrations, or serves the
// sample campaigns from memory when the database is disabled.
func openRepository(ctx context.Context, cfg config.DatabaseConfig, logger log.Logger) (repository.Repository, func(), error) {
	if !cfg.Enabled {
		level.Warn(logger).Log("msg", "database disabled, serving sample campaigns from memory")
		return repository.NewSampleRepository(), func() {}, nil
	}

	db, cleanup, err := database.Initialize(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	return repository.NewPostgresRepository(db), cleanup, nil
}
