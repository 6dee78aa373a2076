package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	_ "github.com/lib/pq"

	"github.com/prajwalbharadwajbm/bidengine/internal/config"
)

// DB holds the database connection
type DB struct {
	*sql.DB
}

// DSN builds a lib/pq connection URL for the named database
func DSN(cfg config.DatabaseConfig, dbName string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + dbName,
	}
	q := u.Query()
	q.Set("sslmode", cfg.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// NewConnection creates a new database connection with connection pooling
func NewConnection(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	db, err := sql.Open("postgres", DSN(cfg, cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// HealthCheck performs a health check on the database connection
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// Initialize sets up the complete database with connection, migrations, and returns cleanup function
func Initialize(ctx context.Context, cfg config.DatabaseConfig, logger log.Logger) (*DB, func(), error) {
	if err := EnsureDatabase(ctx, cfg, logger); err != nil {
		return nil, nil, fmt.Errorf("failed to ensure database exists: %w", err)
	}

	db, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	migrationManager := NewMigrationManager(cfg, logger)
	if err := migrationManager.Up(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := migrationManager.Version(); err == nil {
		level.Info(logger).Log("msg", "schema version", "version", version, "dirty", dirty)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			level.Error(logger).Log("msg", "error closing database connection", "err", err)
		}
	}

	if err := db.HealthCheck(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	return db, cleanup, nil
}
