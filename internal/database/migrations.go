package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"

	"github.com/prajwalbharadwajbm/bidengine/internal/config"
)

// MigrationManager handles database migrations
type MigrationManager struct {
	cfg    config.DatabaseConfig
	logger log.Logger
}

// NewMigrationManager creates a new migration manager
func NewMigrationManager(cfg config.DatabaseConfig, logger log.Logger) *MigrationManager {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &MigrationManager{cfg: cfg, logger: logger}
}

// Up runs all up migrations
func (m *MigrationManager) Up() error {
	migration, err := m.createMigrationInstance()
	if err != nil {
		return err
	}
	defer migration.Close()

	if err := migration.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}

	level.Info(m.logger).Log("msg", "database migrations completed")
	return nil
}

// Version returns current migration version
func (m *MigrationManager) Version() (uint, bool, error) {
	migration, err := m.createMigrationInstance()
	if err != nil {
		return 0, false, err
	}
	defer migration.Close()

	return migration.Version()
}

// createMigrationInstance uses a dedicated connection so closing the
// migration does not close the service pool
func (m *MigrationManager) createMigrationInstance() (*migrate.Migrate, error) {
	migrationDB, err := sql.Open("postgres", DSN(m.cfg, m.cfg.DBName))
	if err != nil {
		return nil, fmt.Errorf("failed to open migration database connection: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		migrationDB.Close()
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	migrationsPath, err := filepath.Abs(m.cfg.MigrationsPath)
	if err != nil {
		migrationDB.Close()
		return nil, fmt.Errorf("failed to get absolute path for migrations: %w", err)
	}

	migration, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		migrationDB.Close()
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}

	return migration, nil
}

// EnsureDatabase creates the database if it doesn't exist
func EnsureDatabase(ctx context.Context, cfg config.DatabaseConfig, logger log.Logger) error {
	db, err := sql.Open("postgres", DSN(cfg, "postgres"))
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	var exists bool
	query := "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)"
	if err := db.QueryRowContext(ctx, query, cfg.DBName).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check if database exists: %w", err)
	}

	if exists {
		level.Debug(logger).Log("msg", "database already exists", "db", cfg.DBName)
		return nil
	}

	if _, err := db.ExecContext(ctx, "CREATE DATABASE "+pq.QuoteIdentifier(cfg.DBName)); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	level.Info(logger).Log("msg", "database created", "db", cfg.DBName)
	return nil
}
