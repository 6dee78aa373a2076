package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type GeneralConfig struct {
	Env      string
	LogLevel string
	Port     int
	Version  string
	// ShutdownTimeout bounds graceful shutdown of the HTTP server
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled         bool
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type BidConfig struct {
	// SelectorSplit is the percentage of users in variant A (highest bid)
	SelectorSplit  int
	SemanticTopK   int
	RequestTimeout time.Duration
}

type appConfig struct {
	GeneralConfig  GeneralConfig
	DatabaseConfig DatabaseConfig
	BidConfig      BidConfig
}

// LoadConfigs loads the configurations from the environment variables
func LoadConfigs() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Error loading .env files: %v", err)
	}

	loadGeneralConfigs()
	loadDatabaseConfigs()
	loadBidConfigs()
}

var AppConfigInstance appConfig

// loadGeneralConfigs loads the general configurations from the environment variables
func loadGeneralConfigs() {
	AppConfigInstance.GeneralConfig.Env = getEnv("APP_ENV", "dev")
	AppConfigInstance.GeneralConfig.LogLevel = getEnv("LOG_LEVEL", "info")
	AppConfigInstance.GeneralConfig.Port = getEnvInt("PORT", 8080)
	AppConfigInstance.GeneralConfig.Version = getEnv("APP_VERSION", "dev")
	AppConfigInstance.GeneralConfig.ShutdownTimeout = getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
}

// loadDatabaseConfigs loads the Postgres settings. With DB_ENABLED=false the
// server runs on the in-memory repository.
func loadDatabaseConfigs() {
	AppConfigInstance.DatabaseConfig.Enabled = getBoolEnv("DB_ENABLED", true)
	AppConfigInstance.DatabaseConfig.Host = getEnv("DB_HOST", "localhost")
	AppConfigInstance.DatabaseConfig.Port = getEnvInt("DB_PORT", 5432)
	AppConfigInstance.DatabaseConfig.User = getEnv("DB_USER", "bidengine")
	AppConfigInstance.DatabaseConfig.Password = getEnv("DB_PASSWORD", "")
	AppConfigInstance.DatabaseConfig.DBName = getEnv("DB_NAME", "bidengine")
	AppConfigInstance.DatabaseConfig.SSLMode = getEnv("DB_SSLMODE", "disable")
	AppConfigInstance.DatabaseConfig.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	AppConfigInstance.DatabaseConfig.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 10)
	AppConfigInstance.DatabaseConfig.ConnMaxLifetime = getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	AppConfigInstance.DatabaseConfig.ConnMaxIdleTime = getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute)
	AppConfigInstance.DatabaseConfig.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "./migrations")
}

func loadBidConfigs() {
	AppConfigInstance.BidConfig.SelectorSplit = getEnvInt("EXPERIMENT_BID_SELECTOR_SPLIT", 50)
	AppConfigInstance.BidConfig.SemanticTopK = getEnvInt("BID_SEMANTIC_TOP_K", 5)
	AppConfigInstance.BidConfig.RequestTimeout = getDurationEnv("BID_REQUEST_TIMEOUT", 200*time.Millisecond)
}

// getEnv returns the environment variable value if it exists, otherwise returns the fallback value
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt returns the environment variable value as int if it exists, otherwise returns the fallback value
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
