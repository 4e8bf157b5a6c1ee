// Package config loads application configuration from the environment,
// with optional .env overrides for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Storage modes.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds the full application configuration.
type Config struct {
	HTTP     HTTPConfig
	Database DatabaseConfig
	Log      LogConfig

	// Storage selects the persistence backend: "memory" or "postgres".
	Storage string
}

// HTTPConfig holds the HTTP server settings.
type HTTPConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds the PostgreSQL settings.
type DatabaseConfig struct {
	DSN      string
	MaxConns int32

	// MigrateOnStart runs pending goose migrations during startup.
	MigrateOnStart bool
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level       string
	Development bool
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first if present; real environment
// variables win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			DSN:            os.Getenv("DATABASE_DSN"),
			MaxConns:       int32(getInt("DATABASE_MAX_CONNS", 25)),
			MigrateOnStart: getBool("DATABASE_MIGRATE", true),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getBool("LOG_DEV", false),
		},
		Storage: getEnv("STORAGE", StoragePostgres),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required when STORAGE=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE value %q", c.Storage)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return parsed
}
