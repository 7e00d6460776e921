// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendBigQuery = "bigquery"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port           int
	StoreBackend   string
	BQProjectID    string
	BQDataset      string
	DatabaseURL    string
	GCSBucket      string // empty disables statement archiving
	LogLevel       string
	LogFormat      string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	StrictDates    bool
}

// Load reads configuration from environment variables, after applying a
// .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8080),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		BQProjectID:    getEnv("BQ_PROJECT_ID", ""),
		BQDataset:      getEnv("BQ_DATASET", "finance"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		GCSBucket:      getEnv("GCS_BUCKET", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 10<<20)),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 2*time.Hour),
		StrictDates:    getEnvAsBool("STRICT_DATES", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendBigQuery:
		if c.BQProjectID == "" {
			return fmt.Errorf("BQ_PROJECT_ID is required for the bigquery backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
