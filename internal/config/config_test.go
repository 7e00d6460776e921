package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "STORE_BACKEND", "BQ_DATASET", "GCS_BUCKET", "MAX_UPLOAD_BYTES", "SESSION_TTL", "STRICT_DATES", "LOG_FORMAT"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "finance", cfg.BQDataset)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.StrictDates)
	assert.Empty(t, cfg.GCSBucket)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/budget")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("STRICT_DATES", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.True(t, cfg.StrictDates)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes, "unparseable values keep the default")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{Port: 8080, StoreBackend: BackendMemory, MaxUploadBytes: 1, SessionTTL: time.Minute}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory", func(c *Config) {}, ""},
		{"bigquery without project", func(c *Config) { c.StoreBackend = BackendBigQuery }, "BQ_PROJECT_ID"},
		{"bigquery with project", func(c *Config) { c.StoreBackend = BackendBigQuery; c.BQProjectID = "p" }, ""},
		{"postgres without url", func(c *Config) { c.StoreBackend = BackendPostgres }, "DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.StoreBackend = "sqlite" }, "unknown STORE_BACKEND"},
		{"bad port", func(c *Config) { c.Port = 70000 }, "PORT"},
		{"zero ttl", func(c *Config) { c.SessionTTL = 0 }, "SESSION_TTL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
