package config

import (
	"testing"
	"time"

	apperrors "intake/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("EXTRACTION_PROVIDER", "backend")
	t.Setenv("EXTRACTION_URL", "http://extractor.local/generate")
	t.Setenv("BACKEND_API_TOKEN", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://sbsapi.rentup.com.eg/api", cfg.Backend.BaseURL)
	assert.Equal(t, "secret", cfg.Backend.APIToken)
	assert.Equal(t, 5, cfg.Extraction.MaxRetries)
	assert.Equal(t, 20, cfg.Messages.PerPage)
	assert.Equal(t, 30, cfg.Messages.NewUserDays)
	assert.Equal(t, 2*time.Hour, cfg.Sessions.IdleTimeout)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, "0.0.0.0:8080", cfg.Address())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EXTRACTION_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("BACKEND_API_URL", "http://backend.local/api/")
	t.Setenv("REDIS_CATALOG_TTL", "90")
	t.Setenv("REDIS_LOCATION_TTL", "2m")
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("PG_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Gemini.Enabled)
	assert.Equal(t, "http://backend.local/api", cfg.Backend.BaseURL)
	assert.Equal(t, 90*time.Second, cfg.Redis.CatalogTTL)
	assert.Equal(t, 2*time.Minute, cfg.Redis.LocationTTL)
	assert.Equal(t, 8080, cfg.Server.Port, "invalid values fall back to the default")
	assert.False(t, cfg.PostgreSQL.Enabled)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Backend:    BackendConfig{BaseURL: "http://backend"},
			Extraction: ExtractionConfig{Provider: ProviderBackend, URL: "http://x", MaxRetries: 5},
			Reconcile:  ReconcileConfig{LocationConcurrency: 2, LocationRPS: 5, LocationLimit: 10},
			Messages:   MessagesConfig{PerPage: 20},
			Sessions:   SessionConfig{IdleTimeout: time.Hour, SweepInterval: time.Minute},
			Search:     SearchConfig{DefaultLimit: 5, MaxLimit: 50},
		}
	}

	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Extraction.Provider = "claude" }},
		{"backend without url", func(c *Config) { c.Extraction.URL = "" }},
		{"openai without key", func(c *Config) { c.Extraction.Provider = ProviderOpenAI }},
		{"zero retries", func(c *Config) { c.Extraction.MaxRetries = 0 }},
		{"zero rps", func(c *Config) { c.Reconcile.LocationRPS = 0 }},
		{"no session timeout", func(c *Config) { c.Sessions.IdleTimeout = 0 }},
		{"zero search limit", func(c *Config) { c.Search.MaxLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsValidationError(err))
		})
	}
}

func TestGetPostgreSQLDSN(t *testing.T) {
	cfg := &Config{PostgreSQL: PostgreSQLConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "intake", SSLMode: "disable"}}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=intake sslmode=disable", cfg.GetPostgreSQLDSN())

	cfg.PostgreSQL.DSN = "postgres://x"
	assert.Equal(t, "postgres://x", cfg.GetPostgreSQLDSN())
}
