package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "intake/internal/errors"
	"intake/internal/logging"
)

// Extraction providers
const (
	ProviderBackend = "backend"
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	PostgreSQL PostgreSQLConfig
	Redis      RedisConfig
	Backend    BackendConfig
	Extraction ExtractionConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Reconcile  ReconcileConfig
	Messages   MessagesConfig
	Sessions   SessionConfig
	Search     SearchConfig
	Logging    LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	Host           string
	GinMode        string
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
	AdminUIDir     string
}

// PostgreSQLConfig holds the audit database configuration
type PostgreSQLConfig struct {
	Enabled            bool
	DSN                string // full connection string, preferred over the fields below
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	MaxConnections     int
	MaxIdleConnections int
}

// RedisConfig holds the catalog cache configuration; an empty Addr disables it
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	CatalogTTL  time.Duration
	LocationTTL time.Duration
}

// BackendConfig points at the brokerage REST API
type BackendConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// ExtractionConfig selects and tunes the AI extraction provider
type ExtractionConfig struct {
	Provider   string
	URL        string // backend provider endpoint
	Model      string // backend provider model hint; defaults to the form kind
	MaxRetries int
	RetryBase  time.Duration
	Timeout    time.Duration
}

// OpenAIConfig holds OpenAI-compatible API configuration
type OpenAIConfig struct {
	APIKey              string
	APIBase             string
	ChatModel           string
	ChatTemperature     float64
	ChatTopP            float64
	ChatMaxTokens       int
	ChatExtraBody       string // JSON merged into chat requests, e.g. {"chat_template_kwargs":{"thinking":true}}
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingExtraBody  string // JSON merged into embedding requests, e.g. {"truncate":"NONE"}
	Timeout             int
	Enabled             bool
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey  string
	Model   string
	Enabled bool
}

// ReconcileConfig tunes remote location lookups during reconciliation
type ReconcileConfig struct {
	LocationConcurrency int
	LocationRPS         float64
	LocationLimit       int
	LookupTimeout       time.Duration
}

// MessagesConfig tunes the message inbox
type MessagesConfig struct {
	PerPage     int
	NewUserDays int
}

// SessionConfig controls how long idle editing sessions live
type SessionConfig struct {
	IdleTimeout   time.Duration
	SweepInterval time.Duration
}

// SearchConfig bounds similar-extraction lookups
type SearchConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv reads configuration from environment variables (and an optional
// .env file) without validating it. Tools that only talk to the backend use
// this directly.
func FromEnv() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:        getEnv("GIN_MODE", "release"),
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PATCH,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
			AdminUIDir:     getEnv("ADMIN_UI_DIR", ""),
		},
		PostgreSQL: PostgreSQLConfig{
			Enabled:            getEnvAsBool("PG_ENABLED", true),
			DSN:                getEnv("DATABASE_URL", getEnv("POSTGRESQL_URI", getEnv("PG_DSN", ""))),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "intake"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			MaxConnections:     getEnvAsInt("PG_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("PG_MAX_IDLE_CONNECTIONS", 2),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvAsInt("REDIS_DB", 0),
			CatalogTTL:  getEnvAsDuration("REDIS_CATALOG_TTL", 10*time.Minute),
			LocationTTL: getEnvAsDuration("REDIS_LOCATION_TTL", time.Hour),
		},
		Backend: BackendConfig{
			BaseURL:  strings.TrimRight(getEnv("BACKEND_API_URL", "https://sbsapi.rentup.com.eg/api"), "/"),
			APIToken: getEnv("BACKEND_API_TOKEN", ""),
			Timeout:  getEnvAsDuration("BACKEND_TIMEOUT", 15*time.Second),
		},
		Extraction: ExtractionConfig{
			Provider:   strings.ToLower(getEnv("EXTRACTION_PROVIDER", ProviderBackend)),
			URL:        getEnv("EXTRACTION_URL", ""),
			Model:      getEnv("EXTRACTION_MODEL", ""),
			MaxRetries: getEnvAsInt("EXTRACTION_MAX_RETRIES", 5),
			RetryBase:  getEnvAsDuration("EXTRACTION_RETRY_BASE", time.Second),
			Timeout:    getEnvAsDuration("EXTRACTION_TIMEOUT", 60*time.Second),
		},
		OpenAI: OpenAIConfig{
			APIKey:              getEnv("OPENAI_API_KEY", ""),
			APIBase:             getEnv("OPENAI_API_BASE", "https://integrate.api.nvidia.com/v1"),
			ChatModel:           getEnv("OPENAI_CHAT_MODEL", "deepseek-ai/deepseek-v3.1-terminus"),
			ChatTemperature:     getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.1),
			ChatTopP:            getEnvAsFloat("OPENAI_CHAT_TOP_P", 0.7),
			ChatMaxTokens:       getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 4096),
			ChatExtraBody:       getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			EmbeddingModel:      getEnv("OPENAI_EMBEDDING_MODEL", "baai/bge-m3"),
			EmbeddingDimensions: getEnvAsInt("OPENAI_EMBEDDING_DIMENSIONS", 1024),
			EmbeddingExtraBody:  getEnv("OPENAI_EMBEDDING_EXTRA_BODY", `{"truncate":"NONE"}`),
			Timeout:             getEnvAsInt("OPENAI_TIMEOUT", 60),
			Enabled:             getEnv("OPENAI_API_KEY", "") != "",
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Enabled: getEnv("GEMINI_API_KEY", "") != "",
		},
		Reconcile: ReconcileConfig{
			LocationConcurrency: getEnvAsInt("RECONCILE_LOCATION_CONCURRENCY", 4),
			LocationRPS:         getEnvAsFloat("RECONCILE_LOCATION_RPS", 10),
			LocationLimit:       getEnvAsInt("RECONCILE_LOCATION_LIMIT", 10),
			LookupTimeout:       getEnvAsDuration("RECONCILE_LOOKUP_TIMEOUT", 10*time.Second),
		},
		Messages: MessagesConfig{
			PerPage:     getEnvAsInt("MESSAGES_PER_PAGE", 20),
			NewUserDays: getEnvAsInt("MESSAGES_NEW_USER_DAYS", 30),
		},
		Sessions: SessionConfig{
			IdleTimeout:   getEnvAsDuration("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 5*time.Minute),
		},
		Search: SearchConfig{
			DefaultLimit: getEnvAsInt("SEARCH_DEFAULT_LIMIT", 5),
			MaxLimit:     getEnvAsInt("SEARCH_MAX_LIMIT", 50),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "auto"),
		},
	}
}

// Validate rejects settings the services cannot run with
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case ProviderBackend:
		if c.Extraction.URL == "" {
			return apperrors.NewValidationError("EXTRACTION_URL", "", "required when EXTRACTION_PROVIDER=backend")
		}
	case ProviderOpenAI:
		if !c.OpenAI.Enabled {
			return apperrors.NewValidationError("OPENAI_API_KEY", "", "required when EXTRACTION_PROVIDER=openai")
		}
	case ProviderGemini:
		if !c.Gemini.Enabled {
			return apperrors.NewValidationError("GEMINI_API_KEY", "", "required when EXTRACTION_PROVIDER=gemini")
		}
	default:
		return apperrors.NewValidationError("EXTRACTION_PROVIDER", c.Extraction.Provider, "must be backend, openai or gemini")
	}

	positive := map[string]int{
		"EXTRACTION_MAX_RETRIES":         c.Extraction.MaxRetries,
		"RECONCILE_LOCATION_CONCURRENCY": c.Reconcile.LocationConcurrency,
		"RECONCILE_LOCATION_LIMIT":       c.Reconcile.LocationLimit,
		"MESSAGES_PER_PAGE":              c.Messages.PerPage,
		"SEARCH_DEFAULT_LIMIT":           c.Search.DefaultLimit,
		"SEARCH_MAX_LIMIT":               c.Search.MaxLimit,
	}
	for key, v := range positive {
		if v <= 0 {
			return apperrors.NewValidationError(key, v, "must be positive")
		}
	}
	if c.Reconcile.LocationRPS <= 0 {
		return apperrors.NewValidationError("RECONCILE_LOCATION_RPS", c.Reconcile.LocationRPS, "must be positive")
	}
	if c.Sessions.IdleTimeout <= 0 || c.Sessions.SweepInterval <= 0 {
		return apperrors.NewValidationError("SESSION_IDLE_TIMEOUT", c.Sessions.IdleTimeout, "session timeouts must be positive")
	}
	if c.Backend.BaseURL == "" {
		return apperrors.NewValidationError("BACKEND_API_URL", "", "must not be empty")
	}
	return nil
}

// GetPostgreSQLDSN returns PostgreSQL connection string
func (c *Config) GetPostgreSQLDSN() string {
	if c.PostgreSQL.DSN != "" {
		return c.PostgreSQL.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgreSQL.Host,
		c.PostgreSQL.Port,
		c.PostgreSQL.User,
		c.PostgreSQL.Password,
		c.PostgreSQL.Database,
		c.PostgreSQL.SSLMode,
	)
}

// Address returns host:port for the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		logging.Warn().Str("key", key).Int("default", defaultValue).Msg("Invalid integer value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		logging.Warn().Str("key", key).Float64("default", defaultValue).Msg("Invalid float value, using default")
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		logging.Warn().Str("key", key).Bool("default", defaultValue).Msg("Invalid boolean value, using default")
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		logging.Warn().Str("key", key).Dur("default", defaultValue).Msg("Invalid duration value, using default")
		return defaultValue
	}
	return value
}
