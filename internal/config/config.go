package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendSupabase = "supabase"
	BackendSQLite   = "sqlite"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage
	DataBackend string // supabase | sqlite
	SQLitePath  string
	DatabaseID  string // used in change-event names

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string

	// Advisor function
	FunctionURL     string
	FunctionID      string
	FunctionTimeout time.Duration

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Aggregation
	DashboardCacheTTL time.Duration // 0 disables caching
	Locale            string
	Timezone          string

	// Change events
	AMQPURL      string // empty keeps events in-process
	AMQPExchange string
	AMQPQueue    string

	// Observability
	OTLPEndpoint string

	// Auth
	JWTSecret string
	DevAuth   bool // DEV_AUTH=true accepts X-User-Id without a token
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataBackend: strings.ToLower(getEnv("DATA_BACKEND", BackendSQLite)),
		SQLitePath:  getEnv("SQLITE_PATH", "financio.db"),
		DatabaseID:  getEnv("DATABASE_ID", "financio_db"),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),

		FunctionURL:     getEnv("FUNCTION_URL", ""),
		FunctionID:      getEnv("FUNCTION_ID", "ai-analysis"),
		FunctionTimeout: getEnvDuration("FUNCTION_TIMEOUT", 30*time.Second),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		DashboardCacheTTL: getEnvDuration("DASHBOARD_CACHE_TTL", 5*time.Minute),
		Locale:            getEnv("LOCALE", "en"),
		Timezone:          getEnv("TIMEZONE", "UTC"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "financio.events"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "financio.aggregations"),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),
		DevAuth:   getEnv("DEV_AUTH", "false") == "true",
	}
}

// Validate reports the first setting that would make the service unusable.
func (c *Config) Validate() error {
	switch c.DataBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("config: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required for the supabase backend")
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown DATA_BACKEND %q", c.DataBackend)
	}
	if c.JWTSecret == "" && !c.DevAuth {
		return fmt.Errorf("config: JWT_SECRET is required unless DEV_AUTH=true")
	}
	if c.FunctionTimeout <= 0 {
		return fmt.Errorf("config: FUNCTION_TIMEOUT must be positive")
	}
	if c.DashboardCacheTTL < 0 {
		return fmt.Errorf("config: DASHBOARD_CACHE_TTL must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("config: TIMEZONE: %w", err)
	}
	return nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
