package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Blacklist BlacklistConfig
	Backend   BackendConfig
	Telemetry TelemetryConfig
	Features  FeatureFlags
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds Redis connection settings, used both by the
// casstore content-addressable store and the engine/events telemetry bus.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// BlacklistConfig holds the Blacklist Cache's (C9) process-wide settings.
// Untested/Good/Bad is an in-memory tri-state with no expiry (spec §4.9):
// there is no TTL to configure, only whether the short-circuit is active.
type BlacklistConfig struct {
	Enabled bool
}

// BackendConfig selects and configures the Backend (§6) implementation the
// Call Runner (C7) drives: the in-process reference backend for tests and
// trivial deployments, or the HTTP dispatch-then-poll backend for a real
// execution cluster.
type BackendConfig struct {
	Type             string // "inprocess" or "httpoll"
	HTTPPollBaseURL  string
	HTTPPollInterval time.Duration
	HTTPPollTimeout  time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof    bool
	PprofPort      int
	EnableTracing  bool
	EnableMetrics  bool
	MetricsPort    int
	TracingBackend string
}

// FeatureFlags for deployment-time toggles
type FeatureFlags struct {
	EnableCacheHitCopy bool
	EnablePostgres     bool
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "workflow_engine"),
			User:        getEnv("POSTGRES_USER", "workflow_engine"),
			Password:    getEnv("POSTGRES_PASSWORD", "workflow_engine"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 50),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 10),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Blacklist: BlacklistConfig{
			Enabled: getEnvBool("BLACKLIST_ENABLED", true),
		},
		Backend: BackendConfig{
			Type:             getEnv("BACKEND_TYPE", "inprocess"),
			HTTPPollBaseURL:  getEnv("BACKEND_HTTPPOLL_BASE_URL", ""),
			HTTPPollInterval: getEnvDuration("BACKEND_HTTPPOLL_INTERVAL", 5*time.Second),
			HTTPPollTimeout:  getEnvDuration("BACKEND_HTTPPOLL_TIMEOUT", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			EnablePprof:    getEnvBool("ENABLE_PPROF", true),
			PprofPort:      getEnvInt("PPROF_PORT", 6060),
			EnableTracing:  getEnvBool("ENABLE_TRACING", true),
			EnableMetrics:  getEnvBool("ENABLE_METRICS", true),
			MetricsPort:    getEnvInt("METRICS_PORT", 9090),
			TracingBackend: getEnv("TRACING_BACKEND", "stdout"),
		},
		Features: FeatureFlags{
			EnableCacheHitCopy: getEnvBool("ENABLE_CACHE_HIT_COPY", true),
			EnablePostgres:     getEnvBool("ENABLE_POSTGRES", false),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Backend.Type != "inprocess" && c.Backend.Type != "httpoll" {
		return fmt.Errorf("unknown backend type: %s", c.Backend.Type)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
