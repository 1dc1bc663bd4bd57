// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Ingest     IngestConfig
	Database   DatabaseConfig
	ClickHouse ClickHouseConfig
	Graph      GraphConfig
	Broker     BrokerConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// IngestConfig holds batch loading settings.
type IngestConfig struct {
	// OutputDir is where save writes the columnar files (default: output)
	OutputDir string `env:"INGEST_OUTPUT_DIR" default:"output"`

	// ParseWorkers bounds concurrent line parsing; 0 uses GOMAXPROCS
	ParseWorkers int `env:"INGEST_PARSE_WORKERS" default:"0"`

	// WindowSize is the number of lines parsed ahead of admission (default: 1024)
	WindowSize int `env:"INGEST_WINDOW_SIZE" default:"1024"`

	// LenientErasure turns malformed erasure requests into ordinary rejects
	LenientErasure bool `env:"INGEST_LENIENT_ERASURE" default:"false"`

	// MaxUploadSize is the largest batch accepted over HTTP (default: 100MB)
	MaxUploadSize int64 `env:"INGEST_MAX_UPLOAD_SIZE" default:"100MB" unit:"bytes"`

	// MaxConcurrent is the number of batches loaded at once (default: 4)
	MaxConcurrent int `env:"INGEST_MAX_CONCURRENT" envAlt:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a batch waits for a slot (default: 30s)
	MaxWaitTime time.Duration `env:"INGEST_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single batch load (default: 10m)
	Timeout time.Duration `env:"INGEST_TIMEOUT" default:"10m"`
}

// DatabaseConfig holds PostgreSQL export settings. An empty URL disables
// the PostgreSQL sink.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether the sink is configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// ClickHouseConfig holds warehouse export settings. An empty host disables
// the ClickHouse sink.
type ClickHouseConfig struct {
	Host     string `env:"CLICKHOUSE_HOST"`
	Port     int    `env:"CLICKHOUSE_PORT" default:"9000"`
	Database string `env:"CLICKHOUSE_DATABASE" default:"default"`
	Username string `env:"CLICKHOUSE_USERNAME" default:"default"`
	Password string `env:"CLICKHOUSE_PASSWORD"`
}

// Enabled reports whether the sink is configured.
func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

// GraphConfig holds lineage graph settings. An empty URI disables the sink.
type GraphConfig struct {
	URI            string `env:"GRAPH_URI" envAlt:"NEO4J_URI"`
	Database       string `env:"GRAPH_DATABASE"`
	Username       string `env:"GRAPH_USERNAME" envAlt:"NEO4J_USERNAME"`
	Password       string `env:"GRAPH_PASSWORD" envAlt:"NEO4J_PASSWORD"`
	MaxConnections int    `env:"GRAPH_MAX_CONNECTIONS" default:"10"`

	// BatchSize is rows per UNWIND statement (default: 500)
	BatchSize int `env:"GRAPH_BATCH_SIZE" default:"500"`
}

// Enabled reports whether the sink is configured.
func (c GraphConfig) Enabled() bool { return c.URI != "" }

// BrokerConfig holds the reject stream settings. An empty URL disables it.
type BrokerConfig struct {
	URL      string `env:"RABBITMQ_URL"`
	Exchange string `env:"RABBITMQ_EXCHANGE"`
	Queue    string `env:"RABBITMQ_REJECT_QUEUE" default:"retail.rejects"`
}

// Enabled reports whether the sink is configured.
func (c BrokerConfig) Enabled() bool { return c.URL != "" }

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 600)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"600"`

	// BatchLimit is requests per minute for batch upload endpoints (default: 10)
	BatchLimit int `env:"RATE_LIMIT_BATCH" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey enforces API key auth on every route except /health
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
