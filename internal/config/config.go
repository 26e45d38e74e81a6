// Package config provides centralized configuration management for the import service.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Upload   UploadConfig
	Staging  StagingConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 120s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required when STORE_DRIVER=postgres)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// StoreConfig selects where imported entity records are written.
type StoreConfig struct {
	// Driver is the entity store backend: postgres or memory (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// AutoMigrate creates the entity tables at startup if missing (default: true)
	AutoMigrate bool `env:"STORE_AUTO_MIGRATE" default:"true"`
}

// UploadConfig holds file intake settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MiB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"10485760"`

	// AllowedExtensions lists the accepted file extensions (default: csv,xlsx,xls)
	AllowedExtensions []string `env:"UPLOAD_ALLOWED_EXTENSIONS" default:"csv,xlsx,xls"`
}

// StagingConfig holds settings for the temporary storage of uploaded files.
type StagingConfig struct {
	// Driver is the staging backend: disk or s3 (default: disk)
	Driver string `env:"STAGING_DRIVER" default:"disk"`

	// Dir is the local staging directory (default: $TMPDIR/subtrack-staging)
	Dir string `env:"STAGING_DIR"`

	// TTL is how long an idle session and its staged file are kept (default: 1h)
	TTL time.Duration `env:"STAGING_TTL" default:"1h"`

	// SweepInterval is how often expired sessions and files are collected (default: 5m)
	SweepInterval time.Duration `env:"STAGING_SWEEP_INTERVAL" default:"5m"`

	S3 S3Config
}

// S3Config holds settings for the S3 staging backend.
type S3Config struct {
	// Bucket is the bucket holding staged files (required when STAGING_DRIVER=s3)
	Bucket string `env:"S3_BUCKET"`

	// Region is the bucket region (default: us-east-1)
	Region string `env:"S3_REGION" default:"us-east-1"`

	// Endpoint overrides the S3 endpoint, e.g. for MinIO
	Endpoint string `env:"S3_ENDPOINT"`

	// AccessKeyID and SecretAccessKey select static credentials when both are set
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`

	// Prefix is prepended to every object key (default: staging/)
	Prefix string `env:"S3_PREFIX" default:"staging/"`

	// UsePathStyle enables path-style addressing (default: true)
	UsePathStyle bool `env:"S3_USE_PATH_STYLE" default:"true"`
}

// ImportConfig holds import pipeline tuning.
type ImportConfig struct {
	// PreviewRows is the number of rows returned by preview (default: 10)
	PreviewRows int `env:"IMPORT_PREVIEW_ROWS" default:"10"`

	// SampleRows is the number of rows sampled for column type inference (default: 20)
	SampleRows int `env:"IMPORT_SAMPLE_ROWS" default:"20"`

	// MatchThreshold is the minimum similarity for a suggested mapping (default: 0.6)
	MatchThreshold float64 `env:"IMPORT_MATCH_THRESHOLD" default:"0.6"`

	// DateOrder resolves ambiguous dates like 03/04/2024: dmy or mdy (default: dmy)
	DateOrder string `env:"IMPORT_DATE_ORDER" default:"dmy"`

	// MaxConcurrent is the maximum number of executions running at once (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an execution slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// RowTimeout bounds a single store write (default: 10s)
	RowTimeout time.Duration `env:"IMPORT_ROW_TIMEOUT" default:"10s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects requests without a valid X-API-Key header (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File additionally writes JSON logs to this path when set
	File string `env:"LOG_FILE"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled mounts the metrics endpoint (default: true)
	Enabled bool `env:"METRICS_ENABLED" default:"true"`

	// Path is the metrics endpoint path (default: /metrics)
	Path string `env:"METRICS_PATH" default:"/metrics"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
