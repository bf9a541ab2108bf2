// Package config provides centralized configuration for the billing server
// and the billing client. Both load from environment variables with defaults
// and are validated on startup so misconfiguration fails fast.
package config

import (
	"strconv"
	"time"
)

// Config holds all billing server configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Rates    RatesConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8000)
	Port int `env:"SERVER_PORT" default:"8000"`

	// ReadTimeout is the maximum duration for reading a request (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing a response (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds rate database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string. Required unless RATES_FILE is set.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds spreadsheet processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum accepted upload in bytes (default: 32MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"33554432"`

	// MaxConcurrent is the number of workbooks processed in parallel (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long a request waits for a processing slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single processing run (default: 2m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"2m"`
}

// RateLimitConfig holds per-IP request throttling settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the limit for all routes (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// UploadLimit is the per-minute limit for upload routes (default: 20)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of proxy CIDRs whose
	// X-Real-IP / X-Forwarded-For headers are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on upload routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// RatesConfig controls where courier rate tables come from.
type RatesConfig struct {
	// File is a YAML rate file used instead of the database when set.
	File string `env:"RATES_FILE"`

	// RefreshSchedule is a cron spec for reloading cached rate tables.
	// Empty disables caching: tables are read on every upload.
	RefreshSchedule string `env:"RATES_REFRESH_SCHEDULE" default:"@every 5m"`
}

// ClientConfig holds billing client settings.
type ClientConfig struct {
	// Endpoint is the base URL of the billing server.
	Endpoint string `env:"BILLING_ENDPOINT" default:"http://127.0.0.1:8000"`

	// APIKey is sent as X-API-Key when set.
	APIKey string `env:"BILLING_API_KEY"`

	// OutputDir is where downloaded artifacts are written (default: .)
	OutputDir string `env:"BILLING_OUTPUT_DIR" default:"."`

	// Couriers lists the identifiers offered by the interactive picker.
	Couriers []string `env:"BILLING_COURIERS" default:"franch,professional,professional_kolkata,trackon_west,trackon_hyd"`

	Logging LoggingConfig
	Archive ArchiveConfig
}

// ArchiveConfig holds S3-compatible storage settings for artifact archiving.
type ArchiveConfig struct {
	Enabled   bool   `env:"ARCHIVE_ENABLED" default:"false"`
	Endpoint  string `env:"ARCHIVE_ENDPOINT" default:"localhost:9000"`
	Bucket    string `env:"ARCHIVE_BUCKET" default:"billing-artifacts"`
	AccessKey string `env:"ARCHIVE_ACCESS_KEY"`
	SecretKey string `env:"ARCHIVE_SECRET_KEY"`
	UseSSL    bool   `env:"ARCHIVE_USE_SSL" default:"false"`

	// Timeout bounds a single archive upload (default: 30s)
	Timeout time.Duration `env:"ARCHIVE_TIMEOUT" default:"30s"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
