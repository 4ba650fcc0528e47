// Package config provides centralized configuration management for chatmerge.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Merge    MergeConfig
	Source   SourceConfig
	Dropbox  DropboxConfig
	Export   ExportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including draining merges (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the optional export store connection.
// When URL is empty the postgres sink is disabled.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// Enabled reports whether a database URL is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// MergeConfig holds pipeline limits.
type MergeConfig struct {
	// MaxFileSize is the maximum size of one source in bytes (default: 100MB)
	MaxFileSize int64 `env:"MERGE_MAX_FILE_SIZE" default:"104857600"`

	// MaxSources caps the number of sources in one run (default: 50)
	MaxSources int `env:"MERGE_MAX_SOURCES" default:"50"`

	// MaxConcurrent is the maximum number of parallel merges (default: 4)
	MaxConcurrent int `env:"MERGE_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a merge slot (default: 30s)
	MaxWaitTime time.Duration `env:"MERGE_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration of a single run (default: 5m)
	Timeout time.Duration `env:"MERGE_TIMEOUT" default:"5m"`

	// PreviewRows caps the HTML preview table (default: 1000)
	PreviewRows int `env:"MERGE_PREVIEW_ROWS" default:"1000"`
}

// SourceConfig controls local path resolution.
type SourceConfig struct {
	// LocalRoot confines local paths to one directory. Empty means unrestricted.
	LocalRoot string `env:"SOURCE_LOCAL_ROOT"`

	// AllowLocal enables local and home-relative locators (default: true)
	AllowLocal bool `env:"SOURCE_ALLOW_LOCAL" default:"true"`
}

// DropboxConfig holds refresh-token credentials for Dropbox.
// Dropbox sources and the dropbox sink are disabled unless all three
// credentials are set.
type DropboxConfig struct {
	AppKey       string `env:"DROPBOX_APPKEY" envAlt:"DROPBOX_APP_KEY"`
	Secret       string `env:"DROPBOX_SECRET" envAlt:"DROPBOX_APP_SECRET"`
	RefreshToken string `env:"DROPBOX_REFRESH_TOKEN"`

	// Timeout bounds each Dropbox HTTP request (default: 60s)
	Timeout time.Duration `env:"DROPBOX_TIMEOUT" default:"60s"`

	// MaxRetries for 429 and 5xx responses (default: 3)
	MaxRetries int `env:"DROPBOX_MAX_RETRIES" default:"3"`

	TokenURL   string `env:"DROPBOX_TOKEN_URL" default:"https://api.dropbox.com/oauth2/token"`
	ContentURL string `env:"DROPBOX_CONTENT_URL" default:"https://content.dropboxapi.com"`
}

// Enabled reports whether all Dropbox credentials are present.
func (c *DropboxConfig) Enabled() bool {
	return c.AppKey != "" && c.Secret != "" && c.RefreshToken != ""
}

// ExportConfig holds exporter and sink settings.
type ExportConfig struct {
	// Dir is where the file sink writes (default: exports)
	Dir string `env:"EXPORT_DIR" default:"exports"`

	// FileName is the download name (default: merged_logs.csv)
	FileName string `env:"EXPORT_FILE_NAME" default:"merged_logs.csv"`

	// DropboxDir is the folder the dropbox sink uploads into (default: /chatmerge)
	DropboxDir string `env:"EXPORT_DROPBOX_DIR" default:"/chatmerge"`

	// TimestampFormat re-renders timestamps with a Go layout. Empty keeps the raw text.
	TimestampFormat string `env:"EXPORT_TIMESTAMP_FORMAT"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// MergeLimit is requests per minute for merge endpoints (default: 20)
	MergeLimit int `env:"RATE_LIMIT_MERGE" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// RequireAPIKey enforces API key auth on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
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
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
