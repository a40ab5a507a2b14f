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
	Server   ServerConfig
	AppSheet AppSheetConfig
	Import   ImportConfig
	Images   ImageConfig
	Print    PrintConfig
	Screen   ScreenConfig
	Refresh  RefreshConfig
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

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 120s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"120s"`
}

// AppSheetConfig holds settings for the remote table API.
type AppSheetConfig struct {
	// BaseURL is the API root (default: https://api.appsheet.com/api/v2)
	BaseURL string `env:"APPSHEET_BASE_URL" default:"https://api.appsheet.com/api/v2"`

	// AppID identifies the AppSheet application (required)
	AppID string `env:"APPSHEET_APP_ID" required:"true"`

	// AccessKey is the application access key (required)
	AccessKey string `env:"APPSHEET_ACCESS_KEY" envAlt:"APPSHEET_API_KEY" required:"true"`

	// Locale is sent with every request so dates and decimals parse consistently
	Locale string `env:"APPSHEET_LOCALE" default:"vi-VN"`

	// Timeout bounds a single API call (default: 30s)
	Timeout time.Duration `env:"APPSHEET_TIMEOUT" default:"30s"`

	// StrictDecode rejects unknown columns in returned rows (default: true)
	StrictDecode bool `env:"APPSHEET_STRICT_DECODE" default:"true"`

	// MaterialTable is the table holding material records
	MaterialTable string `env:"APPSHEET_MATERIAL_TABLE" default:"DSNVL"`

	// PackageTable is the table holding warehouse packages
	PackageTable string `env:"APPSHEET_PACKAGE_TABLE" default:"Kiện"`
}

// ImportConfig holds spreadsheet import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// BatchSize is the number of rows submitted per API call (default: 25)
	BatchSize int `env:"IMPORT_BATCH_SIZE" default:"25"`

	// MaxConcurrent is the maximum number of imports running at once (default: 2)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single import (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// ImageConfig holds material image upload settings.
type ImageConfig struct {
	// Dir is where uploaded images are stored (default: data/images)
	Dir string `env:"IMAGE_DIR" default:"data/images"`

	// MaxSize is the largest accepted image in bytes (default: 5MB)
	MaxSize int64 `env:"IMAGE_MAX_SIZE" default:"5242880"`

	// PublicBaseURL prefixes relative image references (default: /images)
	PublicBaseURL string `env:"IMAGE_PUBLIC_BASE_URL" default:"/images"`
}

// PrintConfig holds warehouse tag printing settings.
type PrintConfig struct {
	// SettleDelay is how long the document waits before calling print (default: 500ms)
	SettleDelay time.Duration `env:"PRINT_SETTLE_DELAY" default:"500ms"`

	// CompanyName is printed in the letterhead of every tag
	CompanyName string `env:"PRINT_COMPANY_NAME" default:"CÔNG TY TNHH GỖ"`

	// CompanyLines are extra letterhead lines (comma-separated)
	CompanyLines []string `env:"PRINT_COMPANY_LINES"`
}

// ScreenConfig holds view-model settings.
type ScreenConfig struct {
	// PageSize is the number of rows per page (default: 10)
	PageSize int `env:"SCREEN_PAGE_SIZE" default:"10"`

	// SessionTTL is how long an idle session workspace is kept (default: 12h)
	SessionTTL time.Duration `env:"SCREEN_SESSION_TTL" default:"12h"`
}

// RefreshConfig holds background store refresh settings.
type RefreshConfig struct {
	// Enabled controls whether stores are refreshed in the background (default: true)
	Enabled bool `env:"REFRESH_ENABLED" default:"true"`

	// Schedule is a cron spec (default: @every 5m)
	Schedule string `env:"REFRESH_SCHEDULE" default:"@every 5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 300)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"300"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// SecureCookies marks the session cookie Secure (default: false)
	SecureCookies bool `env:"SECURITY_SECURE_COOKIES" default:"false"`
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
