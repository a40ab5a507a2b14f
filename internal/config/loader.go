package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Every missing required variable is reported, not just the first one.
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	if err := loadStruct(reflect.ValueOf(cfg).Elem(), &missing); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("config load: required environment variables not set: %s",
			strings.Join(missing, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct walks the struct tree and populates tagged fields from the environment.
// Names of unset required variables are appended to missing.
func loadStruct(v reflect.Value, missing *[]string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fieldVal, missing); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		if envName == "" {
			continue
		}

		value, ok := lookupEnv(envName, field.Tag.Get("envAlt"))
		if !ok {
			if field.Tag.Get("required") == "true" {
				*missing = append(*missing, envName)
				continue
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// lookupEnv returns the first non-empty value of the primary or alternate variable.
func lookupEnv(primary, alt string) (string, bool) {
	if v := strings.TrimSpace(os.Getenv(primary)); v != "" {
		return v, true
	}
	if alt != "" {
		if v := strings.TrimSpace(os.Getenv(alt)); v != "" {
			return v, true
		}
	}
	return "", false
}

// setField converts value to the field's kind and assigns it.
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(i)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Sprintf(format, args...))
		}
	}

	// Server
	check(c.Server.Port > 0 && c.Server.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	check(c.Server.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(c.Server.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")

	// AppSheet
	if u, err := url.Parse(c.AppSheet.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("APPSHEET_BASE_URL (%q) must be an absolute URL", c.AppSheet.BaseURL))
	}
	check(c.AppSheet.Timeout > 0, "APPSHEET_TIMEOUT must be positive")
	check(c.AppSheet.MaterialTable != "", "APPSHEET_MATERIAL_TABLE must not be empty")
	check(c.AppSheet.PackageTable != "", "APPSHEET_PACKAGE_TABLE must not be empty")

	// Import
	check(c.Import.MaxFileSize > 0, "IMPORT_MAX_FILE_SIZE must be positive")
	check(c.Import.BatchSize > 0, "IMPORT_BATCH_SIZE must be positive")
	check(c.Import.MaxConcurrent > 0, "IMPORT_MAX_CONCURRENT must be positive")
	check(c.Import.MaxWaitTime > 0, "IMPORT_MAX_WAIT_TIME must be positive")
	check(c.Import.Timeout > 0, "IMPORT_TIMEOUT must be positive")

	// Images
	check(c.Images.Dir != "", "IMAGE_DIR must not be empty")
	check(c.Images.MaxSize > 0, "IMAGE_MAX_SIZE must be positive")

	// Print
	check(c.Print.SettleDelay >= 0, "PRINT_SETTLE_DELAY must be non-negative")

	// Screen
	check(c.Screen.PageSize > 0, "SCREEN_PAGE_SIZE must be positive")
	check(c.Screen.SessionTTL > 0, "SCREEN_SESSION_TTL must be positive")

	// Refresh
	if c.Refresh.Enabled {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			errs = append(errs, fmt.Sprintf("REFRESH_SCHEDULE (%q) is not a valid cron spec: %v", c.Refresh.Schedule, err))
		}
	}

	// Rate limit
	check(!c.Rate.Enabled || c.Rate.RequestsPerMinute > 0,
		"RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")

	// Logging
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	check(validLevels[strings.ToLower(c.Logging.Level)],
		"LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	validFormats := map[string]bool{"text": true, "json": true}
	check(validFormats[strings.ToLower(c.Logging.Format)],
		"LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)

	if len(errs) > 0 {
		return errors.New("validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// The AppSheet access key is masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "AppSheet: {BaseURL: %q, AppID: %q, AccessKey: [MASKED], Locale: %q}, ",
		c.AppSheet.BaseURL, c.AppSheet.AppID, c.AppSheet.Locale)
	fmt.Fprintf(&b, "Import: {MaxFileSize: %d, BatchSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxFileSize, c.Import.BatchSize, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Screen: {PageSize: %d}, ", c.Screen.PageSize)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}
