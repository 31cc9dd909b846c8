// Package config loads configuration from files, env vars, and flags, and
// validates it. Precedence: flags > env > config file > defaults.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Pagination    PaginationConfig    `mapstructure:"pagination"`
	Batch         BatchConfig         `mapstructure:"batch"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// DatabaseConfig holds database connection parameters. A full DSN wins over
// the discrete host/port/user fields.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	PasswordFile    string        `mapstructure:"password_file"`
	Database        string        `mapstructure:"database"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// PaginationConfig bounds page windows.
type PaginationConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

// BatchConfig tunes batched relation loading.
type BatchConfig struct {
	// MaxInClause caps values per IN (...) list in secondary fetches.
	MaxInClause int `mapstructure:"max_in_clause"`
}

// LoggingConfig holds logging parameters.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	ServiceName    string        `mapstructure:"service_name"`
	ServiceVersion string        `mapstructure:"service_version"`
	Environment    string        `mapstructure:"environment"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
	MetricsAddr    string        `mapstructure:"metrics_addr"`
	Logging        LoggingConfig `mapstructure:"logging"`
}

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationResult collects validation errors.
type ValidationResult struct {
	Errors []ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for errors.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.Pagination.validate(result)
	c.Batch.validate(result)
	c.Observability.validate(result)
	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	if d.DSN == "" && (d.Port < 1 || d.Port > 65535) {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.port",
			Message: fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port),
		})
	}
	if d.MaxOpenConns < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.max_open_conns",
			Message: "max_open_conns cannot be negative",
		})
	}
	if d.MaxIdleConns < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "database.max_idle_conns",
			Message: "max_idle_conns cannot be negative",
		})
	}
}

func (p *PaginationConfig) validate(result *ValidationResult) {
	if p.MaxPageSize < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "pagination.max_page_size",
			Message: "max_page_size must be at least 1",
		})
	}
	if p.DefaultPageSize < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "pagination.default_page_size",
			Message: "default_page_size must be at least 1",
		})
	}
	if p.DefaultPageSize > p.MaxPageSize {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "pagination.default_page_size",
			Message: fmt.Sprintf("default_page_size %d exceeds max_page_size %d", p.DefaultPageSize, p.MaxPageSize),
			Hint:    "raise max_page_size or lower default_page_size",
		})
	}
}

func (b *BatchConfig) validate(result *ValidationResult) {
	if b.MaxInClause < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "batch.max_in_clause",
			Message: "max_in_clause must be at least 1",
		})
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[o.Logging.Level] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.level",
			Message: fmt.Sprintf("invalid log level %q", o.Logging.Level),
			Hint:    "valid values are: debug, info, warn, error",
		})
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[o.Logging.Format] {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.logging.format",
			Message: fmt.Sprintf("invalid log format %q", o.Logging.Format),
			Hint:    "valid values are: json, text",
		})
	}

	if o.MetricsEnabled && o.MetricsAddr == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:   "observability.metrics_addr",
			Message: "metrics_addr is required when metrics are enabled",
		})
	}
}

// EffectiveDSN returns the MySQL data source name: the configured DSN verbatim
// when set, otherwise one assembled from the discrete fields. parseTime is
// always on so timestamp columns scan as time.Time.
func (d *DatabaseConfig) EffectiveDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}
