package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_EffectiveDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "discrete fields",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "catalog",
				Password: "secret",
				Database: "catalog",
			},
			expected: "catalog:secret@tcp(localhost:3306)/catalog?parseTime=true",
		},
		{
			name: "explicit DSN wins",
			config: DatabaseConfig{
				DSN:  "root:pw@tcp(db.internal:4000)/orders?parseTime=true&tls=skip-verify",
				Host: "ignored",
				Port: 3306,
			},
			expected: "root:pw@tcp(db.internal:4000)/orders?parseTime=true&tls=skip-verify",
		},
		{
			name: "empty password",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "catalog",
				Database: "catalog",
			},
			expected: "catalog:@tcp(localhost:3306)/catalog?parseTime=true",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.EffectiveDSN())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 3306, cfg.Database.Port)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 25, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 500, cfg.Pagination.MaxPageSize)
	assert.Equal(t, 1000, cfg.Batch.MaxInClause)
	assert.Equal(t, "catalog-core", cfg.Observability.ServiceName)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
	assert.False(t, cfg.Validate().HasErrors())
}

func TestLoad_WithEnvVars(t *testing.T) {
	t.Setenv("CATALOG_DATABASE_HOST", "envhost")
	t.Setenv("CATALOG_DATABASE_PORT", "4000")
	t.Setenv("CATALOG_PAGINATION_MAX_PAGE_SIZE", "50")
	t.Setenv("CATALOG_OBSERVABILITY_LOGGING_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, 4000, cfg.Database.Port)
	assert.Equal(t, 50, cfg.Pagination.MaxPageSize)
	assert.Equal(t, "text", cfg.Observability.Logging.Format)
}

func TestLoad_PasswordFromFile(t *testing.T) {
	pwFile := filepath.Join(t.TempDir(), "dbpass")
	require.NoError(t, os.WriteFile(pwFile, []byte("hunter2\n"), 0o600))
	t.Setenv("CATALOG_DATABASE_PASSWORD_FILE", pwFile)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hunter2", cfg.Database.Password, "password file contents are trimmed")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Database:   DatabaseConfig{Host: "localhost", Port: 3306},
			Pagination: PaginationConfig{DefaultPageSize: 25, MaxPageSize: 500},
			Batch:      BatchConfig{MaxInClause: 1000},
			Observability: ObservabilityConfig{
				MetricsEnabled: true,
				MetricsAddr:    ":9090",
				Logging:        LoggingConfig{Level: "info", Format: "json"},
			},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Database.Port = 0 }, "database.port"},
		{"default exceeds max", func(c *Config) { c.Pagination.DefaultPageSize = 600 }, "pagination.default_page_size"},
		{"zero max page size", func(c *Config) { c.Pagination.MaxPageSize = 0 }, "pagination.max_page_size"},
		{"zero in-clause", func(c *Config) { c.Batch.MaxInClause = 0 }, "batch.max_in_clause"},
		{"bad log level", func(c *Config) { c.Observability.Logging.Level = "verbose" }, "observability.logging.level"},
		{"bad log format", func(c *Config) { c.Observability.Logging.Format = "xml" }, "observability.logging.format"},
		{"metrics without addr", func(c *Config) { c.Observability.MetricsAddr = "" }, "observability.metrics_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			require.False(t, cfg.Validate().HasErrors())

			tt.mutate(&cfg)
			result := cfg.Validate()
			require.True(t, result.HasErrors())
			assert.Equal(t, tt.field, result.Errors[0].Field)
		})
	}

	t.Run("DSN skips port validation", func(t *testing.T) {
		cfg := valid()
		cfg.Database.DSN = "u:p@tcp(h:4000)/db"
		cfg.Database.Port = 0
		assert.False(t, cfg.Validate().HasErrors())
	})
}
