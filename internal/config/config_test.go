package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "grib_ls", cfg.GRIB.ListTool)
	assert.Equal(t, 2, cfg.GRIB.MaxConcurrentParses)
}

func TestLoadWithFallback_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9090

[grib]
timeout_seconds = 30
`), 0644))

	cfg, err := LoadWithFallback(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 30, cfg.GRIB.TimeoutSeconds)
	// Untouched sections keep their defaults.
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "grib_get_data", cfg.GRIB.DumpTool)
}

func TestLoadWithFallback_ExplicitMissingFile(t *testing.T) {
	_, err := LoadWithFallback(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoadWithFallback_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\nport = nine"), 0644))

	_, err := LoadWithFallback(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "port"},
		{"bad upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max_upload_mb"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging level"},
		{"empty sqlite path", func(c *Config) { c.Storage.SQLitePath = "" }, "sqlite_path"},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, "data_dir"},
		{"negative decoder timeout", func(c *Config) { c.GRIB.TimeoutSeconds = -1 }, "timeout_seconds"},
		{"zero parse slots", func(c *Config) { c.GRIB.MaxConcurrentParses = 0 }, "max_concurrent_parses"},
		{"retention without schedule", func(c *Config) {
			c.Retention.Enabled = true
			c.Retention.Schedule = ""
		}, "schedule"},
		{"retention without max age", func(c *Config) {
			c.Retention.Enabled = true
			c.Retention.MaxAgeDays = 0
		}, "max_age_days"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
