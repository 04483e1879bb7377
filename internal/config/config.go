package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server      ServerConfig      `toml:"server"`      // HTTP server settings
	Logging     LoggingConfig     `toml:"logging"`     // Application logging settings
	Storage     StorageConfig     `toml:"storage"`     // Record catalog and file storage settings
	GRIB        GRIBConfig        `toml:"grib"`        // External decoder and parse pipeline settings
	Acquisition AcquisitionConfig `toml:"acquisition"` // Remote provider download settings
	Retention   RetentionConfig   `toml:"retention"`   // Record retention sweep settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int      `toml:"port"`                  // HTTP port for the server
	Host             string   `toml:"host"`                  // Host address to bind to (e.g., 127.0.0.1 for localhost only, 0.0.0.0 for all interfaces)
	CORSAllowed      []string `toml:"cors_allowed_origins"`  // List of origins allowed for CORS requests (use ["*"] for all origins)
	ReadTimeoutSecs  int      `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int      `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int      `toml:"idle_timeout_seconds"`  // Maximum duration to wait for the next request when keep-alives are enabled
	MaxUploadMB      int      `toml:"max_upload_mb"`         // Maximum accepted GRIB upload size in megabytes
	StaticFilesDir   string   `toml:"static_files_dir"`      // Directory to serve the map UI from (e.g., "www")
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains record catalog and file storage configuration
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite catalog database file
	DataDir    string `toml:"data_dir"`    // Directory holding source GRIB files and their cache artifacts
}

// GRIBConfig contains settings for the external decoder and parse pipeline
type GRIBConfig struct {
	ListTool            string `toml:"list_tool"`             // Metadata listing binary (default: grib_ls, resolved via PATH)
	DumpTool            string `toml:"dump_tool"`             // Point-dump binary (default: grib_get_data, resolved via PATH)
	TimeoutSeconds      int    `toml:"timeout_seconds"`       // Per-invocation decoder timeout; the child is killed on expiry (0 = no timeout)
	MaxConcurrentParses int    `toml:"max_concurrent_parses"` // Simultaneous end-to-end parse operations admitted (excess load is rejected)
}

// AcquisitionConfig contains settings for downloading GRIB files from a
// remote weather-data provider
type AcquisitionConfig struct {
	BaseURL        string `toml:"base_url"`        // Provider endpoint the file query parameters are appended to
	TimeoutSeconds int    `toml:"timeout_seconds"` // HTTP timeout for provider downloads
	MaxRetries     int    `toml:"max_retries"`     // Retry attempts after a failed download
}

// RetentionConfig contains settings for the periodic record retention sweep
type RetentionConfig struct {
	Enabled    bool   `toml:"enabled"`      // Enable the background sweep
	Schedule   string `toml:"schedule"`     // Cron expression for sweep runs (e.g., "0 3 * * *")
	MaxAgeDays int    `toml:"max_age_days"` // Records older than this are deleted together with their files
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			Host:             "127.0.0.1",
			CORSAllowed:      []string{"*"},
			ReadTimeoutSecs:  60,
			WriteTimeoutSecs: 60,
			IdleTimeoutSecs:  120,
			MaxUploadMB:      64,
			StaticFilesDir:   "www",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			SQLitePath: "data/griblet.db",
			DataDir:    "data/grib",
		},
		GRIB: GRIBConfig{
			ListTool:            "grib_ls",
			DumpTool:            "grib_get_data",
			TimeoutSeconds:      120,
			MaxConcurrentParses: 2,
		},
		Acquisition: AcquisitionConfig{
			BaseURL:        "https://nomads.ncep.noaa.gov/cgi-bin/filter_gfs_0p25.pl",
			TimeoutSeconds: 60,
			MaxRetries:     2,
		},
		Retention: RetentionConfig{
			Enabled:    false,
			Schedule:   "0 3 * * *",
			MaxAgeDays: 14,
		},
	}
}

// LoadWithFallback loads configuration from the given path, or searches the
// conventional locations (configs/config.toml, then config.toml in the
// working directory) when the path is empty. A missing file falls back to
// defaults; a present file only needs to override what it cares about.
func LoadWithFallback(path string) (*Config, error) {
	cfg := DefaultConfig()

	candidates := []string{path}
	if path == "" {
		candidates = []string{
			filepath.Join("configs", "config.toml"),
			"config.toml",
		}
	}

	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err != nil {
			if path != "" {
				// An explicitly requested file must exist.
				return nil, fmt.Errorf("config file not found: %s", candidate)
			}
			continue
		}
		if _, err := toml.DecodeFile(candidate, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", candidate, err)
		}
		return cfg, nil
	}

	return cfg, nil
}

// Validate checks the configuration for invalid or inconsistent values
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be greater than 0")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging level must be one of debug, info, warn, error")
	}
	if c.Storage.SQLitePath == "" {
		return fmt.Errorf("sqlite_path cannot be empty")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.GRIB.TimeoutSeconds < 0 {
		return fmt.Errorf("grib timeout_seconds must be 0 or greater")
	}
	if c.GRIB.MaxConcurrentParses <= 0 {
		return fmt.Errorf("max_concurrent_parses must be greater than 0")
	}
	if c.Acquisition.TimeoutSeconds <= 0 {
		return fmt.Errorf("acquisition timeout_seconds must be greater than 0")
	}
	if c.Acquisition.MaxRetries < 0 {
		return fmt.Errorf("acquisition max_retries must be 0 or greater")
	}
	if c.Retention.Enabled {
		if c.Retention.Schedule == "" {
			return fmt.Errorf("retention schedule cannot be empty when retention is enabled")
		}
		if c.Retention.MaxAgeDays <= 0 {
			return fmt.Errorf("retention max_age_days must be greater than 0")
		}
	}
	return nil
}
