// ABOUTME: littlelemon configuration management with backend selection.
// ABOUTME: Loads the JSON config file, applies .env and LITTLELEMON_* overrides, and opens storage.

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/harperreed/littlelemon/internal/charm"
	"github.com/harperreed/littlelemon/internal/remote"
	"github.com/harperreed/littlelemon/internal/storage"
	"github.com/harperreed/littlelemon/internal/storage/postgres"
	"github.com/joho/godotenv"
)

// Backends understood by OpenStorage.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendCharm    = "charm"
)

// Config stores littlelemon configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default), "postgres", or "charm".
	Backend string `json:"backend,omitempty" env:"LITTLELEMON_BACKEND"`

	// DataDir is the root directory for the SQLite file.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/littlelemon.
	DataDir string `json:"data_dir,omitempty" env:"LITTLELEMON_DATA_DIR"`

	// PostgresURL is the connection string for the postgres backend.
	PostgresURL string `json:"postgres_url,omitempty" env:"LITTLELEMON_POSTGRES_URL"`

	// CharmHost is the Charm server for the charm backend.
	CharmHost string `json:"charm_host,omitempty" env:"LITTLELEMON_CHARM_HOST"`

	MenuURL      string `json:"menu_url,omitempty" env:"LITTLELEMON_MENU_URL"`
	ImageBaseURL string `json:"image_base_url,omitempty" env:"LITTLELEMON_IMAGE_BASE_URL"`

	// FetchTimeout and MaxAge are Go durations such as "30s" or "24h".
	// MaxAge "0" or empty keeps the cache forever.
	FetchTimeout string `json:"fetch_timeout,omitempty" env:"LITTLELEMON_FETCH_TIMEOUT"`
	MaxAge       string `json:"max_age,omitempty" env:"LITTLELEMON_MAX_AGE"`

	LogLevel  string `json:"log_level,omitempty" env:"LITTLELEMON_LOG_LEVEL"`
	LogFormat string `json:"log_format,omitempty" env:"LITTLELEMON_LOG_FORMAT"`
	HTTPAddr  string `json:"http_addr,omitempty" env:"LITTLELEMON_HTTP_ADDR"`

	// OTELEndpoint is an OTLP/HTTP collector URL. Tracing is off when empty
	// or when OTELEnabled is "false".
	OTELEndpoint string `json:"otel_endpoint,omitempty" env:"LITTLELEMON_OTEL_ENDPOINT"`
	OTELEnabled  string `json:"otel_enabled,omitempty" env:"LITTLELEMON_OTEL_ENABLED"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetMenuURL returns the menu endpoint, defaulting to the public capstone file.
func (c *Config) GetMenuURL() string {
	if c.MenuURL == "" {
		return remote.DefaultMenuURL
	}
	return c.MenuURL
}

// GetImageBaseURL returns the base URL dish images resolve against.
func (c *Config) GetImageBaseURL() string {
	if c.ImageBaseURL == "" {
		return remote.DefaultImageBaseURL
	}
	return c.ImageBaseURL
}

// GetFetchTimeout returns the remote fetch timeout, defaulting to 30s.
func (c *Config) GetFetchTimeout() (time.Duration, error) {
	if c.FetchTimeout == "" {
		return remote.DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("parse fetch_timeout %q: %w", c.FetchTimeout, err)
	}
	return d, nil
}

// GetMaxAge returns the cache staleness limit. Zero means never stale.
func (c *Config) GetMaxAge() (time.Duration, error) {
	if c.MaxAge == "" || c.MaxAge == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.MaxAge)
	if err != nil {
		return 0, fmt.Errorf("parse max_age %q: %w", c.MaxAge, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("max_age must not be negative: %s", c.MaxAge)
	}
	return d, nil
}

// GetLogLevel returns the log level, defaulting to "info".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return "info"
	}
	return c.LogLevel
}

// GetHTTPAddr returns the API listen address, defaulting to ":8080".
func (c *Config) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		return ":8080"
	}
	return c.HTTPAddr
}

// GetOTELEndpoint returns the collector URL, or "" when tracing is off.
func (c *Config) GetOTELEndpoint() string {
	if strings.EqualFold(c.OTELEnabled, "false") {
		return ""
	}
	return c.OTELEndpoint
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Repository implementation based on the configured backend.
func (c *Config) OpenStorage(ctx context.Context) (storage.Repository, error) {
	switch backend := c.GetBackend(); backend {
	case BackendSQLite:
		return storage.Open(filepath.Join(c.GetDataDir(), storage.DBFileName))
	case BackendPostgres:
		return postgres.Open(ctx, c.PostgresURL)
	case BackendCharm:
		return charm.Open(charm.Options{Host: c.CharmHost, AutoSync: true})
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// OpenBackend opens a specific backend with the rest of this config,
// used when copying data between stores.
func (c *Config) OpenBackend(ctx context.Context, backend string) (storage.Repository, error) {
	other := *c
	other.Backend = backend
	return other.OpenStorage(ctx)
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "littlelemon", "config.json")
}

// Load reads config from disk, then applies a .env file from the working
// directory and LITTLELEMON_* environment variables on top.
func Load() (*Config, error) {
	return LoadFile(GetConfigPath())
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// A missing .env file is normal.
	_ = godotenv.Load()

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
