// Package config loads goldmarket settings from goldmarket.yaml, GOLDMARKET_*
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/goldlanka/goldmarket/internal/database"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Blobs    BlobsConfig    `mapstructure:"blobs"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Client   ClientConfig   `mapstructure:"client"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	BaseURL        string        `mapstructure:"base_url"` // public URL used in links, sitemap and RSS
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig selects the record store backend
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite" or "postgres"
	Path   string `mapstructure:"path"`   // SQLite file
	DSN    string `mapstructure:"dsn"`    // PostgreSQL connection string
}

// Source returns the driver-specific data source.
func (d DatabaseConfig) Source() string {
	if d.Driver == "postgres" {
		return d.DSN
	}
	return d.Path
}

// BlobsConfig holds upload storage configuration
type BlobsConfig struct {
	Path           string `mapstructure:"path"`
	MaxUploadBytes int    `mapstructure:"max_upload_bytes"`
}

// FeedConfig holds pagination settings
type FeedConfig struct {
	PageSize int `mapstructure:"page_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	// File sends log output to a file instead of stderr.
	File string `mapstructure:"file"`
}

// ClientConfig is used by the terminal browser
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	UserID  string        `mapstructure:"user_id"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			BaseURL:        "http://localhost:8080",
			RequestTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "goldmarket.db",
		},
		Blobs: BlobsConfig{
			Path:           "goldmarket-blobs.db",
			MaxUploadBytes: 5 << 20,
		},
		Feed: FeedConfig{
			PageSize: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:8080",
			Timeout: 10 * time.Second,
		},
	}
}

// SetDefaults registers every default with v so that environment variables
// are picked up for all keys.
func SetDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.base_url", d.Server.BaseURL)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("blobs.path", d.Blobs.Path)
	v.SetDefault("blobs.max_upload_bytes", d.Blobs.MaxUploadBytes)
	v.SetDefault("feed.page_size", d.Feed.PageSize)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("client.base_url", d.Client.BaseURL)
	v.SetDefault("client.user_id", d.Client.UserID)
	v.SetDefault("client.timeout", d.Client.Timeout)
}

// defaultConfigPath returns the per-user config directory
func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "goldmarket")
}

// Load reads configuration into a Config. When file is empty, goldmarket.yaml
// is looked up in the working directory and the user config directory; a
// missing file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("goldmarket")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(defaultConfigPath())
	}

	// Environment variable overrides, e.g. GOLDMARKET_DATABASE_DRIVER
	v.SetEnvPrefix("GOLDMARKET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Feed.PageSize <= 0 {
		return errors.New("feed.page_size must be positive")
	}
	if c.Feed.PageSize > database.MaxPageSize {
		return fmt.Errorf("feed.page_size must be at most %d, got %d", database.MaxPageSize, c.Feed.PageSize)
	}
	return nil
}
