// Package common provides shared utilities for tickerboard
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for tickerboard
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Warehouse   WarehouseConfig `toml:"warehouse"`
	Cache       CacheConfig     `toml:"cache"`
	Quotes      QuotesConfig    `toml:"quotes"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"min=1,max=65535"`
}

// WarehouseConfig selects and configures the analytics warehouse backend.
type WarehouseConfig struct {
	Driver      string          `toml:"driver" validate:"oneof=sqlite surrealdb"`
	TablePrefix string          `toml:"table_prefix"` // qualifies table names, e.g. "analytics_"
	Timeout     string          `toml:"timeout"`
	SQLite      SQLiteConfig    `toml:"sqlite"`
	SurrealDB   SurrealDBConfig `toml:"surrealdb"`
}

// SQLiteConfig holds the path of a local warehouse export.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// SurrealDBConfig holds the SurrealDB connection and credential bundle.
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// GetTimeout parses and returns the warehouse query timeout
func (c *WarehouseConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// CacheConfig controls dataset lifetime and warming.
type CacheConfig struct {
	TTL          string `toml:"ttl"`
	WarmOnStart  bool   `toml:"warm_on_start"`
	WarmSchedule string `toml:"warm_schedule"` // cron expression, empty disables
}

// GetTTL parses and returns the dataset time-to-live
func (c *CacheConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil || d <= 0 {
		return DefaultDatasetTTL
	}
	return d
}

// QuotesConfig selects the live quote provider.
type QuotesConfig struct {
	Provider string      `toml:"provider" validate:"oneof=yahoo eodhd"`
	Timeout  string      `toml:"timeout"`
	Yahoo    YahooConfig `toml:"yahoo"`
	EODHD    EODHDConfig `toml:"eodhd"`
}

// GetTimeout parses and returns the quote lookup timeout
func (c *QuotesConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// YahooConfig holds Yahoo Finance client configuration
type YahooConfig struct {
	BaseURL   string `toml:"base_url"`
	UserAgent string `toml:"user_agent"`
	RateLimit int    `toml:"rate_limit"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
	Outputs    []string `toml:"outputs" validate:"dive,oneof=console file"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Warehouse: WarehouseConfig{
			Driver:  "sqlite",
			Timeout: "60s",
			SQLite:  SQLiteConfig{Path: "data/warehouse.db"},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Namespace: "analytics",
				Database:  "dbt",
				Username:  "root",
				Password:  "root",
			},
		},
		Cache: CacheConfig{
			TTL:         "30000s",
			WarmOnStart: true,
		},
		Quotes: QuotesConfig{
			Provider: "yahoo",
			Timeout:  "15s",
			Yahoo: YahooConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				UserAgent: "Mozilla/5.0 (compatible; tickerboard)",
				RateLimit: 5,
			},
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "./logs/tickerboard.log",
			MaxSizeMB:  10,
			MaxBackups: 5,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks enumerated and ranged fields.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("TICKERBOARD_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("TICKERBOARD_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("TICKERBOARD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("TICKERBOARD_LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}

	// Warehouse credential bundle
	if v := os.Getenv("TICKERBOARD_WAREHOUSE_DRIVER"); v != "" {
		config.Warehouse.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("TICKERBOARD_WAREHOUSE_PATH"); v != "" {
		config.Warehouse.SQLite.Path = v
	}
	if v := os.Getenv("TICKERBOARD_WAREHOUSE_ADDRESS"); v != "" {
		config.Warehouse.SurrealDB.Address = v
	}
	if v := os.Getenv("TICKERBOARD_WAREHOUSE_USERNAME"); v != "" {
		config.Warehouse.SurrealDB.Username = v
	}
	if v := os.Getenv("TICKERBOARD_WAREHOUSE_PASSWORD"); v != "" {
		config.Warehouse.SurrealDB.Password = v
	}

	if v := os.Getenv("TICKERBOARD_CACHE_TTL"); v != "" {
		config.Cache.TTL = v
	}

	if v := os.Getenv("TICKERBOARD_QUOTE_PROVIDER"); v != "" {
		config.Quotes.Provider = strings.ToLower(v)
	}
	for _, name := range []string{"EODHD_API_KEY", "TICKERBOARD_EODHD_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			config.Quotes.EODHD.APIKey = v
			break
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
