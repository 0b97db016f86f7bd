// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment string          `toml:"environment"`
	DefaultUser string          `toml:"default_user"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Pricing     PricingConfig   `toml:"pricing"`
	Batch       BatchConfig     `toml:"batch"`
	StockData   StockDataConfig `toml:"stockdata"`
	Importer    ImporterConfig  `toml:"importer"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	Backend   string          `toml:"backend"`   // "sqlite" or "surrealdb"
	SQLite    SQLiteConfig    `toml:"sqlite"`
	SurrealDB SurrealDBConfig `toml:"surrealdb"`
}

// SQLiteConfig holds the embedded database location.
type SQLiteConfig struct {
	Path string `toml:"path"`
}

// SurrealDBConfig holds SurrealDB connection settings.
type SurrealDBConfig struct {
	Address   string `toml:"address"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
	Yahoo YahooConfig `toml:"yahoo"`
	MFAPI MFAPIConfig `toml:"mfapi"`
	AMFI  AMFIConfig  `toml:"amfi"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string   `toml:"base_url"`
	APIKey    string   `toml:"api_key"`
	RateLimit int      `toml:"rate_limit"`
	Timeout   string   `toml:"timeout"`
	Exchanges []string `toml:"exchanges"` // ticker suffixes tried in order, e.g. ["NSE", "BSE"]
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 30*time.Second)
}

// YahooConfig holds Yahoo Finance client configuration
type YahooConfig struct {
	Enabled   bool     `toml:"enabled"`
	RateLimit int      `toml:"rate_limit"`
	Timeout   string   `toml:"timeout"`
	Suffixes  []string `toml:"suffixes"` // e.g. [".NS", ".BO"]
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 20*time.Second)
}

// MFAPIConfig holds mfapi.in configuration
type MFAPIConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *MFAPIConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 20*time.Second)
}

// AMFIConfig holds the AMFI NAV file configuration
type AMFIConfig struct {
	URL             string `toml:"url"`
	Timeout         string `toml:"timeout"`
	RefreshInterval string `toml:"refresh_interval"`
}

// GetTimeout parses and returns the timeout duration
func (c *AMFIConfig) GetTimeout() time.Duration {
	return parseDuration(c.Timeout, 60*time.Second)
}

// GetRefreshInterval returns how long a downloaded NAV file is reused.
func (c *AMFIConfig) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, time.Hour)
}

// PricingConfig holds the resolution engine's policy constants.
type PricingConfig struct {
	HistoryWindowDays  int     `toml:"history_window_days"`
	FundWindowDays     int     `toml:"fund_window_days"`
	EquityWindowDays   int     `toml:"equity_window_days"`
	LiveCacheTTL       string  `toml:"live_cache_ttl"`
	EquityDefaultPrice float64 `toml:"equity_default_price"`
	FundDefaultPrice   float64 `toml:"fund_default_price"`
	USDINRRate         float64 `toml:"usd_inr_rate"`
}

// GetLiveCacheTTL returns the TTL of the in-memory live price cache.
func (c *PricingConfig) GetLiveCacheTTL() time.Duration {
	return parseDuration(c.LiveCacheTTL, 60*time.Second)
}

// BatchConfig holds bulk resolution limits.
type BatchConfig struct {
	FundChunkSize   int    `toml:"fund_chunk_size"`
	EquityChunkSize int    `toml:"equity_chunk_size"`
	MaxWorkers      int    `toml:"max_workers"`
	ChunkDelay      string `toml:"chunk_delay"`
	ChunkTimeout    string `toml:"chunk_timeout"`
	TimeBudget      string `toml:"time_budget"`
}

// GetChunkDelay returns the pause between chunks.
func (c *BatchConfig) GetChunkDelay() time.Duration {
	return parseDuration(c.ChunkDelay, 500*time.Millisecond)
}

// GetChunkTimeout returns how long the coordinator waits on one chunk before moving on.
func (c *BatchConfig) GetChunkTimeout() time.Duration {
	return parseDuration(c.ChunkTimeout, 30*time.Second)
}

// GetTimeBudget returns the default wall-clock budget for a batch.
func (c *BatchConfig) GetTimeBudget() time.Duration {
	return parseDuration(c.TimeBudget, 90*time.Second)
}

// StockDataConfig holds the stock_data refresher settings.
type StockDataConfig struct {
	AutoUpdate bool   `toml:"auto_update"`
	Interval   string `toml:"interval"`
	FundDelay  string `toml:"fund_delay"`
	StockDelay string `toml:"stock_delay"`
}

// GetInterval returns the refresh interval.
func (c *StockDataConfig) GetInterval() time.Duration {
	return parseDuration(c.Interval, time.Hour)
}

// GetFundDelay returns the pause between fund refreshes.
func (c *StockDataConfig) GetFundDelay() time.Duration {
	return parseDuration(c.FundDelay, 100*time.Millisecond)
}

// GetStockDelay returns the pause between equity refreshes.
func (c *StockDataConfig) GetStockDelay() time.Duration {
	return parseDuration(c.StockDelay, 200*time.Millisecond)
}

// ImporterConfig holds CSV import settings.
type ImporterConfig struct {
	InboxDir   string `toml:"inbox_dir"`
	ArchiveDir string `toml:"archive_dir"`
	Schedule   string `toml:"schedule"` // cron spec; empty disables the inbox job
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// parseDuration parses a duration string, returning fallback when empty or invalid.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		DefaultUser: "default",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
			SQLite:  SQLiteConfig{Path: "data/folio.db"},
			SurrealDB: SurrealDBConfig{
				Address:   "ws://localhost:8000/rpc",
				Username:  "root",
				Password:  "root",
				Namespace: "folio",
				Database:  "folio",
			},
		},
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL:   "https://eodhd.com/api",
				RateLimit: 10,
				Timeout:   "30s",
				Exchanges: []string{"NSE", "BSE"},
			},
			Yahoo: YahooConfig{
				Enabled:   true,
				RateLimit: 5,
				Timeout:   "20s",
				Suffixes:  []string{".NS", ".BO"},
			},
			MFAPI: MFAPIConfig{
				BaseURL:   "https://api.mfapi.in",
				RateLimit: 10,
				Timeout:   "20s",
			},
			AMFI: AMFIConfig{
				URL:             "https://www.amfiindia.com/spages/NAVAll.txt",
				Timeout:         "60s",
				RefreshInterval: "1h",
			},
		},
		Pricing: PricingConfig{
			HistoryWindowDays:  30,
			FundWindowDays:     30,
			EquityWindowDays:   30,
			LiveCacheTTL:       "60s",
			EquityDefaultPrice: 1000,
			FundDefaultPrice:   100,
			USDINRRate:         83.5,
		},
		Batch: BatchConfig{
			FundChunkSize:   10,
			EquityChunkSize: 15,
			MaxWorkers:      4,
			ChunkDelay:      "500ms",
			ChunkTimeout:    "30s",
			TimeBudget:      "90s",
		},
		StockData: StockDataConfig{
			AutoUpdate: false,
			Interval:   "3600s",
			FundDelay:  "100ms",
			StockDelay: "200ms",
		},
		Importer: ImporterConfig{
			InboxDir:   "data/inbox",
			ArchiveDir: "data/archive",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with .env and environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// A missing .env is normal outside development
	_ = godotenv.Load()

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("FOLIO_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("FOLIO_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if user := os.Getenv("FOLIO_DEFAULT_USER"); user != "" {
		config.DefaultUser = user
	}

	// Storage overrides
	if v := os.Getenv("FOLIO_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("FOLIO_SQLITE_PATH"); v != "" {
		config.Storage.SQLite.Path = v
	}
	if v := os.Getenv("FOLIO_SURREALDB_ADDRESS"); v != "" {
		config.Storage.SurrealDB.Address = v
	}
	if v := os.Getenv("FOLIO_SURREALDB_USERNAME"); v != "" {
		config.Storage.SurrealDB.Username = v
	}
	if v := os.Getenv("FOLIO_SURREALDB_PASSWORD"); v != "" {
		config.Storage.SurrealDB.Password = v
	}

	// Stock data refresher overrides; STOCK_UPDATE_INTERVAL is plain seconds
	if v := os.Getenv("STOCK_UPDATE_INTERVAL"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			config.StockData.Interval = fmt.Sprintf("%ds", secs)
		}
	}
	if v := os.Getenv("FOLIO_AUTO_UPDATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			config.StockData.AutoUpdate = b
		}
	}

	if v := os.Getenv("FOLIO_BATCH_TIME_BUDGET"); v != "" {
		config.Batch.TimeBudget = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves an API key from the environment, falling back to the config value
func ResolveAPIKey(name string, fallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"eodhd_api_key": {"EODHD_API_KEY", "FOLIO_EODHD_API_KEY"},
	}

	if envVarNames, ok := keyToEnvMapping[name]; ok {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment or config", name)
}
