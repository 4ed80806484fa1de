package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is the application version, overridable at build time.
var Version = "0.1.0-dev"

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Search    SearchConfig    `mapstructure:"search"`
	Quality   QualityConfig   `mapstructure:"quality"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// SearchConfig holds search orchestration configuration.
type SearchConfig struct {
	// IndexerTimeoutSeconds bounds each individual indexer query.
	IndexerTimeoutSeconds int `mapstructure:"indexer_timeout_seconds"`
	// BatchConcurrency bounds the number of events searched at once
	// during a search-all run.
	BatchConcurrency int `mapstructure:"batch_concurrency"`
	// MaxResultsPerIndexer caps results requested from each indexer.
	MaxResultsPerIndexer int `mapstructure:"max_results_per_indexer"`
	// MinCacheResults is the number of cached releases below which a
	// live indexer fan-out is issued.
	MinCacheResults int `mapstructure:"min_cache_results"`
}

// QualityConfig selects the default quality profile and declares the
// custom formats applied when scoring releases.
type QualityConfig struct {
	Profile string               `mapstructure:"profile"`
	Formats []CustomFormatConfig `mapstructure:"formats"`
}

// CustomFormatConfig declares one custom format.
type CustomFormatConfig struct {
	ID             int64                 `mapstructure:"id"`
	Name           string                `mapstructure:"name"`
	Score          int                   `mapstructure:"score"`
	Specifications []SpecificationConfig `mapstructure:"specifications"`
}

// SpecificationConfig declares one condition inside a custom format.
type SpecificationConfig struct {
	Name     string `mapstructure:"name"`
	Kind     string `mapstructure:"kind"`
	Required bool   `mapstructure:"required"`
	Negate   bool   `mapstructure:"negate"`
	Pattern  string `mapstructure:"pattern"`
	Flag     string `mapstructure:"flag"`
}

// CacheConfig holds release cache configuration.
type CacheConfig struct {
	TTLMinutes              int `mapstructure:"ttl_minutes"`
	EvictionIntervalMinutes int `mapstructure:"eviction_interval_minutes"`
}

// SchedulerConfig holds scheduled task configuration.
type SchedulerConfig struct {
	SearchAllIntervalMinutes int  `mapstructure:"search_all_interval_minutes"`
	Enabled                  bool `mapstructure:"enabled"`
}

// IndexerTimeout returns the per-indexer query timeout as a duration.
func (s *SearchConfig) IndexerTimeout() time.Duration {
	return time.Duration(s.IndexerTimeoutSeconds) * time.Second
}

// TTL returns the cache entry time-to-live as a duration.
func (c *CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLMinutes) * time.Minute
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 7878,
		},
		Database: DatabaseConfig{
			Path: "./data/sportarr.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Search: SearchConfig{
			IndexerTimeoutSeconds: 30,
			BatchConcurrency:      3,
			MaxResultsPerIndexer:  100,
			MinCacheResults:       5,
		},
		Quality: QualityConfig{
			Profile: "Any",
		},
		Cache: CacheConfig{
			TTLMinutes:              30,
			EvictionIntervalMinutes: 15,
		},
		Scheduler: SchedulerConfig{
			SearchAllIntervalMinutes: 60,
			Enabled:                  true,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.sportarr")
	}

	v.SetEnvPrefix("SPORTARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("search.indexer_timeout_seconds", d.Search.IndexerTimeoutSeconds)
	v.SetDefault("search.batch_concurrency", d.Search.BatchConcurrency)
	v.SetDefault("search.max_results_per_indexer", d.Search.MaxResultsPerIndexer)
	v.SetDefault("search.min_cache_results", d.Search.MinCacheResults)

	v.SetDefault("quality.profile", d.Quality.Profile)

	v.SetDefault("cache.ttl_minutes", d.Cache.TTLMinutes)
	v.SetDefault("cache.eviction_interval_minutes", d.Cache.EvictionIntervalMinutes)

	v.SetDefault("scheduler.search_all_interval_minutes", d.Scheduler.SearchAllIntervalMinutes)
	v.SetDefault("scheduler.enabled", d.Scheduler.Enabled)
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
