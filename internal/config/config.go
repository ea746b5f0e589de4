// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Events    EventsConfig    `mapstructure:"events"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Schedules SchedulesConfig `mapstructure:"schedules"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScrapeConfig governs fetch behavior against the notice-board site.
type ScrapeConfig struct {
	BaseURL           string   `mapstructure:"base_url"`
	ResultMirrors     []string `mapstructure:"result_mirrors"`
	UserAgent         string   `mapstructure:"user_agent"`
	HTMLTimeoutSec    int      `mapstructure:"html_timeout_seconds"`
	PDFTimeoutSec     int      `mapstructure:"pdf_timeout_seconds"`
	PerHostQPS        float64  `mapstructure:"per_host_qps"`
	PerHostBurst      int      `mapstructure:"per_host_burst"`
	SnapshotArchiving bool     `mapstructure:"snapshot_archiving"`
}

// EventsConfig lists the events the scheduled loops keep in sync.
type EventsConfig struct {
	IDs      []string `mapstructure:"ids"`
	Timezone string   `mapstructure:"timezone"`
}

// CacheConfig controls the persisted scrape cache.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// MongoConfig controls access to the document store.
type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

// ArchiveConfig selects the raw-snapshot backend.
type ArchiveConfig struct {
	Backend string `mapstructure:"backend"` // gcs | local | memory
	Bucket  string `mapstructure:"bucket"`
	BaseDir string `mapstructure:"base_dir"`
	Prefix  string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for push-notification publishing.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// SchedulesConfig holds the cron expressions for the background loops.
type SchedulesConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	NoticesSpec  string `mapstructure:"notices"`
	ResultsSpec  string `mapstructure:"results"`
	PDFSyncSpec  string `mapstructure:"pdf_sync"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RACEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scrape.base_url", "https://www.racingrulesofsailing.org")
	v.SetDefault("scrape.user_agent",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("scrape.html_timeout_seconds", 60)
	v.SetDefault("scrape.pdf_timeout_seconds", 30)
	v.SetDefault("scrape.per_host_qps", 2.0)
	v.SetDefault("scrape.per_host_burst", 2)
	v.SetDefault("scrape.snapshot_archiving", true)
	v.SetDefault("events.timezone", "Asia/Hong_Kong")
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("mongo.database", "raceboard")
	v.SetDefault("archive.backend", "local")
	v.SetDefault("archive.base_dir", "data/snapshots")
	v.SetDefault("archive.prefix", "snapshots")
	v.SetDefault("schedules.enabled", true)
	v.SetDefault("schedules.notices", "@every 5m")
	v.SetDefault("schedules.results", "@every 10m")
	v.SetDefault("schedules.pdf_sync", "@every 6h")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scrape.BaseURL == "" {
		return fmt.Errorf("scrape.base_url is required")
	}
	if c.Scrape.HTMLTimeoutSec <= 0 || c.Scrape.PDFTimeoutSec <= 0 {
		return fmt.Errorf("scrape timeouts must be > 0")
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be > 0")
	}
	switch c.Archive.Backend {
	case "gcs":
		if c.Archive.Bucket == "" {
			return fmt.Errorf("archive.bucket is required for the gcs backend")
		}
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir is required for the local backend")
		}
	case "memory", "":
	default:
		return fmt.Errorf("unknown archive.backend %q", c.Archive.Backend)
	}
	if _, err := time.LoadLocation(c.Events.Timezone); err != nil {
		return fmt.Errorf("events.timezone: %w", err)
	}
	return nil
}

// HTMLTimeout returns the HTML fetch timeout as a duration.
func (c Config) HTMLTimeout() time.Duration {
	return time.Duration(c.Scrape.HTMLTimeoutSec) * time.Second
}

// PDFTimeout returns the PDF fetch timeout as a duration.
func (c Config) PDFTimeout() time.Duration {
	return time.Duration(c.Scrape.PDFTimeoutSec) * time.Second
}

// CacheTTL returns the persisted cache freshness window.
func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}
