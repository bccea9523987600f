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
	Server  ServerConfig  `mapstructure:"server"`
	Scan    ScanConfig    `mapstructure:"scan"`
	Render  RenderConfig  `mapstructure:"render"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	RequestTimeoutS int `mapstructure:"request_timeout_seconds"`
}

// ScanConfig bounds crawl behavior for site scans.
type ScanConfig struct {
	MaxPages       int    `mapstructure:"max_pages"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	CrawlDelayMs   int    `mapstructure:"crawl_delay_ms"`
	LinksPerPage   int    `mapstructure:"links_per_page"`
	UserAgent      string `mapstructure:"user_agent"`
	Topic          string `mapstructure:"completion_topic"`
}

// RenderConfig configures the headless browser renderer.
type RenderConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxParallel    int     `mapstructure:"max_parallel"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
	SettleDelayMs  int     `mapstructure:"settle_delay_ms"`
}

// StorageConfig selects the result blob backend.
type StorageConfig struct {
	// Provider is one of "local", "gcs", or "memory".
	Provider  string `mapstructure:"provider"`
	ScansDir  string `mapstructure:"scans_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// DBConfig controls the optional Postgres scan history archive.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// PubSubConfig holds metadata for scan completion notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCHEMASCOPE")
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
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("scan.max_pages", 25)
	v.SetDefault("scan.max_concurrency", 4)
	v.SetDefault("scan.crawl_delay_ms", 500)
	v.SetDefault("scan.links_per_page", 30)
	v.SetDefault("scan.user_agent", "schemascope-bot/0.1")
	v.SetDefault("render.timeout_seconds", 30)
	v.SetDefault("render.max_parallel", 4)
	v.SetDefault("render.domain_qps", 2.0)
	v.SetDefault("render.settle_delay_ms", 500)
	v.SetDefault("storage.provider", "local")
	v.SetDefault("storage.scans_dir", "scans")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scan.MaxPages <= 0 {
		return fmt.Errorf("scan.max_pages must be > 0")
	}
	if c.Scan.MaxConcurrency <= 0 {
		return fmt.Errorf("scan.max_concurrency must be > 0")
	}
	if c.Render.TimeoutSeconds <= 0 {
		return fmt.Errorf("render.timeout_seconds must be > 0")
	}
	switch c.Storage.Provider {
	case "local":
		if c.Storage.ScansDir == "" {
			return fmt.Errorf("storage.scans_dir must be set for the local provider")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs provider")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage provider: %s", c.Storage.Provider)
	}
	if c.Scan.Topic != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when scan.completion_topic is set")
	}
	return nil
}

// CrawlDelay converts the millisecond knob into a duration.
func (c Config) CrawlDelay() time.Duration {
	return time.Duration(c.Scan.CrawlDelayMs) * time.Millisecond
}

// RenderTimeout converts the render timeout into a duration.
func (c Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.TimeoutSeconds) * time.Second
}

// SettleDelay converts the render settle delay into a duration.
func (c Config) SettleDelay() time.Duration {
	return time.Duration(c.Render.SettleDelayMs) * time.Millisecond
}

// RequestTimeout converts the HTTP request timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutS) * time.Second
}
