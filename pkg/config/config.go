package config

import (
	"fmt"
	"log"
	"strings"
	"time"
	_ "time/tzdata" // timezone must resolve on minimal images

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Upstream  UpstreamConfig  `mapstructure:"upstream"`
	Refresh   RefreshConfig   `mapstructure:"refresh"`
	Watchlist WatchlistConfig `mapstructure:"watchlist"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Relay     RelayConfig     `mapstructure:"relay"`
}

type AppConfig struct {
	Port     string `mapstructure:"port"`
	Env      string `mapstructure:"env"` // e.g., "local", "prod"
	Timezone string `mapstructure:"timezone"`

	// Browser origins allowed to call the REST API; empty disables CORS.
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// UpstreamConfig points at the quote API.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RefreshConfig holds the scheduler periods.
type RefreshConfig struct {
	Fast time.Duration `mapstructure:"fast"` // quotes + indices
	Slow time.Duration `mapstructure:"slow"` // summary + suggestions
	Age  time.Duration `mapstructure:"age"`  // "last update" label
	Feed time.Duration `mapstructure:"feed"` // feed "time ago" labels
}

type WatchlistConfig struct {
	Defaults  []string `mapstructure:"defaults"`
	Suggested []string `mapstructure:"suggested"`
	StoreKey  string   `mapstructure:"store_key"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LoggerConfig selects the zap preset and optional file rotation.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // "json" or "console"
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type FeedConfig struct {
	Path string `mapstructure:"path"` // empty = built-in items
}

type SimulatorConfig struct {
	Port    string   `mapstructure:"port"`
	Symbols []string `mapstructure:"symbols"`
}

// RelayConfig drives the tape consumer.
type RelayConfig struct {
	GroupID string        `mapstructure:"group_id"`
	Workers int           `mapstructure:"workers"`
	TTL     time.Duration `mapstructure:"ttl"` // on the per-symbol tick key
}

// LoadConfig reads configuration from .env file, environment variables, and defaults.
func LoadConfig() (*Config, error) {
	v := viper.New()

	// .env only seeds the process environment; real env vars still win.
	if err := godotenv.Load(); err != nil {
		log.Println("Note: No .env file found, relying on System Env Vars")
	}

	setDefaults(v)

	// "upstream.base_url" -> "UPSTREAM_BASE_URL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only covers keys viper already knows about when
	// unmarshalling nested structs, so bind every key explicitly.
	bindEnv(v, "app.port", "app.env", "app.timezone", "app.cors_origins")
	bindEnv(v, "upstream.base_url", "upstream.timeout")
	bindEnv(v, "refresh.fast", "refresh.slow", "refresh.age", "refresh.feed")
	bindEnv(v, "watchlist.defaults", "watchlist.suggested", "watchlist.store_key")
	bindEnv(v, "redis.addr", "redis.password", "redis.db")
	bindEnv(v, "kafka.enabled", "kafka.brokers", "kafka.topic")
	bindEnv(v, "logger.level", "logger.format", "logger.file", "logger.max_size_mb", "logger.max_backups", "logger.max_age_days")
	bindEnv(v, "feed.path")
	bindEnv(v, "simulator.port", "simulator.symbols")
	bindEnv(v, "relay.group_id", "relay.workers", "relay.ttl")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	normalize(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", ":8080")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.timezone", "America/New_York")
	v.SetDefault("app.cors_origins", []string{})

	v.SetDefault("upstream.base_url", "http://localhost:8090")
	v.SetDefault("upstream.timeout", 10*time.Second)

	v.SetDefault("refresh.fast", 30*time.Second)
	v.SetDefault("refresh.slow", 4*time.Hour)
	v.SetDefault("refresh.age", time.Second)
	v.SetDefault("refresh.feed", time.Minute)

	v.SetDefault("watchlist.defaults", []string{"NVDA", "AAPL", "TSLA", "MSFT", "AMD"})
	v.SetDefault("watchlist.suggested", []string{"TSM", "SMCI", "ASML", "DELL", "PLTR", "COIN"})
	v.SetDefault("watchlist.store_key", "watchlist")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "market_ticks")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 14)

	v.SetDefault("feed.path", "")

	v.SetDefault("simulator.port", ":8090")
	v.SetDefault("simulator.symbols", []string{"NVDA", "AAPL", "TSLA", "MSFT", "AMD", "TSM", "SMCI", "ASML", "DELL", "PLTR", "COIN"})

	v.SetDefault("relay.group_id", "pulse-relay")
	v.SetDefault("relay.workers", 4)
	v.SetDefault("relay.ttl", time.Hour)
}

// normalize splits comma-joined list values coming from a single env var and
// uppercases symbols.
func normalize(cfg *Config) {
	cfg.Watchlist.Defaults = symbolList(cfg.Watchlist.Defaults)
	cfg.Watchlist.Suggested = symbolList(cfg.Watchlist.Suggested)
	cfg.Simulator.Symbols = symbolList(cfg.Simulator.Symbols)
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)
	cfg.App.CORSOrigins = splitList(cfg.App.CORSOrigins)
}

func symbolList(in []string) []string {
	out := splitList(in)
	for i, s := range out {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks the values the services cannot run without.
func (c *Config) Validate() error {
	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("upstream base url cannot be empty")
	}
	if c.Refresh.Fast <= 0 || c.Refresh.Slow <= 0 || c.Refresh.Age <= 0 || c.Refresh.Feed <= 0 {
		return fmt.Errorf("refresh periods must be positive (fast=%s slow=%s age=%s feed=%s)",
			c.Refresh.Fast, c.Refresh.Slow, c.Refresh.Age, c.Refresh.Feed)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.App.Timezone, err)
	}
	if c.Watchlist.StoreKey == "" {
		return fmt.Errorf("watchlist store key cannot be empty")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers cannot be empty")
	}
	if c.Relay.Workers <= 0 {
		return fmt.Errorf("relay workers must be positive, got %d", c.Relay.Workers)
	}
	return nil
}

// bindEnv is a helper to bind multiple keys at once
func bindEnv(v *viper.Viper, keys ...string) {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			log.Printf("Could not bind env var for key %s: %v", key, err)
		}
	}
}
