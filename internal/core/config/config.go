package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level application config.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Broadband BroadbandConfig `koanf:"broadband"`
	Registry  RegistryConfig  `koanf:"registry"`
	Notify    NotifyConfig    `koanf:"notify"`
	Charts    ChartsConfig    `koanf:"charts"`
	Sampler   SamplerConfig   `koanf:"sampler"`
}

type ServerConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Mode string `koanf:"mode"` // debug | release
}

type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

type BroadbandConfig struct {
	Endpoint       string `koanf:"endpoint"`
	SubscriberCode string `koanf:"subscriber_code"`
}

type RegistryConfig struct {
	Endpoint string   `koanf:"endpoint"`
	Packages []string `koanf:"packages"`
}

type NotifyConfig struct {
	TelegramToken  string `koanf:"telegram_token"`
	TelegramChatID int64  `koanf:"telegram_chat_id"`
}

// Enabled reports whether a chat channel is configured. Without one the
// process runs with a no-op notifier.
func (c NotifyConfig) Enabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

type ChartsConfig struct {
	DefaultRecords    int    `koanf:"default_records"`
	IncludeAnchor     bool   `koanf:"include_anchor"`
	ZeroBaselineFirst bool   `koanf:"zero_baseline_first"`
	Timezone          string `koanf:"timezone"`
}

// Location resolves the reporting time zone used for day keys and labels.
func (c ChartsConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

type SamplerConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Interval string `koanf:"interval"`
	Announce bool   `koanf:"announce"`
}

func (c SamplerConfig) ParsedInterval() (time.Duration, error) {
	return time.ParseDuration(c.Interval)
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d (must be 1-65535)", c.Server.Port)
	}
	if strings.TrimSpace(c.Server.Host) == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.Mode != "debug" && c.Server.Mode != "release" {
		return fmt.Errorf("invalid server.mode %q (must be debug or release)", c.Server.Mode)
	}

	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be > 0")
	}
	if c.Database.MaxIdleConns <= 0 {
		return fmt.Errorf("database.max_idle_conns must be > 0")
	}

	if strings.TrimSpace(c.Broadband.Endpoint) == "" {
		return fmt.Errorf("broadband.endpoint is required")
	}
	if strings.TrimSpace(c.Broadband.SubscriberCode) == "" {
		return fmt.Errorf("broadband.subscriber_code is required")
	}

	if strings.TrimSpace(c.Registry.Endpoint) == "" {
		return fmt.Errorf("registry.endpoint is required")
	}
	if len(c.Registry.Packages) == 0 {
		return fmt.Errorf("registry.packages must not be empty")
	}

	if c.Charts.DefaultRecords <= 0 {
		return fmt.Errorf("charts.default_records must be > 0")
	}
	if _, err := c.Charts.Location(); err != nil {
		return fmt.Errorf("invalid charts.timezone %q: %w", c.Charts.Timezone, err)
	}

	interval, err := c.Sampler.ParsedInterval()
	if err != nil {
		return fmt.Errorf("invalid sampler.interval %q: %w", c.Sampler.Interval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("sampler.interval must be > 0")
	}

	return nil
}

// Load parses config from file + env and validates it.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                8080,
		"server.host":                "0.0.0.0",
		"server.mode":                "release",
		"database.dsn":               "postgres://localhost:5432/meterdash?sslmode=disable",
		"database.max_open_conns":    10,
		"database.max_idle_conns":    5,
		"database.auto_migrate":      true,
		"broadband.endpoint":         "https://myabb.in/totalBalance",
		"broadband.subscriber_code":  "",
		"registry.endpoint":          "https://api.npmjs.org",
		"registry.packages":          []string{"vibranium-cli", "test-datasets"},
		"notify.telegram_token":      "",
		"notify.telegram_chat_id":    0,
		"charts.default_records":     30,
		"charts.include_anchor":      false,
		"charts.zero_baseline_first": false,
		"charts.timezone":            "Asia/Kolkata",
		"sampler.enabled":            true,
		"sampler.interval":           "24h",
		"sampler.announce":           true,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("METERDASH_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "METERDASH_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
