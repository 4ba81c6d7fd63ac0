// Package config loads service configuration in layers: built-in
// defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"APIHub/internal/validation"
)

const (
	SourceEmbedded = "embedded"
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// PathEnvVar overrides the config file search.
const PathEnvVar = "CONFIG_PATH"

var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/apihub/config.yaml",
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Data     DataConfig     `koanf:"data"`
	Logging  LoggingConfig  `koanf:"logging"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Security SecurityConfig `koanf:"security"`
	Catalog  CatalogConfig  `koanf:"catalog"`
}

type ServerConfig struct {
	Port              int           `koanf:"port" validate:"min=1,max=65535"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout" validate:"gte=0"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}

type DataConfig struct {
	Source      string        `koanf:"source" validate:"oneof=embedded file postgres"`
	Path        string        `koanf:"path" validate:"required_if=Source file"`
	DatabaseURL string        `koanf:"database_url" validate:"required_if=Source postgres"`
	LoadTimeout time.Duration `koanf:"load_timeout" validate:"gt=0"`
}

type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Token   string `koanf:"token"`
}

type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=0"`
}

type CatalogConfig struct {
	FeaturedLimit int `koanf:"featured_limit" validate:"min=1,max=100"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8082,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Data: DataConfig{
			Source:      SourceEmbedded,
			LoadTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info"},
		Metrics: MetricsConfig{Enabled: true},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
		},
		Catalog: CatalogConfig{FeaturedLimit: 6},
	}
}

// Load applies defaults, then the first config file found, then env vars.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if err := splitLists(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func findFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envKeys = map[string]string{
	"port":                "server.port",
	"read_header_timeout": "server.read_header_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"data_source":         "data.source",
	"data_path":           "data.path",
	"database_url":        "data.database_url",
	"data_load_timeout":   "data.load_timeout",
	"log_level":           "logging.level",
	"metrics_enabled":     "metrics.enabled",
	"metrics_token":       "metrics.token",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"featured_limit":      "catalog.featured_limit",
}

// envKey maps an env var name to its config path; unknown names map to ""
// and are skipped.
func envKey(name string) string {
	return envKeys[strings.ToLower(name)]
}

var listKeys = []string{"security.cors_origins"}

// splitLists turns comma-separated env values into slices.
func splitLists(k *koanf.Koanf) error {
	for _, path := range listKeys {
		s, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := []string{}
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("set %s: %w", path, err)
		}
	}
	return nil
}
