// Package config loads server settings from an optional YAML file with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Store   StoreConfig   `koanf:"store"`
	Log     LogConfig     `koanf:"log"`
	Metrics MetricsConfig `koanf:"metrics"`
	Groups  GroupsConfig  `koanf:"groups"`
}

type HTTPConfig struct {
	Addr           string        `koanf:"addr"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
	AllowedOrigins []string      `koanf:"allowed_origins"`

	// TrustForwardedFor makes reveal logs record the first X-Forwarded-For
	// hop instead of the socket address. Enable only behind a proxy.
	TrustForwardedFor bool `koanf:"trust_forwarded_for"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "memory".
	Driver string `koanf:"driver"`
	Path   string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

type GroupsConfig struct {
	MaxParticipants int `koanf:"max_participants"`
	MaxNameLength   int `koanf:"max_name_length"`
}

// Load reads path (if non-empty), then applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var problems []error

	if c.HTTP.Addr == "" {
		problems = append(problems, errors.New("http.addr is required"))
	}
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.Path == "" {
			problems = append(problems, errors.New("store.path is required for the sqlite driver"))
		}
	default:
		problems = append(problems, fmt.Errorf("store.driver %q is not one of sqlite, memory", c.Store.Driver))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		problems = append(problems, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}
	if c.Groups.MaxParticipants < 2 {
		problems = append(problems, errors.New("groups.max_participants must be at least 2"))
	}
	if c.Groups.MaxNameLength < 1 {
		problems = append(problems, errors.New("groups.max_name_length must be positive"))
	}

	if err := errors.Join(problems...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.addr", ":8080")
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)
	setDefault(k, "http.allowed_origins", []string{"*"})
	setDefault(k, "http.trust_forwarded_for", false)

	setDefault(k, "store.driver", "sqlite")
	setDefault(k, "store.path", "./data/santa.db")

	setDefault(k, "log.level", "info")
	setDefault(k, "log.format", "text")

	setDefault(k, "metrics.enabled", true)

	setDefault(k, "groups.max_participants", 500)
	setDefault(k, "groups.max_name_length", 100)
}

func applyEnvOverrides(k *koanf.Koanf) {
	if addr := getString("HTTP_ADDR", ""); addr != "" {
		k.Set("http.addr", addr)
	}
	if origins := getString("ALLOWED_ORIGINS", ""); origins != "" {
		k.Set("http.allowed_origins", splitList(origins))
	}

	if trust, ok := getBool("TRUST_FORWARDED_FOR"); ok {
		k.Set("http.trust_forwarded_for", trust)
	}

	if driver := getString("STORE_DRIVER", ""); driver != "" {
		k.Set("store.driver", driver)
	}
	if path := getString("DB_PATH", ""); path != "" {
		k.Set("store.path", path)
	}

	if level := getString("LOG_LEVEL", ""); level != "" {
		k.Set("log.level", level)
	}
	if format := getString("LOG_FORMAT", ""); format != "" {
		k.Set("log.format", format)
	}

	if enabled, ok := getBool("METRICS_ENABLED"); ok {
		k.Set("metrics.enabled", enabled)
	}

	if n := getInt("MAX_PARTICIPANTS", 0); n > 0 {
		k.Set("groups.max_participants", n)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
