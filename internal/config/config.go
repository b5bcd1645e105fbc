// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads the gateway configuration.
//
// Sources, lowest precedence first: built-in defaults, the DATABASE_URL and
// GATEHOUSE_TOKEN_SECRET environment variables, the YAML config file, and
// command-line flags that were explicitly set.
// A SQLite store with no URL lives in the XDG data directory.
package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"golang.org/x/crypto/bcrypt"

	"github.com/holomush/gatehouse/internal/xdg"
)

// Environment variables consulted when the file does not set the key.
const (
	EnvDatabaseURL = "DATABASE_URL"
	EnvTokenSecret = "GATEHOUSE_TOKEN_SECRET"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full gateway configuration. It is built once by Load and not
// modified afterwards.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Token    TokenConfig    `koanf:"token"`
	Game     GameConfig     `koanf:"game"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Log      LogConfig      `koanf:"log"`
	Hashing  HashingConfig  `koanf:"hashing"`
	Update   UpdateConfig   `koanf:"update"`
}

// ServerConfig is the HTTP listener.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects and connects the store backend.
type DatabaseConfig struct {
	Driver   string `koanf:"driver"`
	URL      string `koanf:"url"`
	MaxConns int32  `koanf:"max_conns"`
}

// TokenConfig holds the shared signing secret and token lifetime.
type TokenConfig struct {
	Secret string        `koanf:"secret"`
	TTL    time.Duration `koanf:"ttl"`
}

// GameConfig describes the game server tokens are handed to.
type GameConfig struct {
	Host string `koanf:"host"`
}

// MetricsConfig is the observability listener. Empty disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig selects the log handler.
type LogConfig struct {
	Format string `koanf:"format"`
}

// HashingConfig tunes password hashing.
type HashingConfig struct {
	Cost        int `koanf:"cost"`
	Concurrency int `koanf:"concurrency"`
}

// UpdateConfig tunes the character document update retries.
type UpdateConfig struct {
	MaxRetries uint64        `koanf:"max_retries"`
	BaseDelay  time.Duration `koanf:"base_delay"`
}

// defaults are applied before any other source.
var defaults = map[string]any{
	"server.host":         "0.0.0.0",
	"server.port":         8080,
	"database.driver":     DriverPostgres,
	"database.max_conns":  10,
	"token.ttl":           5 * time.Second,
	"metrics.addr":        "127.0.0.1:9100",
	"log.format":          "json",
	"hashing.cost":        12,
	"hashing.concurrency": 0,
	"update.max_retries":  5,
	"update.base_delay":   10 * time.Millisecond,
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"host":              "server.host",
	"port":              "server.port",
	"db-driver":         "database.driver",
	"database-url":      "database.url",
	"db-max-conns":      "database.max_conns",
	"token-secret":      "token.secret",
	"token-ttl":         "token.ttl",
	"game-host":         "game.host",
	"metrics-addr":      "metrics.addr",
	"log-format":        "log.format",
	"hash-cost":         "hashing.cost",
	"hash-concurrency":  "hashing.concurrency",
	"update-retries":    "update.max_retries",
	"update-base-delay": "update.base_delay",
}

// BindFlags registers the configuration flags on fs. Only flags the user sets
// override the file; their defaults are informational.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("host", "0.0.0.0", "HTTP bind host")
	fs.Int("port", 8080, "HTTP bind port")
	fs.String("db-driver", DriverPostgres, "store backend (postgres or sqlite)")
	fs.String("database-url", "", "database URL or SQLite path (default: $"+EnvDatabaseURL+")")
	fs.Int32("db-max-conns", 10, "maximum PostgreSQL connections")
	fs.String("token-secret", "", "shared token signing secret (default: $"+EnvTokenSecret+")")
	fs.Duration("token-ttl", 5*time.Second, "login token lifetime")
	fs.String("game-host", "", "game server address returned with tokens")
	fs.String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	fs.String("log-format", "json", "log format (json or text)")
	fs.Int("hash-cost", 12, "bcrypt cost")
	fs.Int("hash-concurrency", 0, "concurrent password hashes (0 = CPU count)")
	fs.Uint64("update-retries", 5, "document update retries on conflict")
	fs.Duration("update-base-delay", 10*time.Millisecond, "initial document update backoff")
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// Path is an optional YAML file.
	Path string
	// Flags, when set, is a flag set prepared with BindFlags.
	Flags *pflag.FlagSet
	// Check replaces Validate when set, for commands that need only part of
	// the configuration.
	Check func(*Config) error
}

// envKeys maps the environment variables Load reads to config keys.
var envKeys = map[string]string{
	EnvDatabaseURL: "database.url",
	EnvTokenSecret: "token.secret",
}

// envKey keeps the non-empty variables listed in envKeys.
func envKey(name, value string) (string, any) {
	key, ok := envKeys[name]
	if !ok || value == "" {
		return "", nil
	}
	return key, value
}

// Load builds and validates a Config. Sources apply in order: defaults,
// environment, the YAML file, then flags the user changed.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "environment").Wrap(err)
	}

	if opts.Path != "" {
		if err := k.Load(file.Provider(opts.Path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", opts.Path).
				Wrap(err)
		}
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	// SQLite without a path uses the per-user data directory.
	if cfg.Database.Driver == DriverSQLite && cfg.Database.URL == "" {
		if path, err := xdg.SQLitePath(); err == nil {
			cfg.Database.URL = path
		}
	}

	check := (*Config).Validate
	if opts.Check != nil {
		check = opts.Check
	}
	if err := check(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf(format, args...)
}

// ValidateDatabase checks the database section only.
func (c *Config) ValidateDatabase() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return invalid("database.driver", "database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Database.URL == "" {
		return invalid("database.url", "database.url is required (or set %s)", EnvDatabaseURL)
	}
	if c.Database.MaxConns < 0 {
		return invalid("database.max_conns", "database.max_conns cannot be negative")
	}
	return nil
}

// ValidateToken checks the token section only.
func (c *Config) ValidateToken() error {
	if c.Token.Secret == "" {
		return invalid("token.secret", "token.secret is required (or set %s)", EnvTokenSecret)
	}
	if c.Token.TTL <= 0 {
		return invalid("token.ttl", "token.ttl must be positive, got %s", c.Token.TTL)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("server.port", "server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if err := c.ValidateDatabase(); err != nil {
		return err
	}
	if err := c.ValidateToken(); err != nil {
		return err
	}
	if c.Game.Host == "" {
		return invalid("game.host", "game.host is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return invalid("log.format", "log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if c.Hashing.Cost < bcrypt.MinCost || c.Hashing.Cost > bcrypt.MaxCost {
		return invalid("hashing.cost", "hashing.cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Hashing.Cost)
	}
	if c.Hashing.Concurrency < 0 {
		return invalid("hashing.concurrency", "hashing.concurrency cannot be negative")
	}
	if c.Update.BaseDelay <= 0 {
		return invalid("update.base_delay", "update.base_delay must be positive, got %s", c.Update.BaseDelay)
	}
	return nil
}
