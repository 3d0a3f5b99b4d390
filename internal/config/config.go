// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads holoauth configuration from built-in defaults, an
// optional YAML file, the environment and command-line flags, in that order
// of increasing precedence.
package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/holomush/holoauth/internal/logging"
	"github.com/holomush/holoauth/internal/xdg"
)

// EnvPrefix namespaces every configuration key in the environment:
// HOLOAUTH_SERVER_ADDR sets server.addr.
const EnvPrefix = "HOLOAUTH_"

// Default values.
const (
	DefaultServerAddr      = "127.0.0.1:3000"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultConnectAttempts = 5
	DefaultLogFormat       = logging.FormatJSON
	DefaultLogLevel        = "info"
	DefaultMetricsAddr     = "127.0.0.1:9100"
)

const redacted = "[redacted]"

// Config is the complete process configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server" yaml:"server"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Auth     AuthConfig     `koanf:"auth" yaml:"auth"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
}

// ServerConfig configures the API listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" yaml:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection. AutoMigrate applies
// pending migrations when serve starts.
type DatabaseConfig struct {
	URL             string `koanf:"url" yaml:"url"`
	ConnectAttempts int    `koanf:"connect_attempts" yaml:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// AuthConfig holds the token signing secret and the hasher pool size.
// HashWorkers of zero means one worker per CPU.
type AuthConfig struct {
	JWTSecret   string `koanf:"jwt_secret" yaml:"jwt_secret"`
	HashWorkers int    `koanf:"hash_workers" yaml:"hash_workers"`
}

// LogConfig selects log output.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// MetricsConfig configures the observability listener. An empty Addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// legacyEnv maps the unprefixed variable names still accepted for
// compatibility with existing deployments.
var legacyEnv = map[string]string{
	"DATABASE_URL": "database.url",
	"JWT_SECRET":   "auth.jwt_secret",
	"SERVER_ADDR":  "server.addr",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"addr":             "server.addr",
	"shutdown-timeout": "server.shutdown_timeout",
	"database-url":     "database.url",
	"connect-attempts": "database.connect_attempts",
	"auto-migrate":     "database.auto_migrate",
	"hash-workers":     "auth.hash_workers",
	"log-format":       "log.format",
	"log-level":        "log.level",
	"metrics-addr":     "metrics.addr",
}

// mapProvider feeds a nested map into koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, oops.Errorf("map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	return m, nil
}

func defaults() mapProvider {
	return mapProvider{
		"server": map[string]any{
			"addr":             DefaultServerAddr,
			"shutdown_timeout": DefaultShutdownTimeout.String(),
		},
		"database": map[string]any{
			"url":              "",
			"connect_attempts": DefaultConnectAttempts,
			"auto_migrate":     true,
		},
		"auth": map[string]any{
			"jwt_secret":   "",
			"hash_workers": 0,
		},
		"log": map[string]any{
			"format": DefaultLogFormat,
			"level":  DefaultLogLevel,
		},
		"metrics": map[string]any{
			"addr": DefaultMetricsAddr,
		},
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Addr: DefaultServerAddr, ShutdownTimeout: DefaultShutdownTimeout},
		Database: DatabaseConfig{ConnectAttempts: DefaultConnectAttempts, AutoMigrate: true},
		Log:      LogConfig{Format: DefaultLogFormat, Level: DefaultLogLevel},
		Metrics:  MetricsConfig{Addr: DefaultMetricsAddr},
	}
}

// BindFlags registers the configuration flags on fs. Their defaults are
// informational only; a flag overrides other sources only when set.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("addr", DefaultServerAddr, "API listen address")
	fs.Duration("shutdown-timeout", DefaultShutdownTimeout, "graceful shutdown timeout")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.Int("connect-attempts", DefaultConnectAttempts, "database connection attempts at startup")
	fs.Bool("auto-migrate", true, "apply pending migrations on startup")
	fs.Int("hash-workers", 0, "password hashing workers (0 = one per CPU)")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.String("log-level", DefaultLogLevel, "log level (debug, info, warn, error)")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
}

// ResolvePath picks the config file to read: explicit when given, otherwise
// $XDG_CONFIG_HOME/holoauth/config.yaml if it exists, otherwise none ("").
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	path, exists, err := xdg.ConfigFile()
	if err != nil {
		return "", oops.Code("CONFIG_LOAD_FAILED").With("source", "xdg").Wrap(err)
	}
	if !exists {
		return "", nil
	}
	return path, nil
}

// Load builds the configuration. path may be empty, in which case no file is
// read. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(defaults(), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider("", ".", legacyEnvKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", prefixedEnvKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "unmarshal").Wrap(err)
	}
	return cfg, nil
}

func legacyEnvKey(name string) string {
	return legacyEnv[name]
}

// prefixedEnvKey turns HOLOAUTH_AUTH_JWT_SECRET into auth.jwt_secret. Only
// the first underscore after the prefix separates section from key.
func prefixedEnvKey(name string) string {
	rest := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, key, ok := strings.Cut(rest, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

func flagKey(f *pflag.Flag) (string, any) {
	key, ok := flagKeys[f.Name]
	if !ok || !f.Changed {
		return "", nil
	}
	return key, f.Value.String()
}

// Validate checks everything serve needs.
func (c *Config) Validate() error {
	problems := c.databaseProblems()

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.ShutdownTimeout <= 0 {
		problems = append(problems, "server.shutdown_timeout must be positive")
	}
	if c.Auth.JWTSecret == "" {
		problems = append(problems, "auth.jwt_secret is required (JWT_SECRET)")
	}
	if c.Auth.HashWorkers < 0 {
		problems = append(problems, "auth.hash_workers must not be negative")
	}
	if !logging.ValidFormat(c.Log.Format) {
		problems = append(problems, "log.format must be 'json' or 'text'")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		problems = append(problems, "log.level must be debug, info, warn or error")
	}

	return invalid(problems)
}

// ValidateDatabase checks only the settings needed to reach the database,
// for commands that never serve traffic.
func (c *Config) ValidateDatabase() error {
	return invalid(c.databaseProblems())
}

func (c *Config) databaseProblems() []string {
	var problems []string
	if c.Database.URL == "" {
		problems = append(problems, "database.url is required (DATABASE_URL)")
	}
	if c.Database.ConnectAttempts <= 0 {
		problems = append(problems, "database.connect_attempts must be positive")
	}
	return problems
}

func invalid(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").
		With("problems", problems).
		Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

// Redacted returns a copy safe to print: the signing secret and any
// database password are masked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Auth.JWTSecret != "" {
		out.Auth.JWTSecret = redacted
	}
	out.Database.URL = redactURL(out.Database.URL)
	return &out
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		// keyword/value DSNs may carry password=; hide the whole string
		return redacted
	}
	return u.Redacted()
}

// YAML renders the redacted configuration.
func (c *Config) YAML() ([]byte, error) {
	out, err := yamlv3.Marshal(c.Redacted())
	if err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	return out, nil
}
