// Package config loads the sign-in server configuration from YAML with
// SIGNIN_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-signin/pkg/model"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SIGNIN_"

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	SignIn  SignInConfig  `yaml:"signin"`
	DevAPI  DevAPIConfig  `yaml:"devapi"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// APIConfig points at the verification-code API. An empty BaseURL mounts the
// development API inside the server instead.
type APIConfig struct {
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// SignInConfig tunes the sign-in page.
type SignInConfig struct {
	CountdownSeconds int           `yaml:"countdown_seconds"`
	FormSpec         string        `yaml:"form_spec"`
	ViewTTL          time.Duration `yaml:"view_ttl"`
	MaxViews         int           `yaml:"max_views"`
	Brand            string        `yaml:"brand"`
}

// DevAPIConfig configures the development API.
type DevAPIConfig struct {
	// RejectedEmails are answered with 422, as an already registered address
	// would be.
	RejectedEmails []string `yaml:"rejected_emails"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig contains Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	setDefaults(&cfg)
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references first.
func Parse(data []byte) (*Config, error) {
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// LoadFromEnv builds configuration from defaults and SIGNIN_* variables only.
func LoadFromEnv() (*Config, error) {
	cfg := Default()
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("config: env: %w", err)
	}
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback loads path when it exists and falls back to the
// environment otherwise.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// LoadFormSpec returns the configured form spec, or ok=false when the
// built-in one should be used.
func (c *Config) LoadFormSpec() (spec model.FormSpec, ok bool, err error) {
	if strings.TrimSpace(c.SignIn.FormSpec) == "" {
		return model.FormSpec{}, false, nil
	}
	spec, err = model.LoadFormSpec(c.SignIn.FormSpec)
	if err != nil {
		return model.FormSpec{}, false, fmt.Errorf("config: signin.form_spec: %w", err)
	}
	return spec, true, nil
}

// UsesDevAPI reports whether the development API should be mounted.
func (c *Config) UsesDevAPI() bool {
	return strings.TrimSpace(c.API.BaseURL) == ""
}

// applyEnvOverrides applies SIGNIN_* variables. Malformed values are
// reported together, naming the variable.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := env(key); v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		v := env(key)
		if v == "" {
			return
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = d
	}
	num := func(key string, dst *int) {
		v := env(key)
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v := env(key)
		if v == "" {
			return
		}
		b, err := parseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			return
		}
		*dst = b
	}

	str("SERVER_ADDR", &cfg.Server.Addr)
	dur("SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	dur("SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)

	str("API_BASE_URL", &cfg.API.BaseURL)
	dur("API_TIMEOUT", &cfg.API.Timeout)

	num("COUNTDOWN_SECONDS", &cfg.SignIn.CountdownSeconds)
	str("FORM_SPEC", &cfg.SignIn.FormSpec)
	dur("VIEW_TTL", &cfg.SignIn.ViewTTL)
	num("MAX_VIEWS", &cfg.SignIn.MaxViews)
	str("BRAND", &cfg.SignIn.Brand)

	if v := env("DEVAPI_REJECTED_EMAILS"); v != "" {
		cfg.DevAPI.RejectedEmails = splitList(v)
	}

	str("LOG_LEVEL", &cfg.Logging.Level)
	str("LOG_FORMAT", &cfg.Logging.Format)

	flag("METRICS_ENABLED", &cfg.Metrics.Enabled)
	str("METRICS_PATH", &cfg.Metrics.Path)

	return errors.Join(errs...)
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(EnvPrefix + key))
}

// parseBool accepts strconv.ParseBool values plus yes/no and on/off.
func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	return strconv.ParseBool(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}

	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}

	if cfg.SignIn.CountdownSeconds == 0 {
		cfg.SignIn.CountdownSeconds = model.DefaultCountdownSeconds
	}
	if cfg.SignIn.ViewTTL == 0 {
		cfg.SignIn.ViewTTL = 30 * time.Minute
	}
	if cfg.SignIn.MaxViews == 0 {
		cfg.SignIn.MaxViews = 10000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL != "" {
		u, err := url.Parse(cfg.API.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("api.base_url must be an absolute URL, got %q", cfg.API.BaseURL)
		}
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if cfg.SignIn.CountdownSeconds < 0 {
		return fmt.Errorf("signin.countdown_seconds must not be negative, got %d", cfg.SignIn.CountdownSeconds)
	}
	if cfg.SignIn.ViewTTL < 0 {
		return fmt.Errorf("signin.view_ttl must not be negative")
	}
	if cfg.SignIn.MaxViews < 0 {
		return fmt.Errorf("signin.max_views must not be negative, got %d", cfg.SignIn.MaxViews)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", cfg.Metrics.Path)
	}
	return nil
}
