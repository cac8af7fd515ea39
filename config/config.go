// Package config loads client configuration from YAML and the environment
// and serves it as a jsonapikit.Delegate.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/oueway/jsonapikit"
)

// EnvEndpoint is checked by LoadWithFallback when no file is present.
const EnvEndpoint = "JSONAPIKIT_ENDPOINT"

// Config is the root configuration.
type Config struct {
	Endpoint        string            `yaml:"endpoint"`
	Token           string            `yaml:"token,omitempty"`
	TokenFile       string            `yaml:"token_file,omitempty"`
	TokenExpiresAt  time.Time         `yaml:"token_expires_at,omitempty"`
	Timeout         time.Duration     `yaml:"timeout"`
	MaxResolveDepth int               `yaml:"max_resolve_depth"`
	Pagination      PaginationConfig  `yaml:"pagination"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	ErrorFormat     string            `yaml:"error_format"` // "jsonapi" or "plain"
	Logging         LoggingConfig     `yaml:"logging"`
	Metrics         MetricsConfig     `yaml:"metrics"`

	endpointURL *url.URL
	expiresAt   time.Time
}

// PaginationConfig names the page index and size query keys, either by
// preset ("offset", "cursor", "index", "page") or explicitly.
type PaginationConfig struct {
	Preset   string `yaml:"preset"`
	IndexKey string `yaml:"index_key,omitempty"`
	SizeKey  string `yaml:"size_key,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
	Debug  bool   `yaml:"debug"`  // request/response debug lines from the client
	Bodies bool   `yaml:"bodies"` // include bodies in debug lines
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads a YAML file, expands ${VAR} references, applies JSONAPIKIT_*
// overrides and defaults, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return finish(&cfg)
}

// LoadFromEnv builds a configuration from JSONAPIKIT_* variables alone.
func LoadFromEnv() (*Config, error) {
	return finish(&Config{})
}

// LoadWithFallback loads path when it exists, otherwise the environment.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if os.Getenv(EnvEndpoint) != "" {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide a config file or set %s", EnvEndpoint)
}

func finish(cfg *Config) (*Config, error) {
	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := resolveToken(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("JSONAPIKIT_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("JSONAPIKIT_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("JSONAPIKIT_TOKEN_EXPIRES_AT"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			cfg.TokenExpiresAt = t
		}
	}
	if v := os.Getenv("JSONAPIKIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
		}
	}
	if v := os.Getenv("JSONAPIKIT_MAX_RESOLVE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxResolveDepth = n
		}
	}
	if v := os.Getenv("JSONAPIKIT_PAGINATION"); v != "" {
		cfg.Pagination = PaginationConfig{Preset: v}
	}
	if v := os.Getenv("JSONAPIKIT_ERROR_FORMAT"); v != "" {
		cfg.ErrorFormat = v
	}

	if v := os.Getenv("JSONAPIKIT_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("JSONAPIKIT_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("JSONAPIKIT_DEBUG"); v != "" {
		cfg.Logging.Debug = parseBool(v)
	}

	if v := os.Getenv("JSONAPIKIT_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Timeout == 0 {
		cfg.Timeout = jsonapikit.DefaultTimeout
	}
	if cfg.MaxResolveDepth == 0 {
		cfg.MaxResolveDepth = jsonapikit.DefaultMaxResolveDepth
	}
	if cfg.Pagination.Preset == "" && cfg.Pagination.IndexKey == "" {
		cfg.Pagination.Preset = "offset"
	}
	if cfg.ErrorFormat == "" {
		cfg.ErrorFormat = "jsonapi"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	// Resource paths resolve relative to the endpoint, which therefore has
	// to end in a slash to keep its last segment.
	if cfg.Endpoint != "" && !strings.HasSuffix(cfg.Endpoint, "/") {
		cfg.Endpoint += "/"
	}
}

func validate(cfg *Config) error {
	if cfg.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("endpoint must be an http or https URL, got %q", cfg.Endpoint)
	}
	if u.Host == "" {
		return fmt.Errorf("endpoint has no host: %q", cfg.Endpoint)
	}
	cfg.endpointURL = u

	if cfg.Token != "" && cfg.TokenFile != "" {
		return fmt.Errorf("token and token_file are mutually exclusive")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if cfg.MaxResolveDepth < 0 {
		return fmt.Errorf("max_resolve_depth must be positive")
	}

	if !cfg.Pagination.Disabled {
		if cfg.Pagination.IndexKey != "" || cfg.Pagination.SizeKey != "" {
			if cfg.Pagination.IndexKey == "" || cfg.Pagination.SizeKey == "" {
				return fmt.Errorf("pagination needs both index_key and size_key")
			}
		} else if _, ok := jsonapikit.PaginationPreset(cfg.Pagination.Preset); !ok {
			return fmt.Errorf("unknown pagination preset %q", cfg.Pagination.Preset)
		}
	}

	switch cfg.ErrorFormat {
	case "jsonapi", "plain":
	default:
		return fmt.Errorf("error_format must be jsonapi or plain, got %q", cfg.ErrorFormat)
	}

	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", cfg.Logging.Format)
	}

	return nil
}

func resolveToken(cfg *Config) error {
	if cfg.TokenFile != "" {
		data, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return fmt.Errorf("read token file: %w", err)
		}
		cfg.Token = strings.TrimSpace(string(data))
	}

	cfg.expiresAt = cfg.TokenExpiresAt
	if cfg.expiresAt.IsZero() {
		if exp, ok := TokenExpiry(cfg.Token); ok {
			cfg.expiresAt = exp
		}
	}
	return nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// Opaque tokens and tokens without exp report false.
func TokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// EndpointURL is the parsed endpoint.
func (c *Config) EndpointURL() *url.URL {
	return c.endpointURL
}

// ExpiresAt is when the token stops being accepted, or zero if unknown.
func (c *Config) ExpiresAt() time.Time {
	return c.expiresAt
}

// PaginationParams resolves the pagination keys, or nil when disabled.
func (c *Config) PaginationParams() *jsonapikit.PaginationParams {
	if c.Pagination.Disabled {
		return nil
	}
	if c.Pagination.IndexKey != "" {
		return &jsonapikit.PaginationParams{IndexKey: c.Pagination.IndexKey, SizeKey: c.Pagination.SizeKey}
	}
	p, ok := jsonapikit.PaginationPreset(c.Pagination.Preset)
	if !ok {
		return nil
	}
	return &p
}

// ErrorDecoder returns the decoder matching error_format.
func (c *Config) ErrorDecoder() func([]byte) ([]jsonapikit.DomainError, error) {
	if c.ErrorFormat == "plain" {
		return jsonapikit.DecodePlainError
	}
	return jsonapikit.DecodeJSONAPIErrors
}

// NewLogger builds a zerolog logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.Logging.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ClientOptions translates the configuration into client options. logger
// receives the client's debug output when logging.debug is set.
func (c *Config) ClientOptions(logger zerolog.Logger) []jsonapikit.Option {
	opts := []jsonapikit.Option{
		jsonapikit.WithTimeout(c.Timeout),
		jsonapikit.WithMaxResolveDepth(c.MaxResolveDepth),
	}
	if c.Metrics.Enabled {
		opts = append(opts, jsonapikit.WithMetrics())
	}
	if c.Logging.Debug {
		debug := jsonapikit.DefaultDebugConfig()
		debug.Enabled = true
		debug.LogBodies = c.Logging.Bodies
		opts = append(opts,
			jsonapikit.WithDebugConfig(debug),
			jsonapikit.WithLogger(jsonapikit.NewZerologLogger(logger)),
		)
	}
	return opts
}
