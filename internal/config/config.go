package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the storefront search API configuration.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Backend     BackendConfig     `yaml:"backend"`
	Database    DatabaseConfig    `yaml:"database"`
	Cache       CacheConfig       `yaml:"cache"`
	Geo         GeoConfig         `yaml:"geo"`
	Session     SessionConfig     `yaml:"session"`
	Tracking    TrackingConfig    `yaml:"tracking"`
	Suggestions SuggestionsConfig `yaml:"suggestions"`
	Auth        AuthConfig        `yaml:"auth"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig points at the managed backend search API.
type BackendConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// DatabaseConfig holds cache database connection settings.
// Empty addrs disables every cache and uses in-process state only.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// CacheConfig holds universal search result cache settings.
type CacheConfig struct {
	ResultsTTLSec int    `yaml:"results_ttl_sec"` // 0 disables the result cache
	KeyPrefix     string `yaml:"key_prefix"`
}

// GeoConfig holds geo provider settings.
type GeoConfig struct {
	TimeoutSec     int    `yaml:"timeout_sec"`
	CacheWindowSec int    `yaml:"cache_window_sec"`
	SourceURL      string `yaml:"source_url"` // optional location collaborator
}

// SessionConfig holds search session bookkeeping settings.
type SessionConfig struct {
	IdleTTLSec int `yaml:"idle_ttl_sec"`
}

// TrackingConfig holds unavailable-product tracking settings.
type TrackingConfig struct {
	Enabled    *bool `yaml:"enabled"` // default: true
	TimeoutSec int   `yaml:"timeout_sec"`
}

// IsEnabled reports whether tracking is on (nil means on).
func (t TrackingConfig) IsEnabled() bool {
	return t.Enabled == nil || *t.Enabled
}

// SuggestionsConfig selects the did-you-mean collaborator.
type SuggestionsConfig struct {
	Provider string       `yaml:"provider"` // backend, openai, none (default: backend)
	Max      int          `yaml:"max"`
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds settings for the OpenAI-compatible suggester.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads, expands, defaults and validates a YAML config file.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.TimeoutSec <= 0 {
		c.Backend.TimeoutSec = 8
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "storefront:"
	}
	if c.Geo.TimeoutSec <= 0 {
		c.Geo.TimeoutSec = 10
	}
	if c.Geo.CacheWindowSec <= 0 {
		c.Geo.CacheWindowSec = 300
	}
	if c.Session.IdleTTLSec <= 0 {
		c.Session.IdleTTLSec = 1800
	}
	if c.Tracking.TimeoutSec <= 0 {
		c.Tracking.TimeoutSec = 5
	}
	if c.Suggestions.Provider == "" {
		c.Suggestions.Provider = "backend"
	}
	if c.Suggestions.Max <= 0 {
		c.Suggestions.Max = 5
	}
	if c.Suggestions.OpenAI.Model == "" {
		c.Suggestions.OpenAI.Model = "gpt-4o-mini"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url must be an absolute http(s) URL, got %q", c.Backend.BaseURL)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Cache.ResultsTTLSec < 0 {
		return fmt.Errorf("cache.results_ttl_sec must not be negative, got %d", c.Cache.ResultsTTLSec)
	}
	switch c.Suggestions.Provider {
	case "backend", "none":
		// ok
	case "openai":
		if c.Suggestions.OpenAI.APIKey == "" {
			return fmt.Errorf("suggestions.openai.api_key is required when suggestions.provider is \"openai\"")
		}
	default:
		return fmt.Errorf(
			"suggestions.provider must be \"backend\", \"openai\" or \"none\", got %q",
			c.Suggestions.Provider,
		)
	}
	return nil
}

// CacheEnabled reports whether a cache database is configured.
func (c *Config) CacheEnabled() bool {
	return len(c.Database.Addrs) > 0
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
