// ABOUTME: Configuration loading and parsing for the ATMS console client
// ABOUTME: Supports YAML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaseURL is the development fallback when no API URL is configured.
const DefaultBaseURL = "http://localhost:8001/api/v1"

// Config represents the complete atms-console configuration
type Config struct {
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	Keystore KeystoreConfig `yaml:"keystore"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// APIConfig holds the remote API endpoint configuration
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// AuthConfig holds token lifecycle configuration
type AuthConfig struct {
	RefreshThreshold time.Duration `yaml:"-"`
	RefreshInterval  time.Duration `yaml:"-"`

	// Raw string values for YAML unmarshaling
	RefreshThresholdRaw string `yaml:"refresh_threshold"`
	RefreshIntervalRaw  string `yaml:"refresh_interval"`
}

// KeystoreConfig holds the durable session store configuration
type KeystoreConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no config file is given.
// The API base URL comes from ATMS_API_URL when set, falling back to the
// local development server.
func Default() *Config {
	baseURL := os.Getenv("ATMS_API_URL")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Config{
		API: APIConfig{BaseURL: baseURL},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = Default().API.BaseURL
	}

	// Parse duration fields
	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url must use http or https scheme")
	}

	if c.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}
	if c.Auth.RefreshThreshold < 0 {
		return fmt.Errorf("auth.refresh_threshold must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.API.TimeoutRaw != "" {
		cfg.API.Timeout, err = time.ParseDuration(cfg.API.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing timeout %q: %w", cfg.API.TimeoutRaw, err)
		}
	}

	if cfg.Auth.RefreshThresholdRaw != "" {
		cfg.Auth.RefreshThreshold, err = time.ParseDuration(cfg.Auth.RefreshThresholdRaw)
		if err != nil {
			return fmt.Errorf("parsing refresh_threshold %q: %w", cfg.Auth.RefreshThresholdRaw, err)
		}
	}

	if cfg.Auth.RefreshIntervalRaw != "" {
		cfg.Auth.RefreshInterval, err = time.ParseDuration(cfg.Auth.RefreshIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing refresh_interval %q: %w", cfg.Auth.RefreshIntervalRaw, err)
		}
	}

	return nil
}
