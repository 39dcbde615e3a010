package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where commands look for drey.yml unless --config says otherwise.
const DefaultPath = "drey.yml"

// DefaultRedisURL is used when the mirror section leaves redis_url empty.
const DefaultRedisURL = "redis://localhost:6379"

var mirrorNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// DreyConfig represents the top-level drey.yml configuration
type DreyConfig struct {
	Version string         `yaml:"version"`
	Mirror  *MirrorConfig  `yaml:"mirror,omitempty"`
	Logging *LoggingConfig `yaml:"logging,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`
}

// MirrorConfig specifies the Redis mirror that applied changes are replicated to
type MirrorConfig struct {
	Name     string `yaml:"name"`                // Namespace for keys and channels
	RedisURL string `yaml:"redis_url,omitempty"` // Default: redis://localhost:6379
}

// LoggingConfig specifies log output
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error (default: info)
	Format string `yaml:"format,omitempty"` // console or json (default: console)
}

// MetricsConfig specifies where patch metrics are written
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"` // Prometheus textfile collector output
}

// Default returns the configuration used when no drey.yml exists.
func Default() *DreyConfig {
	cfg := &DreyConfig{Version: "1.0"}
	// Defaults always validate
	_ = cfg.Validate()
	return cfg
}

// Validate performs strict validation on the configuration and fills in defaults
func (c *DreyConfig) Validate() error {
	// Required: version
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}

	if c.Mirror != nil {
		if err := c.Mirror.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the logging section and applies defaults
func (l *LoggingConfig) Validate() error {
	if l.Level == "" {
		l.Level = "info"
	}
	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: invalid level: %s (must be 'debug', 'info', 'warn', or 'error')", l.Level)
	}

	if l.Format == "" {
		l.Format = "console"
	}
	if l.Format != "console" && l.Format != "json" {
		return fmt.Errorf("logging: invalid format: %s (must be 'console' or 'json')", l.Format)
	}

	return nil
}

// Validate checks the mirror section and applies defaults
func (m *MirrorConfig) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("mirror: name is required")
	}
	if !mirrorNamePattern.MatchString(m.Name) {
		return fmt.Errorf("mirror: invalid name '%s' (lowercase letters, digits and '-' only)", m.Name)
	}

	if m.RedisURL == "" {
		m.RedisURL = DefaultRedisURL
	}
	if _, err := redis.ParseURL(m.RedisURL); err != nil {
		return fmt.Errorf("mirror: invalid redis_url: %w", err)
	}

	return nil
}

// RedisOptions returns connection options for the configured Redis server
func (m *MirrorConfig) RedisOptions() (*redis.Options, error) {
	return redis.ParseURL(m.RedisURL)
}

// Load reads and validates drey.yml from the specified path
func Load(path string) (*DreyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config DreyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault is like Load but returns Default() when path does not exist.
func LoadOrDefault(path string) (*DreyConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}
