package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AdamHev/Object-Detection-Bakery/internal/logging"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

type Config struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Relay   ports.Policy   `yaml:"relay"`
	Archive ArchiveConfig  `yaml:"archive"`
	Log     logging.Config `yaml:"log"`
}

type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	GinMode           string        `yaml:"gin_mode"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// ArchiveConfig enables the write-only confirmation archive when ConnString is set.
type ArchiveConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

const defaultMaxSubscribers = 1024

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{
		Relay: ports.Policy{MaxSubscribers: defaultMaxSubscribers},
		Log:   logging.Config{JSON: true},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads YAML from path. An empty path yields Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Decode over the defaults so keys that are present, including an
	// explicit max_subscribers: 0, win over them.
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":3000"
	}
	if c.HTTP.ReadHeaderTimeout == 0 {
		c.HTTP.ReadHeaderTimeout = 5 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if c.HTTP.MaxBodyBytes == 0 {
		c.HTTP.MaxBodyBytes = 64 << 10
	}
	if c.HTTP.GinMode == "" {
		c.HTTP.GinMode = "release"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}
	if c.Relay.SubscriberBuffer == 0 {
		c.Relay.SubscriberBuffer = 16
	}
	if c.Relay.KeepAliveInterval == 0 {
		c.Relay.KeepAliveInterval = 15 * time.Second
	}
	if c.Relay.MaxInitials == 0 {
		c.Relay.MaxInitials = 5
	}
	if c.Archive.Table == "" {
		c.Archive.Table = "confirmations"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Normalize applies defaults to unset fields and validates the result.
// Relay.MaxSubscribers is left alone since 0 means unbounded.
func (c *Config) Normalize() error {
	c.applyDefaults()
	return c.Validate()
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Relay.MaxSubscribers < 0 {
		return fmt.Errorf("relay.max_subscribers must be >= 0 (0 means unbounded)")
	}
	if c.Relay.SubscriberBuffer < 1 {
		return fmt.Errorf("relay.subscriber_buffer must be > 0")
	}
	if c.Relay.KeepAliveInterval < 0 {
		return fmt.Errorf("relay.keepalive_interval must be >= 0")
	}
	if c.Relay.MaxInitials < 1 {
		return fmt.Errorf("relay.max_initials must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	switch c.HTTP.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("http.gin_mode must be debug, release or test")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}
