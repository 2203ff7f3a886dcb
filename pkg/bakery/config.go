package bakery

import (
	"github.com/AdamHev/Object-Detection-Bakery/internal/app/config"
	"github.com/AdamHev/Object-Detection-Bakery/internal/logging"
	"github.com/AdamHev/Object-Detection-Bakery/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	// Policy bounds subscribers and confirmation fields.
	Policy = ports.Policy
	// HTTPConfig configures the relay listener.
	HTTPConfig = config.HTTPConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
	// ArchiveConfig configures the optional Postgres confirmation archive.
	ArchiveConfig = config.ArchiveConfig
	// LogConfig configures structured logging.
	LogConfig = logging.Config
)

// LoadConfig loads YAML from disk. An empty path returns the defaults.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return config.Default()
}
