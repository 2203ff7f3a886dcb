package bakery

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	base "github.com/AdamHev/Object-Detection-Bakery/pkg/bakery"
)

// Re-exported errors for convenience.
var (
	ErrValidation = base.ErrValidation
	ErrNotFound   = base.ErrNotFound
)

// Type aliases so consumers can import github.com/AdamHev/Object-Detection-Bakery directly.
type (
	Config              = base.Config
	Policy              = base.Policy
	HTTPConfig          = base.HTTPConfig
	MetricsConfig       = base.MetricsConfig
	ArchiveConfig       = base.ArchiveConfig
	LogConfig           = base.LogConfig
	Runtime             = base.Runtime
	RuntimeOption       = base.RuntimeOption
	DetectionRecord     = base.DetectionRecord
	Timestamp           = base.Timestamp
	ConfirmationRecord  = base.ConfirmationRecord
	ValidationError     = base.ValidationError
	StateStore          = base.StateStore
	SubscriberRegistry  = base.SubscriberRegistry
	Sender              = base.Sender
	SubscriberID        = base.SubscriberID
	ConfirmationLog     = base.ConfirmationLog
	Archiver            = base.Archiver
	ConfirmationHandler = base.ConfirmationHandler
	Observability       = base.Observability
	Field               = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

func StringTimestamp(s string) Timestamp {
	return base.StringTimestamp(s)
}

// Runtime and options.
func NewRuntime(cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(cfg, opts...)
}

// Run builds a runtime from cfg and serves until ctx is cancelled.
func Run(ctx context.Context, cfg *Config, opts ...RuntimeOption) error {
	rt, err := base.NewRuntime(cfg, opts...)
	if err != nil {
		return err
	}
	return rt.Run(ctx)
}

func WithStateStore(s StateStore) RuntimeOption {
	return base.WithStateStore(s)
}

func WithRegistry(r SubscriberRegistry) RuntimeOption {
	return base.WithRegistry(r)
}

func WithConfirmationLog(l ConfirmationLog) RuntimeOption {
	return base.WithConfirmationLog(l)
}

func WithArchiver(a Archiver) RuntimeOption {
	return base.WithArchiver(a)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithLogger(l *slog.Logger) RuntimeOption {
	return base.WithLogger(l)
}

func WithPrometheusRegistry(reg *prometheus.Registry) RuntimeOption {
	return base.WithPrometheusRegistry(reg)
}

// Archive adapters.
func NewCallbackArchiver(name string, fn ConfirmationHandler) Archiver {
	return base.NewCallbackArchiver(name, fn)
}
