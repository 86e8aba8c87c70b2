package observation

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultNamespace is the Prometheus namespace of the tracker metrics.
	DefaultNamespace = "observation"

	tracerName = "github.com/AnatoleLucet/observation"
)

// Config configures a Tracker.
type Config struct {
	// Logger receives session logs. When nil, slog.Default() is used at log time.
	Logger *slog.Logger

	// Tracer creates the install and fire spans.
	Tracer trace.Tracer

	// Registerer receives the tracker metrics. When nil the metrics are kept
	// but not exported.
	Registerer prometheus.Registerer

	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels

	// OnRegistrationError is called with a *RegistrationError for each subject
	// whose registration failed. The session continues without that subject.
	OnRegistrationError func(error)
}

// DefaultConfig returns the configuration used when no option is given.
func DefaultConfig() Config {
	return Config{
		Tracer:    otel.Tracer(tracerName),
		Namespace: DefaultNamespace,
	}
}

// Option mutates a Config during NewTracker.
type Option func(*Config)

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTracer sets the tracer. A nil tracer resets to the global provider's.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Config) {
		if tracer == nil {
			tracer = otel.Tracer(tracerName)
		}
		c.Tracer = tracer
	}
}

// WithRegisterer registers the tracker metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registerer = reg
	}
}

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels on every metric.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithRegistrationErrorHandler sets Config.OnRegistrationError.
func WithRegistrationErrorHandler(fn func(error)) Option {
	return func(c *Config) {
		c.OnRegistrationError = fn
	}
}
