package internal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the session metrics.
type MetricsConfig struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels

	// Registerer receives the collectors. When nil they are created but not registered.
	Registerer prometheus.Registerer
}

// Metrics holds the Prometheus collectors updated by sessions.
type Metrics struct {
	sessionsInstalled    prometheus.Counter
	sessionsEmpty        prometheus.Counter
	sessionsFired        prometheus.Counter
	sessionsPending      prometheus.Gauge
	registrations        prometheus.Counter
	registrationFailures prometheus.Counter
	sweptTokens          prometheus.Counter
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	factory := promauto.With(cfg.Registerer)

	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		})
	}

	return &Metrics{
		sessionsInstalled: counter("sessions_installed_total",
			"Total number of tracking sessions that installed at least one registration attempt"),
		sessionsEmpty: counter("sessions_empty_total",
			"Total number of tracking sessions whose computation read no tracked property"),
		sessionsFired: counter("sessions_fired_total",
			"Total number of tracking sessions whose change callback fired"),
		sessionsPending: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "sessions_pending",
			Help:        "Number of installed sessions waiting for a change",
			ConstLabels: cfg.ConstLabels,
		}),
		registrations: counter("registrations_total",
			"Total number of one-shot registrations installed on subjects"),
		registrationFailures: counter("registration_failures_total",
			"Total number of subjects whose one-shot registration failed"),
		sweptTokens: counter("swept_tokens_total",
			"Total number of tokens unregistered after publish because the session had already fired"),
	}
}
