package observation

import (
	"sync/atomic"

	"github.com/AnatoleLucet/observation/internal"
)

// Tracker runs tracked computations and installs their change notifications.
// It carries the logger, tracer and metrics sessions report to.
// A Tracker is safe for concurrent use.
type Tracker struct {
	installer *internal.Installer
}

// NewTracker creates a Tracker configured by opts.
// Metrics are only exported when WithRegisterer is given; registering two
// trackers with the same namespace on one registerer panics.
func NewTracker(opts ...Option) *Tracker {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	metrics := internal.NewMetrics(internal.MetricsConfig{
		Namespace:   cfg.Namespace,
		Subsystem:   cfg.Subsystem,
		ConstLabels: cfg.ConstLabels,
		Registerer:  cfg.Registerer,
	})

	return &Tracker{
		installer: internal.NewInstaller(internal.InstallerConfig{
			Logger:              cfg.Logger,
			Metrics:             metrics,
			Tracer:              cfg.Tracer,
			OnRegistrationError: cfg.OnRegistrationError,
		}),
	}
}

// Run executes fn on the current goroutine and calls onChange the first time a
// property read by fn changes. If fn panics, the reads made so far are still
// tracked and the panic continues unchanged.
func (t *Tracker) Run(fn func(), onChange func()) {
	_ = t.installer.Run(func() error {
		fn()
		return nil
	}, onChange)
}

// RunErr is Run for computations that can fail. The error is returned unchanged.
func (t *Tracker) RunErr(fn func() error, onChange func()) error {
	return t.installer.Run(fn, onChange)
}

// Install arranges for onChange to run the first time a property in list changes.
// A nil or empty list installs nothing.
func (t *Tracker) Install(list *AccessList, onChange func()) {
	t.installer.Install(list, onChange)
}

var defaultTracker atomic.Pointer[Tracker]

func init() {
	defaultTracker.Store(NewTracker())
}

// Default returns the tracker used by the package-level functions.
func Default() *Tracker {
	return defaultTracker.Load()
}

// SetDefault makes t the tracker used by the package-level functions.
// A nil t is ignored.
func SetDefault(t *Tracker) {
	if t != nil {
		defaultTracker.Store(t)
	}
}
