package internal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstallerConfig holds the ambient dependencies shared by every session.
type InstallerConfig struct {
	// Logger defaults to slog.Default() when nil.
	Logger  *slog.Logger
	Metrics *Metrics
	Tracer  trace.Tracer

	// OnRegistrationError, if set, is called for each subject whose registration failed.
	OnRegistrationError func(error)
}

// Installer turns captured AccessLists into self-retiring sessions.
type Installer struct {
	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer

	onRegistrationError func(error)
}

func NewInstaller(cfg InstallerConfig) *Installer {
	return &Installer{
		logger:              cfg.Logger,
		metrics:             cfg.Metrics,
		tracer:              cfg.Tracer,
		onRegistrationError: cfg.OnRegistrationError,
	}
}

func (in *Installer) log() *slog.Logger {
	if in.logger != nil {
		return in.logger
	}
	return slog.Default()
}

type registration struct {
	subject Subject
	token   Token
}

type session struct {
	id       string
	in       *Installer
	logger   *slog.Logger
	onChange func()

	// span context of the install span, linked from the fire span
	installSpan trace.SpanContext

	fired atomic.Bool

	mu            sync.Mutex
	drained       bool
	registrations map[SubjectID]registration
}

// Run records the reads made by fn on the current goroutine and installs a
// session on them once fn returns, even if it panics.
func (in *Installer) Run(fn func() error, onChange func()) error {
	h := Activate()
	defer func() {
		in.Install(Deactivate(h), onChange)
	}()

	return fn()
}

// Install registers a single shared fire-once callback on every subject in list.
// An empty list installs nothing.
func (in *Installer) Install(list *AccessList, onChange func()) {
	if list.Empty() {
		in.metrics.sessionsEmpty.Inc()
		return
	}

	if onChange == nil {
		onChange = func() {}
	}

	s := &session{
		id:       uuid.Must(uuid.NewV7()).String(),
		in:       in,
		onChange: onChange,
	}
	s.logger = in.log().With("session", s.id)

	_, span := in.tracer.Start(context.Background(), "observation.install",
		trace.WithAttributes(
			attribute.String("observation.session", s.id),
			attribute.Int("observation.subjects", list.Len()),
			attribute.Int("observation.keys", list.KeyCount()),
		),
	)
	defer span.End()
	s.installSpan = span.SpanContext()

	in.metrics.sessionsInstalled.Inc()
	in.metrics.sessionsPending.Inc()

	regs := make(map[SubjectID]registration, list.Len())
	failures := 0

	for entry := range list.Entries() {
		// already fired, the remaining subjects would only be swept again
		if s.fired.Load() {
			break
		}

		id := entry.Subject.SubjectID()

		token, err := register(entry, s.fire)
		if err != nil {
			failures++
			s.registrationFailed(span, &RegistrationError{Subject: id, Err: err})
			continue
		}

		regs[id] = registration{subject: entry.Subject, token: token}
	}

	in.metrics.registrations.Add(float64(len(regs)))
	span.SetAttributes(
		attribute.Int("observation.registrations", len(regs)),
		attribute.Int("observation.failures", failures),
	)

	if len(regs) == 0 && !s.fired.Load() {
		// nothing can ever fire this session
		in.metrics.sessionsPending.Dec()
		span.SetStatus(codes.Error, "no subject registered")
		s.logger.Debug("session dropped", "failures", failures)
		return
	}

	s.publish(regs)

	s.logger.Debug("session installed",
		"subjects", list.Len(),
		"registrations", len(regs),
		"failures", failures,
	)
}

func register(entry *AccessEntry, fire func()) (token Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return entry.Subject.RegisterOneShot(entry.Keys.Clone(), fire)
}

func (s *session) registrationFailed(span trace.Span, err *RegistrationError) {
	s.in.metrics.registrationFailures.Inc()
	span.RecordError(err)
	s.logger.Warn("registration failed", "subject", uint64(err.Subject), "error", err.Err)

	if s.in.onRegistrationError != nil {
		s.in.onRegistrationError(err)
	}
}

// publish stores every registration under one lock acquisition. If the session
// fired before that, the tokens it could not see are unregistered here instead.
func (s *session) publish(regs map[SubjectID]registration) {
	s.mu.Lock()
	if !s.drained {
		s.registrations = regs
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	unregisterAll(regs)

	s.in.metrics.sweptTokens.Add(float64(len(regs)))
	s.logger.Debug("session swept after fire", "tokens", len(regs))
}

// fire is the callback shared by every subject of the session.
func (s *session) fire() {
	if !s.fired.CompareAndSwap(false, true) {
		return
	}

	_, span := s.in.tracer.Start(context.Background(), "observation.fire",
		trace.WithLinks(trace.Link{SpanContext: s.installSpan}),
		trace.WithAttributes(attribute.String("observation.session", s.id)),
	)
	defer span.End()

	s.in.metrics.sessionsFired.Inc()
	s.in.metrics.sessionsPending.Dec()

	defer s.drain(span)

	s.onChange()
}

func (s *session) drain(span trace.Span) {
	s.mu.Lock()
	s.drained = true
	regs := s.registrations
	s.registrations = nil
	s.mu.Unlock()

	unregisterAll(regs)

	span.SetAttributes(attribute.Int("observation.unregistered", len(regs)))
	s.logger.Debug("session fired", "unregistered", len(regs))
}

func unregisterAll(regs map[SubjectID]registration) {
	for _, r := range regs {
		r.subject.Unregister(r.token)
	}
}
