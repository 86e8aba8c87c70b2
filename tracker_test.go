package observation

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// refusingSubject fails every registration.
type refusingSubject struct {
	id     SubjectID
	err    error
	panics bool
}

func newRefusingSubject(err error) *refusingSubject {
	return &refusingSubject{id: NewSubjectID(), err: err}
}

func (s *refusingSubject) SubjectID() SubjectID { return s.id }

func (s *refusingSubject) RegisterOneShot(KeySet, func()) (Token, error) {
	if s.panics {
		panic("nope")
	}
	return 0, s.err
}

func (s *refusingSubject) Unregister(Token) {}

// eagerSubject fires a registration as soon as it is made.
type eagerSubject struct {
	*Registrar
}

func (s *eagerSubject) RegisterOneShot(keys KeySet, fire func()) (Token, error) {
	token, err := s.Registrar.RegisterOneShot(keys, fire)
	if err == nil {
		fire()
	}
	return token, err
}

func TestRegistrationFailure(t *testing.T) {
	errRefused := errors.New("refused")

	t.Run("other subjects still fire", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		var failures []error
		tracker := quietTracker(
			WithRegisterer(reg),
			WithRegistrationErrorHandler(func(err error) { failures = append(failures, err) }),
		)

		refusing := newRefusingSubject(errRefused)
		healthy := NewRegistrar()
		a := NewProperty(healthy, 0)
		calls := 0

		tracker.Run(func() {
			RecordRead(refusing, 1)
			a.Get()
		}, func() { calls++ })

		require.Len(t, failures, 1)
		assert.True(t, IsRegistrationError(failures[0]))
		assert.ErrorIs(t, failures[0], errRefused)

		var regErr *RegistrationError
		require.ErrorAs(t, failures[0], &regErr)
		assert.Equal(t, refusing.SubjectID(), regErr.Subject)

		a.Set(1)
		assert.Equal(t, 1, calls)
		assert.Equal(t, 1.0, metricValue(t, reg, "observation_registration_failures_total"))
		assert.Equal(t, 1.0, metricValue(t, reg, "observation_registrations_total"))
		assert.Equal(t, 0.0, metricValue(t, reg, "observation_sessions_pending"))
	})

	t.Run("panicking registration becomes an error", func(t *testing.T) {
		var failures []error
		tracker := quietTracker(
			WithRegistrationErrorHandler(func(err error) { failures = append(failures, err) }),
		)

		refusing := newRefusingSubject(nil)
		refusing.panics = true

		assert.NotPanics(t, func() {
			tracker.Run(func() { RecordRead(refusing, 1) }, nil)
		})

		require.Len(t, failures, 1)
		assert.Contains(t, failures[0].Error(), "panic: nope")
	})

	t.Run("session with no registration is dropped", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		tracker := quietTracker(WithRegisterer(reg))

		tracker.Run(func() {
			RecordRead(newRefusingSubject(errRefused), 1)
			RecordRead(newRefusingSubject(errRefused), 2)
		}, func() { t.Fatal("fired") })

		assert.Equal(t, 1.0, metricValue(t, reg, "observation_sessions_installed_total"))
		assert.Equal(t, 2.0, metricValue(t, reg, "observation_registration_failures_total"))
		assert.Equal(t, 0.0, metricValue(t, reg, "observation_sessions_pending"))
	})

	t.Run("closed registrar", func(t *testing.T) {
		var failures []error
		tracker := quietTracker(
			WithRegistrationErrorHandler(func(err error) { failures = append(failures, err) }),
		)

		r := NewRegistrar()
		a := NewProperty(r, 0)
		r.Close()

		tracker.Run(func() { a.Get() }, nil)

		require.Len(t, failures, 1)
		assert.ErrorIs(t, failures[0], ErrRegistrarClosed)
	})
}

func TestFireDuringInstall(t *testing.T) {
	t.Run("tokens registered before the fire are swept", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		tracker := quietTracker(WithRegisterer(reg))

		normal := NewRegistrar()
		a := NewProperty(normal, 0)
		eager := &eagerSubject{NewRegistrar()}
		calls := 0

		tracker.Run(func() {
			a.Get()
			RecordRead(eager, 1)
		}, func() { calls++ })

		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, normal.Outstanding())
		assert.Equal(t, 0, eager.Outstanding())
		assert.Equal(t, 2.0, metricValue(t, reg, "observation_swept_tokens_total"))
		assert.Equal(t, 0.0, metricValue(t, reg, "observation_sessions_pending"))

		a.Set(1)
		assert.Equal(t, 1, calls)
	})

	t.Run("later subjects are skipped", func(t *testing.T) {
		tracker := quietTracker()

		eager := &eagerSubject{NewRegistrar()}
		normal := NewRegistrar()
		a := NewProperty(normal, 0)
		calls := 0

		tracker.Run(func() {
			RecordRead(eager, 1)
			a.Get()
		}, func() { calls++ })

		assert.Equal(t, 1, calls)
		assert.Equal(t, 0, normal.Outstanding())
		assert.Equal(t, 0, eager.Outstanding())
	})
}

func TestPanickingCallback(t *testing.T) {
	tracker := quietTracker()
	r := NewRegistrar()
	a := NewProperty(r, 0)
	b := NewProperty(r, 0)

	tracker.Run(func() {
		a.Get()
		b.Get()
	}, func() { panic("callback") })

	assert.PanicsWithValue(t, "callback", func() { a.Set(1) })
	assert.Equal(t, 0, r.Outstanding())
	assert.NotPanics(t, func() { b.Set(1) })
}

func TestConcurrentMutation(t *testing.T) {
	tracker := quietTracker()

	for range 200 {
		regs := make([]*Registrar, 8)
		props := make([]*Property[int], 0, 16)
		for i := range regs {
			regs[i] = NewRegistrar()
			props = append(props, NewProperty(regs[i], 0), NewProperty(regs[i], 0))
		}

		var calls atomic.Int64
		start := make(chan struct{})

		var wg sync.WaitGroup
		for w := range 4 {
			wg.Go(func() {
				<-start
				for j := range 20 {
					props[(w*5+j)%len(props)].Update(func(v int) int { return v + 1 })
				}
			})
		}

		tracker.Run(func() {
			for _, p := range props {
				p.Get()
			}
			// writers race with the install below
			close(start)
		}, func() { calls.Add(1) })

		wg.Wait()
		for _, p := range props {
			p.Set(0)
		}

		require.Equal(t, int64(1), calls.Load())
		for _, r := range regs {
			require.Equal(t, 0, r.Outstanding())
		}
	}
}

func TestConcurrentSessions(t *testing.T) {
	tracker := quietTracker()
	shared := NewRegistrar()
	props := []*Property[int]{NewProperty(shared, 0), NewProperty(shared, 0), NewProperty(shared, 0)}

	const sessions = 64
	var fired [sessions]atomic.Int64

	var wg sync.WaitGroup
	for i := range sessions {
		wg.Go(func() {
			own := NewRegistrar()
			mine := NewProperty(own, 0)

			tracker.Run(func() {
				props[i%len(props)].Get()
				mine.Get()
			}, func() { fired[i].Add(1) })

			_, list := Capture(mine.Get)
			assert.Equal(t, []SubjectID{own.SubjectID()}, list.Subjects())
		})
	}
	wg.Wait()

	for _, p := range props {
		p.Set(1)
	}

	for i := range fired {
		assert.Equal(t, int64(1), fired[i].Load(), "session %d", i)
	}
	assert.Equal(t, 0, shared.Outstanding())
}
