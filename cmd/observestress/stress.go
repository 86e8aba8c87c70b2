package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnatoleLucet/observation"
)

// Report summarizes a stress run.
type Report struct {
	Sessions    int
	Fired       int
	DoubleFires int
	Missed      int
	Leaked      int
	Elapsed     time.Duration
}

// OK reports whether every session fired exactly once and nothing leaked.
func (r *Report) OK() bool {
	return r.DoubleFires == 0 && r.Missed == 0 && r.Leaked == 0
}

func (r *Report) Write(w io.Writer) error {
	_, err := fmt.Fprintf(w,
		"sessions:      %d\nfired:         %d\ndouble fires:  %d\nmissed:        %d\nleaked:        %d\nelapsed:       %s\n",
		r.Sessions, r.Fired, r.DoubleFires, r.Missed, r.Leaked, r.Elapsed.Round(time.Millisecond),
	)
	return err
}

type subject struct {
	registrar  *observation.Registrar
	properties []*observation.Property[int]
}

// RunStress installs cfg.Sessions sessions while cfg.Writers goroutines mutate
// random properties, then mutates every property once so each session must have
// fired, and checks fire counts and outstanding registrations.
func RunStress(ctx context.Context, cfg StressConfig, tracker *observation.Tracker) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	subjects := make([]*subject, cfg.Subjects)
	for i := range subjects {
		s := &subject{registrar: observation.NewRegistrar()}
		for range cfg.Properties {
			s.properties = append(s.properties, observation.NewProperty(s.registrar, 0))
		}
		subjects[i] = s
	}

	pick := func(rng *rand.Rand) *observation.Property[int] {
		s := subjects[rng.IntN(len(subjects))]
		return s.properties[rng.IntN(len(s.properties))]
	}

	writeCtx, stopWriters := context.WithCancel(ctx)
	defer stopWriters()

	var wg sync.WaitGroup
	for w := range cfg.Writers {
		rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(w)+1))
		wg.Go(func() {
			for writeCtx.Err() == nil {
				pick(rng).Update(func(v int) int { return v + 1 })
			}
		})
	}

	fires := make([]atomic.Int64, cfg.Sessions)
	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), 0))

	for i := range cfg.Sessions {
		if err := ctx.Err(); err != nil {
			stopWriters()
			wg.Wait()
			return nil, err
		}

		tracker.Run(func() {
			for range cfg.ReadsPerSession {
				pick(rng).Get()
			}
		}, func() {
			fires[i].Add(1)
		})
	}

	stopWriters()
	wg.Wait()

	// every session read at least one property, so this fires all of them
	for _, s := range subjects {
		for _, p := range s.properties {
			p.Set(p.Peek())
		}
	}

	report := &Report{Sessions: cfg.Sessions}
	for i := range fires {
		switch n := fires[i].Load(); {
		case n == 0:
			report.Missed++
		case n == 1:
			report.Fired++
		default:
			report.Fired++
			report.DoubleFires++
		}
	}
	for _, s := range subjects {
		report.Leaked += s.registrar.Outstanding()
	}
	report.Elapsed = time.Since(start)

	return report, nil
}
