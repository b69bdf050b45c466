package singleton

import (
	"context"
	"time"

	"github.com/danpasecinic/singleton/internal/backoff"
	"github.com/danpasecinic/singleton/internal/state"
	"github.com/danpasecinic/singleton/observability"
)

// waitForInstance blocks until the slot leaves BeingCreated and returns the
// published value. It never gives up: a creator that never finishes leaves
// its waiters asleep in the backoff loop.
func (s *Slot[T]) waitForInstance() T {
	var b *backoff.Backoff
	var start time.Time

	st := state.Decode(s.state.Load())
	for !st.Settled() {
		if b == nil {
			b = backoff.New(s.cfg.policy)
			start = time.Now()
		}
		b.Wait()
		st = state.Decode(s.state.Load())
	}

	if b != nil {
		s.recordWait(time.Since(start), b.Iterations())
	}

	if st == state.Destroyed {
		panic(errAccessAfterExit(s.name))
	}
	return s.value
}

func (s *Slot[T]) recordWait(duration time.Duration, iterations int) {
	s.cfg.metrics.RecordWait(context.Background(), s.name, duration, iterations)
	for _, hook := range s.cfg.onWait {
		hook(s.name, duration, iterations)
	}
	observability.LogWaited(s.cfg.logger, s.name, duration, iterations)
}
