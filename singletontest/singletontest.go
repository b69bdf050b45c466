// Package singletontest holds helpers for testing code built on singleton
// slots: call-counting traits, a shadow exit registry and a goroutine
// hammer that releases all callers at once.
package singletontest

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/danpasecinic/singleton"
	"github.com/danpasecinic/singleton/atexit"
)

type TB interface {
	Helper()
	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Cleanup(f func())
}

// CountingTraits wraps a constructor and counts calls to New and Delete.
// Use a pointer so the counts are shared with the slot.
type CountingTraits[T any] struct {
	NewFunc    func() T
	DeleteFunc func(T)
	AtExit     bool

	news    atomic.Int32
	deletes atomic.Int32
}

func (c *CountingTraits[T]) New() T {
	c.news.Add(1)
	return c.NewFunc()
}

func (c *CountingTraits[T]) Delete(x T) {
	c.deletes.Add(1)
	if c.DeleteFunc != nil {
		c.DeleteFunc(x)
	}
}

func (c *CountingTraits[T]) RegisterAtExit() bool {
	return c.AtExit
}

func (c *CountingTraits[T]) NewCalls() int {
	return int(c.news.Load())
}

func (c *CountingTraits[T]) DeleteCalls() int {
	return int(c.deletes.Load())
}

var _ singleton.Traits[int] = (*CountingTraits[int])(nil)

// ShadowExit installs a fresh default exit manager for the duration of the
// test and restores the previous one on cleanup. Tests using it must not
// run in parallel with other tests touching atexit.Default().
func ShadowExit(tb TB, opts ...atexit.Option) *atexit.Manager {
	tb.Helper()

	m := atexit.New(opts...)
	prev := atexit.SetDefault(m)
	tb.Cleanup(func() { atexit.SetDefault(prev) })
	return m
}

// Hammer starts n goroutines, releases them together and calls fn(i) in
// each. It fails the test with the first error returned.
func Hammer(tb TB, n int, fn func(i int) error) {
	tb.Helper()

	var g errgroup.Group
	var ready sync.WaitGroup
	gate := make(chan struct{})

	ready.Add(n)
	for i := range n {
		g.Go(
			func() error {
				ready.Done()
				<-gate
				return fn(i)
			},
		)
	}

	ready.Wait()
	close(gate)

	if err := g.Wait(); err != nil {
		tb.Fatalf("hammer: %v", err)
	}
}

func RequireCreatedOnce[T any](tb TB, traits *CountingTraits[T]) {
	tb.Helper()

	if n := traits.NewCalls(); n != 1 {
		tb.Fatalf("expected exactly one construction, got %d", n)
	}
}

func RequireState[T any](tb TB, slot *singleton.Slot[T], want singleton.State) {
	tb.Helper()

	if got := slot.State(); got != want {
		tb.Fatalf("slot %s: expected state %s, got %s", slot.Name(), want, got)
	}
}
