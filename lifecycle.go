package singleton

import (
	"context"

	"github.com/danpasecinic/singleton/atexit"
)

// ExitRegistry receives the teardown callback of slots whose traits ask for
// deletion at exit. Callbacks must run last-registered-first, once, during
// orderly shutdown only.
type ExitRegistry interface {
	RegisterCallback(fn func())
}

type taskRegistry interface {
	RegisterTask(name string, fn func())
}

var _ taskRegistry = (*atexit.Manager)(nil)

func register(r ExitRegistry, name string, fn func()) {
	if r == nil {
		r = atexit.Default()
	}
	if tr, ok := r.(taskRegistry); ok {
		tr.RegisterTask(name, fn)
		return
	}
	r.RegisterCallback(fn)
}

// Shutdown destroys every instance registered with the default exit manager,
// newest first. Call it once, after all other goroutines stopped using
// singletons.
func Shutdown() error {
	return atexit.ProcessCallbacksNow()
}

// Run waits for ctx to end or for SIGINT/SIGTERM, then calls Shutdown.
func Run(ctx context.Context) error {
	return atexit.Default().Run(ctx)
}
