// Package atexit provides a process-wide registry of callbacks that run in
// last-registered-first-run order during orderly shutdown.
//
// Callbacks never run on abnormal termination. A process that wants its
// registered singletons torn down calls ProcessCallbacksNow (or Run, which
// waits for a termination signal first) on the way out of main:
//
//	func main() {
//	    defer atexit.Default().ProcessCallbacksNow()
//	    ...
//	}
package atexit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

type Callback func()

// CallbackHook observes every callback executed by ProcessCallbacksNow.
type CallbackHook func(name string, duration time.Duration, err error)

type task struct {
	name string
	fn   Callback
}

type Manager struct {
	mu         sync.Mutex
	stack      []task
	processing bool
	logger     *slog.Logger
	observers  []CallbackHook
}

type Option func(*Manager)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

func WithCallbackObserver(hook CallbackHook) Option {
	return func(m *Manager) {
		m.observers = append(m.observers, hook)
	}
}

func New(opts ...Option) *Manager {
	m := &Manager{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) RegisterCallback(fn func()) {
	m.RegisterTask("", fn)
}

// RegisterTask registers fn under a name used in logs and observer calls.
func (m *Manager) RegisterTask(name string, fn func()) {
	if fn == nil {
		return
	}

	m.mu.Lock()
	if name == "" {
		name = fmt.Sprintf("callback-%d", len(m.stack))
	}
	m.stack = append(m.stack, task{name: name, fn: fn})
	m.mu.Unlock()

	m.logger.Debug("registered exit callback", "callback", name)
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.stack)
}

// ProcessCallbacksNow runs and removes every registered callback, newest
// first. Callbacks registered by a running callback are processed in the
// same call. A panicking callback is recovered and reported in the returned
// error; the remaining callbacks still run.
func (m *Manager) ProcessCallbacksNow() error {
	m.mu.Lock()
	if m.processing {
		m.mu.Unlock()
		return errors.New("atexit: callbacks already being processed")
	}
	m.processing = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.processing = false
		m.mu.Unlock()
	}()

	var errs []error
	for {
		m.mu.Lock()
		if len(m.stack) == 0 {
			m.mu.Unlock()
			break
		}
		t := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]
		m.mu.Unlock()

		if err := m.run(t); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m *Manager) run(t task) (err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("exit callback %s panicked: %v", t.name, r)
			m.logger.Error("exit callback panicked", "callback", t.name, "panic", r)
		}
		m.callObservers(t.name, time.Since(start), err)
	}()

	m.logger.Debug("running exit callback", "callback", t.name)
	t.fn()
	return nil
}

func (m *Manager) callObservers(name string, duration time.Duration, err error) {
	for _, hook := range m.observers {
		hook(name, duration, err)
	}
}

// Run blocks until ctx is done or the process receives SIGINT or SIGTERM,
// then processes all callbacks.
func (m *Manager) Run(ctx context.Context) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case sig := <-quit:
		m.logger.Info("received shutdown signal", "signal", sig.String())
	}

	signal.Stop(quit)

	return m.ProcessCallbacksNow()
}

var (
	defaultMu      sync.RWMutex
	defaultManager = New()
)

// Default returns the process-wide manager.
func Default() *Manager {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	return defaultManager
}

// SetDefault replaces the process-wide manager and returns the previous one.
// Tests use it to shadow the real registry.
func SetDefault(m *Manager) *Manager {
	if m == nil {
		m = New()
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()

	prev := defaultManager
	defaultManager = m
	return prev
}

func RegisterCallback(fn func()) {
	Default().RegisterCallback(fn)
}

func ProcessCallbacksNow() error {
	return Default().ProcessCallbacksNow()
}
