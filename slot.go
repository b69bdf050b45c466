package singleton

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpasecinic/singleton/internal/reflect"
	"github.com/danpasecinic/singleton/internal/state"
	"github.com/danpasecinic/singleton/observability"
)

type State = state.State

const (
	StateUninitialized = state.Uninitialized
	StateBeingCreated  = state.BeingCreated
	StateCreated       = state.Created
	StateDestroyed     = state.Destroyed
)

// Slot holds one lazily created instance of T.
//
// The state word moves Uninitialized -> BeingCreated -> Created, each step at
// most once. value and instanceID are written only by the goroutine that won
// the BeingCreated transition, before it stores Created; readers only touch
// them after loading Created. The exit callback may later move the slot to
// Destroyed, after which Get panics.
type Slot[T any] struct {
	state      atomic.Uint32
	value      T
	instanceID string

	name   string
	traits Traits[T]
	cfg    *slotConfig
}

// New returns an uninitialized slot. It panics if traits is nil.
//
// Declare the slot as a package-level variable and read it only through one
// accessor function:
//
//	var configSlot = singleton.New[*Config](singleton.DefaultTraits[Config]{})
//
//	func GetConfig() *Config { return configSlot.Get() }
func New[T any](traits Traits[T], opts ...Option) *Slot[T] {
	cfg := defaultSlotConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	name := cfg.name
	if name == "" {
		name = reflect.TypeName[T]()
	}

	if reflect.IsNil(traits) {
		panic(errInvalidTraits(name))
	}

	cfg.policy = cfg.policy.WithDefaults()
	if err := cfg.policy.Validate(); err != nil {
		panic(errInvalidPolicy(name, err))
	}

	return &Slot[T]{
		name:   name,
		traits: traits,
		cfg:    cfg,
	}
}

// Get returns the instance, creating it on the first call from any
// goroutine. Concurrent first calls construct exactly once; the losers wait
// for the winner. Once created, Get is a single atomic load.
//
// Calling Get for the same slot from inside its own Traits.New deadlocks.
func (s *Slot[T]) Get() T {
	if state.Decode(s.state.Load()) == state.Created {
		return s.value
	}
	return s.getSlow()
}

func (s *Slot[T]) getSlow() T {
	if s.state.CompareAndSwap(state.Encode(state.Uninitialized), state.Encode(state.BeingCreated)) {
		return s.create()
	}
	return s.waitForInstance()
}

func (s *Slot[T]) create() T {
	start := time.Now()
	_, span := s.cfg.spans.StartCreateSpan(context.Background(), s.name)

	value := s.construct(span)
	id := uuid.NewString()

	s.value = value
	s.instanceID = id
	s.state.Store(state.Encode(state.Created))

	duration := time.Since(start)
	s.cfg.spans.EndSpan(span, id, nil)

	if s.traits.RegisterAtExit() && !reflect.IsNil(value) {
		register(s.cfg.exit, s.name, s.onExit)
	}

	s.cfg.metrics.RecordCreate(context.Background(), s.name, duration)
	for _, hook := range s.cfg.onCreate {
		hook(s.name, duration)
	}
	observability.LogCreated(s.cfg.logger, s.name, id, duration)

	return value
}

// construct calls Traits.New. A panic is logged and re-raised; the slot is
// left in BeingCreated.
func (s *Slot[T]) construct(span trace.Span) T {
	defer func() {
		if r := recover(); r != nil {
			observability.LogConstructorPanic(s.cfg.logger, s.name, r)
			s.cfg.spans.EndSpan(span, "", errConstructorPanicked(s.name, r))
			panic(r)
		}
	}()

	return s.traits.New()
}

// onExit runs once, single-threaded, from the exit registry.
func (s *Slot[T]) onExit() {
	if !s.state.CompareAndSwap(state.Encode(state.Created), state.Encode(state.Destroyed)) {
		return
	}

	value := s.value
	var zero T
	s.value = zero

	s.traits.Delete(value)

	s.cfg.metrics.RecordDestroy(context.Background(), s.name)
	for _, hook := range s.cfg.onDestroy {
		hook(s.name)
	}
	observability.LogDestroyed(s.cfg.logger, s.name, s.instanceID)
}

func (s *Slot[T]) State() State {
	return state.Decode(s.state.Load())
}

func (s *Slot[T]) Created() bool {
	return s.State() == state.Created
}

// Peek returns the instance if it has been created, without creating or
// waiting for it.
func (s *Slot[T]) Peek() (T, bool) {
	if s.State().Readable() {
		return s.value, true
	}
	var zero T
	return zero, false
}

func (s *Slot[T]) Name() string {
	return s.name
}

// InstanceID returns the identifier assigned to the instance at creation,
// or "" before that.
func (s *Slot[T]) InstanceID() string {
	if st := s.State(); st == state.Created || st == state.Destroyed {
		return s.instanceID
	}
	return ""
}
