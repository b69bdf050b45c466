package singleton_test

import (
	"bytes"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpasecinic/singleton"
	"github.com/danpasecinic/singleton/atexit"
	"github.com/danpasecinic/singleton/singletontest"
)

type payload struct {
	Value int
	Tags  []string
	Ready bool
}

func newPayloadTraits(atExit bool) *singletontest.CountingTraits[*payload] {
	return &singletontest.CountingTraits[*payload]{
		NewFunc: func() *payload { return &payload{Value: 42, Tags: []string{"a", "b"}, Ready: true} },
		AtExit:  atExit,
	}
}

func recoverPanic(fn func()) (recovered any) {
	defer func() { recovered = recover() }()
	fn()
	return nil
}

func TestSlot_SingleGoroutineIdentity(t *testing.T) {
	t.Parallel()

	traits := newPayloadTraits(false)
	slot := singleton.New[*payload](traits)

	singletontest.RequireState(t, slot, singleton.StateUninitialized)

	first := slot.Get()
	require.NotNil(t, first)
	assert.Equal(t, 42, first.Value)

	for range 100 {
		assert.Same(t, first, slot.Get())
	}

	singletontest.RequireCreatedOnce(t, traits)
	singletontest.RequireState(t, slot, singleton.StateCreated)
}

func TestSlot_ConcurrentFirstCallsCreateOnce(t *testing.T) {
	t.Parallel()

	const n = 128

	traits := newPayloadTraits(false)
	slot := singleton.New[*payload](traits)

	results := make([]*payload, n)
	singletontest.Hammer(
		t, n, func(i int) error {
			results[i] = slot.Get()
			return nil
		},
	)

	singletontest.RequireCreatedOnce(t, traits)
	for i := range results {
		require.Same(t, results[0], results[i], "goroutine %d saw a different instance", i)
	}
}

func TestSlot_ConstructedStateIsVisible(t *testing.T) {
	t.Parallel()

	iterations := 2000
	if testing.Short() {
		iterations = 200
	}

	for range iterations {
		slot := singleton.New[*payload](
			singleton.FuncTraits[*payload]{
				NewFunc: func() *payload {
					p := &payload{}
					p.Tags = append(p.Tags, "x")
					p.Value = 42
					p.Ready = true
					return p
				},
			},
		)

		var bad atomic.Int32
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				p := slot.Get()
				if !p.Ready || p.Value != 42 || len(p.Tags) != 1 {
					bad.Add(1)
				}
			}()
		}
		wg.Wait()

		require.Zero(t, bad.Load(), "a reader observed a partially constructed instance")
	}
}

func TestSlot_ContendedSlowConstructor(t *testing.T) {
	t.Parallel()

	traits := &singletontest.CountingTraits[*payload]{
		NewFunc: func() *payload {
			time.Sleep(50 * time.Millisecond)
			return &payload{Value: 42}
		},
	}

	var waits atomic.Int32
	slot := singleton.New[*payload](
		traits,
		singleton.WithWaitObserver(func(string, time.Duration, int) { waits.Add(1) }),
	)

	var elapsed [2]time.Duration
	var got [2]*payload
	singletontest.Hammer(
		t, 2, func(i int) error {
			start := time.Now()
			got[i] = slot.Get()
			elapsed[i] = time.Since(start)
			return nil
		},
	)

	singletontest.RequireCreatedOnce(t, traits)
	assert.Equal(t, 42, got[0].Value)
	assert.Same(t, got[0], got[1])
	for i, d := range elapsed {
		assert.GreaterOrEqual(t, d, 40*time.Millisecond, "goroutine %d returned before construction finished", i)
	}
	assert.Equal(t, int32(1), waits.Load(), "exactly one goroutine should have waited")
}

func TestSlot_FastPathSkipsTraitsAndObservers(t *testing.T) {
	t.Parallel()

	traits := newPayloadTraits(false)

	var creates, waits atomic.Int32
	slot := singleton.New[*payload](
		traits,
		singleton.WithCreateObserver(func(string, time.Duration) { creates.Add(1) }),
		singleton.WithWaitObserver(func(string, time.Duration, int) { waits.Add(1) }),
	)

	want := slot.Get()

	singletontest.Hammer(
		t, 16, func(int) error {
			for range 1000 {
				if slot.Get() != want {
					t.Error("fast path returned a different instance")
				}
			}
			return nil
		},
	)

	assert.Equal(t, 1, traits.NewCalls())
	assert.Equal(t, int32(1), creates.Load())
	assert.Zero(t, waits.Load())
}

func TestSlot_WaiterBlocksUntilPublished(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	entered := make(chan struct{})

	var waitIterations atomic.Int64
	slot := singleton.New[*payload](
		singleton.FuncTraits[*payload]{
			NewFunc: func() *payload {
				close(entered)
				<-release
				return &payload{Value: 7}
			},
		},
		singleton.WithWaitPolicy(singleton.WaitPolicy{Spins: 1, Yields: 1, MinSleep: time.Microsecond, MaxSleep: time.Millisecond}),
		singleton.WithWaitObserver(
			func(_ string, _ time.Duration, iterations int) {
				waitIterations.Store(int64(iterations))
			},
		),
	)

	creator := make(chan *payload)
	go func() { creator <- slot.Get() }()
	<-entered

	singletontest.RequireState(t, slot, singleton.StateBeingCreated)

	_, ok := slot.Peek()
	assert.False(t, ok, "Peek must not return an unpublished instance")

	waiter := make(chan *payload)
	go func() { waiter <- slot.Get() }()

	select {
	case <-waiter:
		t.Fatal("waiter returned before the instance was published")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)

	created := <-creator
	waited := <-waiter
	assert.Same(t, created, waited)
	assert.Equal(t, 7, waited.Value)
	assert.Positive(t, waitIterations.Load())
}

func TestSlot_TeardownDestroysOnce(t *testing.T) {
	t.Parallel()

	exit := atexit.New()
	traits := newPayloadTraits(true)

	var destroyed atomic.Int32
	slot := singleton.New[*payload](
		traits,
		singleton.WithExitRegistry(exit),
		singleton.WithDestroyObserver(func(string) { destroyed.Add(1) }),
	)

	singletontest.Hammer(
		t, 32, func(int) error {
			slot.Get()
			return nil
		},
	)
	require.Equal(t, 1, exit.Len(), "exactly one exit callback per slot")
	assert.NotEmpty(t, slot.InstanceID())

	require.NoError(t, exit.ProcessCallbacksNow())
	require.NoError(t, exit.ProcessCallbacksNow())

	assert.Equal(t, 1, traits.DeleteCalls())
	assert.Equal(t, int32(1), destroyed.Load())
	singletontest.RequireState(t, slot, singleton.StateDestroyed)
	assert.NotEmpty(t, slot.InstanceID())

	recovered := recoverPanic(func() { slot.Get() })
	err, ok := recovered.(error)
	require.True(t, ok, "expected an error panic, got %v", recovered)
	assert.True(t, singleton.IsAccessAfterExit(err))
}

func TestSlot_TeardownDisabled(t *testing.T) {
	t.Parallel()

	exit := atexit.New()
	traits := newPayloadTraits(false)
	slot := singleton.New[*payload](traits, singleton.WithExitRegistry(exit))

	slot.Get()

	assert.Zero(t, exit.Len())
	require.NoError(t, exit.ProcessCallbacksNow())
	assert.Zero(t, traits.DeleteCalls())
	singletontest.RequireState(t, slot, singleton.StateCreated)
}

func TestSlot_NilInstanceIsNotRegistered(t *testing.T) {
	t.Parallel()

	exit := atexit.New()
	traits := &singletontest.CountingTraits[*payload]{
		NewFunc: func() *payload { return nil },
		AtExit:  true,
	}
	slot := singleton.New[*payload](traits, singleton.WithExitRegistry(exit))

	assert.Nil(t, slot.Get())
	assert.Nil(t, slot.Get())
	assert.Equal(t, 1, traits.NewCalls())
	assert.Zero(t, exit.Len())
}

func TestSlot_TeardownIsLIFO(t *testing.T) {
	t.Parallel()

	exit := atexit.New()
	var order []string

	newSlot := func(name string) *singleton.Slot[*payload] {
		return singleton.New[*payload](
			singleton.FuncTraits[*payload]{
				NewFunc:    func() *payload { return &payload{} },
				DeleteFunc: func(*payload) { order = append(order, name) },
				AtExit:     true,
			},
			singleton.WithName(name),
			singleton.WithExitRegistry(exit),
		)
	}

	first, second, third := newSlot("first"), newSlot("second"), newSlot("third")
	first.Get()
	second.Get()
	third.Get()

	require.NoError(t, exit.ProcessCallbacksNow())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestSlot_DefaultExitRegistry(t *testing.T) {
	exit := singletontest.ShadowExit(t)

	traits := newPayloadTraits(true)
	slot := singleton.New[*payload](traits)
	slot.Get()

	require.Equal(t, 1, exit.Len())
	require.NoError(t, singleton.Shutdown())
	assert.Equal(t, 1, traits.DeleteCalls())
}

type plainRegistry struct {
	callbacks []func()
}

func (r *plainRegistry) RegisterCallback(fn func()) {
	r.callbacks = append(r.callbacks, fn)
}

func TestSlot_CustomExitRegistry(t *testing.T) {
	t.Parallel()

	reg := &plainRegistry{}
	traits := newPayloadTraits(true)
	slot := singleton.New[*payload](traits, singleton.WithExitRegistry(reg))

	slot.Get()
	require.Len(t, reg.callbacks, 1)

	reg.callbacks[0]()
	reg.callbacks[0]()
	assert.Equal(t, 1, traits.DeleteCalls())
}

func TestSlot_ConstructorPanicLeavesSlotStuck(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	slot := singleton.New[*payload](
		singleton.FuncTraits[*payload]{
			NewFunc: func() *payload { panic("no database") },
		},
		singleton.WithName("db"),
		singleton.WithLogger(logger),
	)

	recovered := recoverPanic(func() { slot.Get() })
	assert.Equal(t, "no database", recovered)

	singletontest.RequireState(t, slot, singleton.StateBeingCreated)
	assert.Contains(t, buf.String(), "constructor panicked")
	assert.Contains(t, buf.String(), "slot=db")
	assert.Empty(t, slot.InstanceID())
}

func TestSlot_PeekNameAndInstanceID(t *testing.T) {
	t.Parallel()

	slot := singleton.New[*payload](newPayloadTraits(false))

	assert.Equal(t, "*singleton_test.payload", slot.Name())
	assert.False(t, slot.Created())
	assert.Empty(t, slot.InstanceID())

	_, ok := slot.Peek()
	assert.False(t, ok)

	p := slot.Get()
	peeked, ok := slot.Peek()
	assert.True(t, ok)
	assert.Same(t, p, peeked)
	assert.True(t, slot.Created())
	assert.Len(t, slot.InstanceID(), 36)
}

func TestSlot_InstanceIDsAreUnique(t *testing.T) {
	t.Parallel()

	a := singleton.New[*payload](newPayloadTraits(false))
	b := singleton.New[*payload](newPayloadTraits(false))
	a.Get()
	b.Get()

	assert.NotEqual(t, a.InstanceID(), b.InstanceID())
}

func TestSlot_InvalidPolicyPanics(t *testing.T) {
	t.Parallel()

	recovered := recoverPanic(
		func() {
			singleton.New[*payload](
				newPayloadTraits(false),
				singleton.WithWaitPolicy(singleton.WaitPolicy{Spins: -1}),
			)
		},
	)

	err, ok := recovered.(error)
	require.True(t, ok, "expected an error panic, got %v", recovered)
	assert.True(t, singleton.IsInvalidPolicy(err))
}

func TestSlot_ValueTypes(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	slot := singleton.New[int](
		singleton.FuncTraits[int]{
			NewFunc: func() int {
				calls.Add(1)
				return 0
			},
		},
	)

	assert.Zero(t, slot.Get())
	assert.Zero(t, slot.Get())
	assert.Equal(t, int32(1), calls.Load(), "a zero handle must still count as created")
}

func TestSlot_NilTraitsPanics(t *testing.T) {
	t.Parallel()

	var traits *singletontest.CountingTraits[*payload]

	recovered := recoverPanic(func() { singleton.New[*payload](traits) })
	err, ok := recovered.(error)
	require.True(t, ok, "expected an error panic, got %v", recovered)
	assert.True(t, singleton.IsInvalidTraits(err))

	recovered = recoverPanic(func() { singleton.New[*payload](nil) })
	err, ok = recovered.(error)
	require.True(t, ok, "expected an error panic, got %v", recovered)
	assert.True(t, singleton.IsInvalidTraits(err))
}
