package singleton

// Traits decides how a slot builds and tears down its instance.
//
// New must not panic and must not block indefinitely: goroutines that lose
// the creation race wait for it unconditionally, and a slot whose
// constructor panicked stays in the being-created state forever.
type Traits[T any] interface {
	// New allocates the instance. It is called at most once per slot.
	New() T

	// Delete destroys an instance created by New. It is only called from
	// the exit callback, and only when RegisterAtExit reports true.
	Delete(T)

	// RegisterAtExit reports whether the slot should register an exit
	// callback that deletes the instance at orderly shutdown.
	RegisterAtExit() bool
}

// Initializer lets a type finish its own construction when built by
// DefaultTraits or LeakyTraits.
type Initializer interface {
	Init()
}

type closer interface {
	Close() error
}

// DefaultTraits allocates a zero E, calls Init if *E implements Initializer,
// and registers deletion at exit. Deletion calls Close if *E has one.
type DefaultTraits[E any] struct{}

func (DefaultTraits[E]) New() *E {
	x := new(E)
	if i, ok := any(x).(Initializer); ok {
		i.Init()
	}
	return x
}

func (DefaultTraits[E]) Delete(x *E) {
	if c, ok := any(x).(closer); ok {
		_ = c.Close()
	}
}

func (DefaultTraits[E]) RegisterAtExit() bool {
	return true
}

// LeakyTraits behaves like DefaultTraits but never registers deletion, so
// the instance lives until the process ends.
type LeakyTraits[E any] struct {
	DefaultTraits[E]
}

func (LeakyTraits[E]) RegisterAtExit() bool {
	return false
}

// FuncTraits adapts plain functions to Traits. A nil DeleteFunc makes
// deletion a no-op.
type FuncTraits[T any] struct {
	NewFunc    func() T
	DeleteFunc func(T)
	AtExit     bool
}

func (f FuncTraits[T]) New() T {
	return f.NewFunc()
}

func (f FuncTraits[T]) Delete(x T) {
	if f.DeleteFunc != nil {
		f.DeleteFunc(x)
	}
}

func (f FuncTraits[T]) RegisterAtExit() bool {
	return f.AtExit
}

var (
	_ Traits[*struct{}] = DefaultTraits[struct{}]{}
	_ Traits[*struct{}] = LeakyTraits[struct{}]{}
	_ Traits[int]       = FuncTraits[int]{}
)
