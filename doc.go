// Package singleton lazily constructs one shared instance of a type, exactly
// once, under concurrent access, without a mutex on the read path.
//
// # Slots
//
// A Slot holds the instance. It starts uninitialized; the first Get claims it
// with a compare-and-swap, calls the traits constructor and publishes the
// result. Goroutines that lose the race wait for the publication. Every later
// Get is one atomic load:
//
//	type Registry struct{ ... }
//
//	var registrySlot = singleton.New[*Registry](singleton.DefaultTraits[Registry]{})
//
//	func GetRegistry() *Registry { return registrySlot.Get() }
//
// Keep the slot unexported and read it through a single accessor so nothing
// else can reach it.
//
// # Traits
//
// Traits decide how the instance is built and destroyed:
//
//	singleton.DefaultTraits[E]  // new(E), Init() if present, Close() at exit
//	singleton.LeakyTraits[E]    // like DefaultTraits, never destroyed
//	singleton.FuncTraits[T]{    // any constructor
//	    NewFunc:    func() *DB { return openDB() },
//	    DeleteFunc: func(db *DB) { db.Close() },
//	    AtExit:     true,
//	}
//
// The constructor must not panic and must finish: there is no timeout and no
// way to abort a stuck creator. Calling Get on the same slot from inside its
// own constructor deadlocks.
//
// # Per-type slots
//
// For and Of return a process-wide slot per (type, traits, differentiator)
// combination, for code that prefers not to declare the slot itself:
//
//	db := singleton.Of[*DB, DBTraits]().Get()
//
// # Teardown
//
// When the traits ask for it, the slot registers a callback with the exit
// registry (atexit.Default() unless WithExitRegistry says otherwise) after
// the instance is published. Callbacks run newest first when the process
// calls Shutdown, or when Run sees its context end or a termination signal.
// Abnormal termination skips them. Get after teardown panics with an *Error
// of code ErrCodeAccessAfterExit.
//
// # Observability
//
// WithLogger, WithOpenTelemetry, WithMetrics, WithSpans and the observer
// options report constructions, contended waits and teardowns. None of them
// runs on the fast path.
package singleton
