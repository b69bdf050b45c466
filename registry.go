package singleton

import (
	"github.com/danpasecinic/singleton/internal/reflect"
	"github.com/danpasecinic/singleton/internal/registry"
)

var slots = registry.New()

type instantiation[T any, Tr Traits[T], D any] struct{}

// For returns the process-wide slot for the (T, Tr, D) combination, using
// the zero value of Tr as its traits. D only distinguishes slots that share
// a type and traits but serve different purposes. opts apply only on the
// call that first registers the slot.
//
// Tr must be usable as its zero value; pointer traits panic with
// ErrCodeInvalidTraits before any goroutine can block on the slot.
//
//	type primaryLock struct{}
//	type auditLock struct{}
//
//	singleton.For[*sync.Mutex, singleton.LeakyTraits[sync.Mutex], primaryLock]().Get()
func For[T any, Tr Traits[T], D any](opts ...Option) *Slot[T] {
	if v, ok := slots.Get(instantiation[T, Tr, D]{}); ok {
		return v.(*Slot[T])
	}

	key := reflect.SlotKey[T, Tr, D]()
	v, _ := slots.GetOrCreate(
		instantiation[T, Tr, D]{}, key, func() any {
			var traits Tr
			return New[T](traits, append([]Option{WithName(key)}, opts...)...)
		},
	)
	return v.(*Slot[T])
}

// Of is For with T as its own differentiator.
func Of[T any, Tr Traits[T]](opts ...Option) *Slot[T] {
	return For[T, Tr, T](opts...)
}

// Keys lists the names of every slot registered through For or Of.
func Keys() []string {
	return slots.Names()
}
