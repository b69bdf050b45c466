package registry

import (
	"sort"
	"sync"
)

// Registry maps instantiation keys to their slots. Keys are comparable
// values, typically zero-size generic structs, so lookups neither allocate
// nor take a lock once the entry exists.
type Registry struct {
	entries sync.Map
	mu      sync.Mutex
	names   []string
}

func New() *Registry {
	return &Registry{}
}

func (r *Registry) Get(key any) (any, bool) {
	return r.entries.Load(key)
}

// GetOrCreate returns the entry stored under key, calling create to build it
// if the key is absent. create runs at most once per key and name is
// recorded for Names.
func (r *Registry) GetOrCreate(key any, name string, create func() any) (any, bool) {
	if v, ok := r.entries.Load(key); ok {
		return v, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.entries.Load(key); ok {
		return v, false
	}

	v := create()
	r.entries.Store(key, v)
	r.names = append(r.names, name)
	return v, true
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.names))
	copy(names, r.names)
	sort.Strings(names)
	return names
}
