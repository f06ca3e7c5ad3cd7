package dispatch

import (
	"sort"
	"sync"

	"courier/internal/common"
)

// ChannelFactory builds a Channel instance.
type ChannelFactory func() Channel

// Registry maps channel kinds to their factories. It is an explicit,
// injected instance rather than process-wide state, and new kinds can
// be registered at runtime.
type Registry struct {
	mu        sync.RWMutex
	factories map[Kind]ChannelFactory
}

// NewRegistry creates an empty registry. Built-in kinds are registered
// explicitly at startup by the caller.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Kind]ChannelFactory)}
}

// Register stores a factory for the given kind, silently overwriting
// any existing registration.
func (r *Registry) Register(kind Kind, factory ChannelFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Create builds a channel for the given kind. Unknown kinds fail with
// an UnknownChannelError.
func (r *Registry) Create(kind Kind) (Channel, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, common.NewUnknownChannelError(string(kind))
	}
	return factory(), nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
