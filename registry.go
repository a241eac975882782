package jobfs

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Factory connects to the endpoint described by opts. Blocking, timeouts
// and retries are entirely up to the driver. When called by a [Hub], ctx
// carries the caller's values but is never cancelled, since the backend
// is shared by every caller of the same endpoint.
type Factory func(ctx context.Context, opts Options) (Backend, error)

var (
	mu        sync.RWMutex
	factories = make(map[Kind]Factory)
)

// Register makes a backend driver available for kind.
// This is typically called from the driver package's init() function.
// It panics if called twice for the same kind.
func Register(kind Kind, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if factory == nil {
		panic(fmt.Sprintf("jobfs: nil factory for %s", kind))
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("jobfs: driver for %s already registered", kind))
	}
	factories[kind] = factory
}

// Drivers returns the kinds that have a registered driver, in order.
func Drivers() []Kind {
	mu.RLock()
	defer mu.RUnlock()

	kinds := make([]Kind, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// FactoryFor returns the registered factory for kind.
func FactoryFor(kind Kind) (Factory, error) {
	mu.RLock()
	factory, ok := factories[kind]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (forgotten import?)", ErrUnknownKind, kind)
	}
	return factory, nil
}

// NewBackend connects a new, uncached backend of the given kind. Most
// callers should go through a [Hub] instead.
func NewBackend(ctx context.Context, kind Kind, opts Options) (Backend, error) {
	factory, err := FactoryFor(kind)
	if err != nil {
		return nil, err
	}
	return factory(ctx, opts)
}
