package jobfs

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"
)

// Hub is the single funnel through which backends are connected. It keeps
// one [Cache] of backends per kind, keyed by host and port, so overlapping
// file operations on the same endpoint share one connection.
//
// Create a Hub once per process or job and Close it when done; Close
// closes every backend it connected.
type Hub struct {
	mu     sync.Mutex
	caches map[Kind]*Cache[Backend]
	closed bool
	opts   []CacheOption
}

// NewHub returns an empty hub. The options apply to every per-kind cache.
func NewHub(opts ...CacheOption) *Hub {
	return &Hub{
		caches: make(map[Kind]*Cache[Backend]),
		opts:   opts,
	}
}

func closeBackend(b Backend) error {
	if b == nil {
		return nil
	}
	return b.Close()
}

func (h *Hub) cache(kind Kind) (*Cache[Backend], error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	c, ok := h.caches[kind]
	if !ok {
		opts := append([]CacheOption{WithName(kind.String())}, h.opts...)
		c = NewCache(closeBackend, opts...)
		h.caches[kind] = c
	}
	return c, nil
}

// Connect returns the cached backend of kind for opts' host and port,
// connecting it through the registered driver on first use. Cancelling
// ctx only abandons this caller's wait; a connect already in flight
// completes for the other callers of the same endpoint.
func (h *Hub) Connect(ctx context.Context, kind Kind, opts Options) (Backend, error) {
	factory, err := FactoryFor(kind)
	if err != nil {
		return nil, err
	}
	c, err := h.cache(kind)
	if err != nil {
		return nil, err
	}
	b, err := c.GetOrCreateContext(ctx, opts, func(ctx context.Context, o Options) (Backend, error) {
		return factory(ctx, o)
	})
	if err != nil {
		return nil, fmt.Errorf("jobfs: connect %s %s: %w", kind, CacheKey(opts.Host(), opts.Port()), err)
	}
	return b, nil
}

// BuildFs returns the backend for the endpoint described by d.
func (h *Hub) BuildFs(ctx context.Context, d Descriptor) (Backend, error) {
	return h.Connect(ctx, d.Kind(), BuildOptions(d))
}

// GetFs parses address and returns its backend together with the parsed
// address, whose Path is what the backend expects.
func (h *Hub) GetFs(ctx context.Context, address string) (Backend, Address, error) {
	addr, err := ParseAddress(address)
	if err != nil {
		return nil, Address{}, err
	}
	b, err := h.Connect(ctx, addr.Kind, OptionsFromAddress(addr))
	if err != nil {
		return nil, Address{}, err
	}
	return b, addr, nil
}

// Lookup returns the backend already connected for kind, host and port.
// It never connects.
func (h *Hub) Lookup(kind Kind, host, port string) (Backend, bool) {
	h.mu.Lock()
	c, ok := h.caches[kind]
	h.mu.Unlock()
	if !ok {
		return nil, false
	}
	return c.Get(host, port)
}

// GetOptions returns the options the backend for address was connected
// with, or empty options if there is none or address does not parse.
func (h *Hub) GetOptions(address string) Options {
	addr, err := ParseAddress(address)
	if err != nil {
		return Options{}
	}
	h.mu.Lock()
	c, ok := h.caches[addr.Kind]
	h.mu.Unlock()
	if !ok {
		return Options{}
	}
	return c.Options(addr.Host, addr.Port)
}

// OpenFile connects the backend for address and opens its path.
func (h *Hub) OpenFile(ctx context.Context, address string, mode OpenMode) (File, error) {
	b, addr, err := h.GetFs(ctx, address)
	if err != nil {
		return nil, err
	}
	return b.Open(ctx, addr.Path, mode)
}

// Close closes every backend the hub connected.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	caches := h.caches
	h.mu.Unlock()

	kinds := make([]Kind, 0, len(caches))
	for k := range caches {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	var err error
	for _, k := range kinds {
		err = multierr.Append(err, caches[k].Close())
	}
	return err
}
