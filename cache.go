package jobfs

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"
)

// CacheKey returns the key a handle for host and port is stored under.
// Empty host and port form a valid key for the default endpoint.
func CacheKey(host, port string) string {
	return host + ":" + port
}

// CacheOption configures a [Cache] or a [Hub].
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	name    string
	logger  *slog.Logger
	metrics CacheMetrics
}

// WithLogger sets the logger for cache events. Nothing is logged by default.
func WithLogger(l *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m CacheMetrics) CacheOption {
	return func(o *cacheOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithName labels the cache in logs and metrics.
func WithName(name string) CacheOption {
	return func(o *cacheOptions) { o.name = name }
}

func newCacheOptions(opts []CacheOption) cacheOptions {
	o := cacheOptions{
		name:    "default",
		logger:  slog.New(slog.DiscardHandler),
		metrics: noopCacheMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type cacheEntry[H comparable] struct {
	handle H
	opts   Options
}

// Cache holds at most one handle per (host, port) key and owns every
// handle stored in it: a handle is released exactly once, either when
// another handle replaces it or when the cache is closed. Handles returned
// by Get and GetOrCreate are borrowed and must not be released by callers.
//
// Storing into an occupied key replaces the previous handle and releases
// it, unless the same handle is stored again.
//
// Handles are compared with ==, so when H is an interface type every
// dynamic type stored must be comparable (typically a pointer); storing a
// struct value holding a slice or map panics.
//
// A Cache is safe for concurrent use.
type Cache[H comparable] struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry[H]
	closed  bool

	group   singleflight.Group
	release func(H) error
	cacheOptions
}

// NewCache returns an empty cache. release is called for every handle the
// cache gives up; it may be nil when handles hold no resources.
func NewCache[H comparable](release func(H) error, opts ...CacheOption) *Cache[H] {
	return &Cache[H]{
		entries:      make(map[string]*cacheEntry[H]),
		release:      release,
		cacheOptions: newCacheOptions(opts),
	}
}

// Store registers h under the key derived from opts' host and port.
func (c *Cache[H]) Store(opts Options, h H) error {
	key := CacheKey(opts.Host(), opts.Port())

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	old, exists := c.entries[key]
	c.entries[key] = &cacheEntry[H]{handle: h, opts: opts.Clone()}
	n := len(c.entries)
	orphaned := exists && old.handle != h && !c.referencedLocked(old.handle)
	c.mu.Unlock()

	c.metrics.RecordEntries(c.name, n)
	if !orphaned {
		return nil
	}
	c.logger.Debug("replacing cached handle", "cache", c.name, "key", key)
	return c.releaseHandle(key, old.handle)
}

// Get returns the handle stored for host and port.
func (c *Cache[H]) Get(host, port string) (H, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[CacheKey(host, port)]
	if !ok {
		var zero H
		return zero, false
	}
	return e.handle, true
}

// Options returns a copy of the options the handle for host and port was
// stored with, or empty options when there is none.
func (c *Cache[H]) Options(host, port string) Options {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[CacheKey(host, port)]
	if !ok {
		return Options{}
	}
	return e.opts.Clone()
}

// GetOrCreate returns the handle for opts' host and port, calling create
// when there is none. Concurrent callers for the same key share a single
// call to create. Failures are returned to every waiting caller and are
// not cached, so a later call tries again.
func (c *Cache[H]) GetOrCreate(opts Options, create func(Options) (H, error)) (H, error) {
	return c.GetOrCreateContext(context.Background(), opts, func(_ context.Context, o Options) (H, error) {
		return create(o)
	})
}

// GetOrCreateContext is GetOrCreate with cancellation. create receives a
// context that carries ctx's values but not its cancellation, because the
// handle it builds outlives the caller and is shared with other callers.
// When ctx is done before the handle is ready, only this caller returns
// ctx.Err(); the creation goes on and its result is cached for the others.
func (c *Cache[H]) GetOrCreateContext(ctx context.Context, opts Options, create func(context.Context, Options) (H, error)) (H, error) {
	var zero H
	key := CacheKey(opts.Host(), opts.Port())

	c.mu.RLock()
	e, ok := c.entries[key]
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return zero, ErrClosed
	}
	if ok {
		c.metrics.RecordHit(c.name)
		return e.handle, nil
	}
	c.metrics.RecordMiss(c.name)

	createCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		// A call that finished between our lookup and DoChan has stored
		// its handle already.
		c.mu.RLock()
		e, ok := c.entries[key]
		closed := c.closed
		c.mu.RUnlock()
		if closed {
			return nil, ErrClosed
		}
		if ok {
			return e.handle, nil
		}

		start := time.Now()
		h, err := create(createCtx, opts.Clone())
		c.metrics.RecordCreate(c.name, time.Since(start), err)
		if err != nil {
			c.logger.Warn("creating handle failed", "cache", c.name, "key", key, "error", err)
			return nil, err
		}
		return c.insert(key, opts, h)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		h, _ := res.Val.(H)
		return h, nil
	}
}

// insert adds a freshly created handle unless the cache was closed or a
// concurrent Store filled the key, in which case h is released.
func (c *Cache[H]) insert(key string, opts Options, h H) (H, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return h, multierr.Append(ErrClosed, c.releaseHandle(key, h))
	}
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		if e.handle != h {
			if err := c.releaseHandle(key, h); err != nil {
				c.logger.Warn("releasing duplicate handle failed", "cache", c.name, "key", key, "error", err)
			}
		}
		return e.handle, nil
	}
	c.entries[key] = &cacheEntry[H]{handle: h, opts: opts.Clone()}
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.RecordEntries(c.name, n)
	c.logger.Debug("created handle", "cache", c.name, "key", key)
	return h, nil
}

// Len returns the number of cached handles.
func (c *Cache[H]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close releases every cached handle once and empties the cache. Later
// Store and GetOrCreate calls fail with ErrClosed. Closing twice is a no-op.
func (c *Cache[H]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := c.entries
	c.entries = make(map[string]*cacheEntry[H])
	c.mu.Unlock()

	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var err error
	released := make(map[H]struct{}, len(entries))
	for _, key := range keys {
		h := entries[key].handle
		if _, done := released[h]; done {
			continue
		}
		released[h] = struct{}{}
		err = multierr.Append(err, c.releaseHandle(key, h))
	}
	c.metrics.RecordEntries(c.name, 0)
	if err != nil {
		c.logger.Warn("closing cache", "cache", c.name, "error", err)
	}
	return err
}

// referencedLocked reports whether h is still stored under any key.
func (c *Cache[H]) referencedLocked(h H) bool {
	for _, e := range c.entries {
		if e.handle == h {
			return true
		}
	}
	return false
}

func (c *Cache[H]) releaseHandle(key string, h H) error {
	if c.release == nil {
		return nil
	}
	c.metrics.RecordRelease(c.name)
	if err := c.release(h); err != nil {
		return fmt.Errorf("jobfs: release %s handle %q: %w", c.name, key, err)
	}
	return nil
}
