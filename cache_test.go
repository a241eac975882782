package jobfs_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuln/jobfs"
)

// handle counts how often the cache released it.
type handle struct {
	id       int
	released atomic.Int32
}

func releaseHandle(h *handle) error {
	h.released.Add(1)
	return nil
}

func options(host, port string) jobfs.Options {
	o := jobfs.Options{}
	o.Set(jobfs.OptHost, host)
	o.Set(jobfs.OptPort, port)
	return o
}

func TestCache_StoreGet(t *testing.T) {
	const host = "test_host"
	cache := jobfs.NewCache(releaseHandle)

	handles := make([]*handle, 100)
	for i := range handles {
		handles[i] = &handle{id: i}
		require.NoError(t, cache.Store(options(host, strconv.Itoa(i)), handles[i]))
	}
	assert.Equal(t, 100, cache.Len())

	for i := range handles {
		port := strconv.Itoa(i)
		h, ok := cache.Get(host, port)
		require.True(t, ok)
		assert.Same(t, handles[i], h)

		opts := cache.Options(host, port)
		assert.Equal(t, host, opts.Host())
		assert.Equal(t, port, opts.Port())
	}

	_, ok := cache.Get("unknown-host", "0")
	assert.False(t, ok)
	_, ok = cache.Get(host, "invalid-port")
	assert.False(t, ok)
	assert.Empty(t, cache.Options(host, "invalid-port"))

	require.NoError(t, cache.Close())
	for _, h := range handles {
		assert.EqualValues(t, 1, h.released.Load(), "handle %d", h.id)
	}
	assert.Equal(t, 0, cache.Len())
}

func TestCache_EmptyKey(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	h := &handle{}
	require.NoError(t, cache.Store(jobfs.Options{}, h))

	got, ok := cache.Get("", "")
	require.True(t, ok)
	assert.Same(t, h, got)
	_, ok = cache.Get("", "0")
	assert.False(t, ok)
}

func TestCache_StoreReplacesAndReleases(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	first, second := &handle{id: 1}, &handle{id: 2}

	require.NoError(t, cache.Store(options("h", "1"), first))
	require.NoError(t, cache.Store(options("h", "1"), second))
	assert.EqualValues(t, 1, first.released.Load(), "replaced handle is released")
	assert.EqualValues(t, 0, second.released.Load())

	got, ok := cache.Get("h", "1")
	require.True(t, ok)
	assert.Same(t, second, got)

	// Storing the same handle again is not a replacement.
	require.NoError(t, cache.Store(options("h", "1"), second))
	assert.EqualValues(t, 0, second.released.Load())

	require.NoError(t, cache.Close())
	assert.EqualValues(t, 1, first.released.Load())
	assert.EqualValues(t, 1, second.released.Load())
}

func TestCache_SharedHandleReleasedOnce(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	shared, other := &handle{}, &handle{}

	require.NoError(t, cache.Store(options("a", "1"), shared))
	require.NoError(t, cache.Store(options("b", "2"), shared))
	// Still stored under "b:2", so replacing "a:1" must not release it.
	require.NoError(t, cache.Store(options("a", "1"), other))
	assert.EqualValues(t, 0, shared.released.Load())

	require.NoError(t, cache.Close())
	assert.EqualValues(t, 1, shared.released.Load())
	assert.EqualValues(t, 1, other.released.Load())
}

func TestCache_OptionsAreCopied(t *testing.T) {
	cache := jobfs.NewCache[*handle](nil)
	opts := jobfs.Options{"host": "h", "port": "1", "user": "me"}
	require.NoError(t, cache.Store(opts, &handle{}))

	opts["user"] = "changed"
	got := cache.Options("h", "1")
	assert.Equal(t, "me", got.User())

	got["user"] = "changed again"
	assert.Equal(t, "me", cache.Options("h", "1").User())
}

func TestCache_GetOrCreate(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	var calls atomic.Int32
	create := func(o jobfs.Options) (*handle, error) {
		calls.Add(1)
		return &handle{id: int(calls.Load())}, nil
	}

	_, ok := cache.Get("h", "1")
	assert.False(t, ok, "Get never creates")

	h1, err := cache.GetOrCreate(options("h", "1"), create)
	require.NoError(t, err)
	h2, err := cache.GetOrCreate(options("h", "1"), create)
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.EqualValues(t, 1, calls.Load())

	h3, err := cache.GetOrCreate(options("h", "2"), create)
	require.NoError(t, err)
	assert.NotSame(t, h1, h3)
	assert.EqualValues(t, 2, calls.Load())

	got, ok := cache.Get("h", "1")
	require.True(t, ok)
	assert.Same(t, h1, got)
}

func TestCache_ConcurrentCreate(t *testing.T) {
	const n = 64
	cache := jobfs.NewCache(releaseHandle)

	var calls atomic.Int32
	create := func(o jobfs.Options) (*handle, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &handle{}, nil
	}

	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		got   = make([]*handle, n)
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i], errs[i] = cache.GetOrCreate(options("h", "1"), create)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load(), "factory must run once per key")
	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, got[0], got[i])
	}

	require.NoError(t, cache.Close())
	assert.EqualValues(t, 1, got[0].released.Load())
}

func TestCache_FailureNotCached(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	errDown := errors.New("namenode down")

	_, err := cache.GetOrCreate(options("h", "1"), func(jobfs.Options) (*handle, error) {
		return nil, errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 0, cache.Len())

	h, err := cache.GetOrCreate(options("h", "1"), func(jobfs.Options) (*handle, error) {
		return &handle{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, 1, cache.Len())
}

func TestCache_Closed(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	h := &handle{}
	require.NoError(t, cache.Store(options("h", "1"), h))
	require.NoError(t, cache.Close())
	require.NoError(t, cache.Close(), "closing twice is a no-op")
	assert.EqualValues(t, 1, h.released.Load())

	assert.ErrorIs(t, cache.Store(options("h", "1"), &handle{}), jobfs.ErrClosed)
	_, err := cache.GetOrCreate(options("h", "1"), func(jobfs.Options) (*handle, error) {
		t.Fatal("factory called on a closed cache")
		return nil, nil
	})
	assert.ErrorIs(t, err, jobfs.ErrClosed)
}

func TestCache_CloseDuringCreate(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	created := &handle{}
	entered, proceed := make(chan struct{}), make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := cache.GetOrCreate(options("h", "1"), func(jobfs.Options) (*handle, error) {
			close(entered)
			<-proceed
			return created, nil
		})
		done <- err
	}()

	<-entered
	require.NoError(t, cache.Close())
	close(proceed)

	assert.ErrorIs(t, <-done, jobfs.ErrClosed)
	assert.EqualValues(t, 1, created.released.Load(), "handle created after Close is released")
}

func TestCache_CloseReportsReleaseErrors(t *testing.T) {
	errBusy := errors.New("busy")
	cache := jobfs.NewCache(func(h *handle) error {
		h.released.Add(1)
		if h.id%2 == 1 {
			return errBusy
		}
		return nil
	})
	handles := []*handle{{id: 0}, {id: 1}, {id: 2}, {id: 3}}
	for i, h := range handles {
		require.NoError(t, cache.Store(options("h", strconv.Itoa(i)), h))
	}

	err := cache.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, errBusy)
	for _, h := range handles {
		assert.EqualValues(t, 1, h.released.Load(), "every handle is released even when some fail")
	}
}

func TestCache_GetOrCreateContextCancelled(t *testing.T) {
	cache := jobfs.NewCache(releaseHandle)
	defer func() { _ = cache.Close() }()

	type ctxKey struct{}
	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), ctxKey{}, "job-7"))

	started := make(chan struct{})
	release := make(chan struct{})
	createErr := make(chan error, 1)
	created := &handle{id: 1}
	go func() {
		_, err := cache.GetOrCreateContext(ctx, options("h", "1"), func(ctx context.Context, _ jobfs.Options) (*handle, error) {
			close(started)
			<-release
			assert.Equal(t, "job-7", ctx.Value(ctxKey{}))
			return created, ctx.Err()
		})
		createErr <- err
	}()

	<-started
	cancel()
	assert.ErrorIs(t, <-createErr, context.Canceled)

	close(release)
	require.Eventually(t, func() bool { return cache.Len() == 1 }, time.Second, time.Millisecond)
	h, ok := cache.Get("h", "1")
	require.True(t, ok)
	assert.Same(t, created, h)
}
