package jobfs

import "time"

// CacheMetrics provides observability for handle caches.
//
// Implementations can use this interface to collect metrics about cache
// lookups and handle lifecycles. This is optional - if not provided,
// metrics collection is skipped. See the metrics package for a Prometheus
// implementation.
type CacheMetrics interface {
	// RecordHit records a lookup served from the cache.
	RecordHit(cache string)

	// RecordMiss records a lookup that had to create a handle.
	RecordMiss(cache string)

	// RecordCreate records one call to a handle factory.
	RecordCreate(cache string, duration time.Duration, err error)

	// RecordRelease records a handle given up by the cache.
	RecordRelease(cache string)

	// RecordEntries records the number of cached handles.
	RecordEntries(cache string, n int)
}

// noopCacheMetrics is a default no-op metrics implementation
type noopCacheMetrics struct{}

func (noopCacheMetrics) RecordHit(string)                         {}
func (noopCacheMetrics) RecordMiss(string)                        {}
func (noopCacheMetrics) RecordCreate(string, time.Duration, error) {}
func (noopCacheMetrics) RecordRelease(string)                     {}
func (noopCacheMetrics) RecordEntries(string, int)                {}
