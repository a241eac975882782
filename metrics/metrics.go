// Package metrics provides a Prometheus implementation of
// jobfs.CacheMetrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nuln/jobfs"
)

// cacheMetrics is the Prometheus implementation of jobfs.CacheMetrics.
//
// Every series carries a "cache" label with the cache name, which for a
// Hub is the backend kind ("local", "dfs").
type cacheMetrics struct {
	lookups        *prometheus.CounterVec
	creations      *prometheus.CounterVec
	createDuration *prometheus.HistogramVec
	releases       *prometheus.CounterVec
	entries        *prometheus.GaugeVec
}

// NewCacheMetrics registers the cache collectors with reg and returns a
// CacheMetrics that updates them. A nil reg returns nil, which makes
// caches fall back to their built-in no-op metrics.
func NewCacheMetrics(reg prometheus.Registerer) jobfs.CacheMetrics {
	if reg == nil {
		return nil
	}

	return &cacheMetrics{
		lookups: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobfs_cache_lookups_total",
				Help: "Total number of cache lookups by result",
			},
			[]string{"cache", "result"},
		),
		creations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobfs_cache_creations_total",
				Help: "Total number of handle creations by status",
			},
			[]string{"cache", "status"},
		),
		createDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "jobfs_cache_create_duration_seconds",
				Help: "Duration of handle creation (backend connect) in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.1,   // 100ms
					1,     // 1s
					10,    // 10s
					60,    // 1m
				},
			},
			[]string{"cache"},
		),
		releases: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobfs_cache_releases_total",
				Help: "Total number of handles released by the cache",
			},
			[]string{"cache"},
		),
		entries: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jobfs_cache_entries",
				Help: "Current number of cached handles",
			},
			[]string{"cache"},
		),
	}
}

func (m *cacheMetrics) RecordHit(cache string) {
	m.lookups.WithLabelValues(cache, "hit").Inc()
}

func (m *cacheMetrics) RecordMiss(cache string) {
	m.lookups.WithLabelValues(cache, "miss").Inc()
}

func (m *cacheMetrics) RecordCreate(cache string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.creations.WithLabelValues(cache, status).Inc()
	m.createDuration.WithLabelValues(cache).Observe(duration.Seconds())
}

func (m *cacheMetrics) RecordRelease(cache string) {
	m.releases.WithLabelValues(cache).Inc()
}

func (m *cacheMetrics) RecordEntries(cache string, n int) {
	m.entries.WithLabelValues(cache).Set(float64(n))
}
