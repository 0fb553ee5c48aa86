// Package metrics exposes Prometheus instrumentation for the resilience
// layers: cache operation counters and per-operation call outcome/duration
// observations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// CacheCollector implements ttlcache.MetricsCollector on Prometheus counters.
type CacheCollector struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	sets      prometheus.Counter
	deletes   prometheus.Counter
	evictions prometheus.Counter
}

// NewCacheCollector registers the cache counters with reg. A nil reg uses
// the default registerer.
func NewCacheCollector(reg prometheus.Registerer) *CacheCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &CacheCollector{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Name: "squirrelshield_cache_hits_total",
			Help: "Reads that returned a live cache entry.",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Name: "squirrelshield_cache_misses_total",
			Help: "Reads that found no live cache entry.",
		}),
		sets: factory.NewCounter(prometheus.CounterOpts{
			Name: "squirrelshield_cache_sets_total",
			Help: "Cache writes.",
		}),
		deletes: factory.NewCounter(prometheus.CounterOpts{
			Name: "squirrelshield_cache_deletes_total",
			Help: "Explicit cache removals.",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "squirrelshield_cache_evictions_total",
			Help: "Expiry-driven cache removals, lazy or swept.",
		}),
	}
}

func (c *CacheCollector) Hit()    { c.hits.Inc() }
func (c *CacheCollector) Miss()   { c.misses.Inc() }
func (c *CacheCollector) Set()    { c.sets.Inc() }
func (c *CacheCollector) Delete() { c.deletes.Inc() }
func (c *CacheCollector) Evict(n int) {
	c.evictions.Add(float64(n))
}

// CallObserver records the outcome and duration of wrapped calls, keyed by
// operation identity.
type CallObserver struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCallObserver registers the call metrics with reg. A nil reg uses the
// default registerer.
func NewCallObserver(reg prometheus.Registerer) *CallObserver {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &CallObserver{
		calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "squirrelshield_calls_total",
			Help: "Wrapped call outcomes by operation.",
		}, []string{"op", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "squirrelshield_call_duration_seconds",
			Help:    "Wrapped call durations by operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "outcome"}),
	}
}

// Observe records one completed call.
func (o *CallObserver) Observe(op string, d time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	o.calls.WithLabelValues(op, outcome).Inc()
	o.duration.WithLabelValues(op, outcome).Observe(d.Seconds())
}
