package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the grapher. A nil *Collector is
// valid and records nothing.
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Query metrics
	Queries *prometheus.CounterVec

	// Render metrics
	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	Fallbacks      *prometheus.CounterVec
	BreakerState   *prometheus.GaugeVec

	// Cache metrics
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	CacheSharedWaits   prometheus.Counter
	CacheInvalidations prometheus.Counter
	CacheStoreErrors   *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queries_total",
				Help:      "Queries handled by the query bus by type and outcome",
			},
			[]string{"query", "outcome"},
		),
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "renders_total",
				Help:      "Backend render calls by target kind, backend and outcome",
			},
			[]string{"kind", "backend", "outcome"},
		),
		RenderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "render_duration_seconds",
				Help:      "Backend render duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"backend"},
		),
		Fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "backend_fallbacks_total",
				Help:      "Renders retried on the next capable backend",
			},
			[]string{"from", "to"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "backend_breaker_state",
				Help:      "Circuit breaker state per backend: 0 closed, 1 half-open, 2 open",
			},
			[]string{"backend"},
		),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cache_hits_total",
			Help:      "Total number of render cache hits",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cache_misses_total",
			Help:      "Total number of render cache misses",
		}),
		CacheSharedWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cache_shared_total",
			Help:      "Callers served by another caller's in-flight render",
		}),
		CacheInvalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cache_invalidations_total",
			Help:      "Total number of render cache invalidations",
		}),
		CacheStoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "render_cache_store_errors_total",
				Help:      "Shared render store failures by operation",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Queries,
		c.Renders,
		c.RenderDuration,
		c.Fallbacks,
		c.BreakerState,
		c.CacheHits,
		c.CacheMisses,
		c.CacheSharedWaits,
		c.CacheInvalidations,
		c.CacheStoreErrors,
	)

	return c
}

// RecordQuery records one query bus dispatch.
func (c *Collector) RecordQuery(query string, err error) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.Queries.WithLabelValues(query, outcome).Inc()
}

// RecordHTTP records one served request.
func (c *Collector) RecordHTTP(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, http.StatusText(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordRender records one backend call.
func (c *Collector) RecordRender(kind, backend string, err error, duration time.Duration) {
	if c == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.Renders.WithLabelValues(kind, backend, outcome).Inc()
	c.RenderDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordFallback records a retry on the next capable backend.
func (c *Collector) RecordFallback(from, to string) {
	if c == nil {
		return
	}
	c.Fallbacks.WithLabelValues(from, to).Inc()
}

// SetBreakerState records a breaker transition.
func (c *Collector) SetBreakerState(backend string, state float64) {
	if c == nil {
		return
	}
	c.BreakerState.WithLabelValues(backend).Set(state)
}

// CacheHit records a render served from cache.
func (c *Collector) CacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// CacheMiss records a render that had to run.
func (c *Collector) CacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

// CacheShared records a caller that joined an in-flight render.
func (c *Collector) CacheShared() {
	if c == nil {
		return
	}
	c.CacheSharedWaits.Inc()
}

// CacheInvalidated records a cache flush.
func (c *Collector) CacheInvalidated() {
	if c == nil {
		return
	}
	c.CacheInvalidations.Inc()
}

// CacheStoreError records a failed shared store operation.
func (c *Collector) CacheStoreError(operation string) {
	if c == nil {
		return
	}
	c.CacheStoreErrors.WithLabelValues(operation).Inc()
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
