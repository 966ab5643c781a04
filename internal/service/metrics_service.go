package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/idir-saidi/campus-records-api/internal/models"
)

// MetricsService owns the Prometheus registry and keeps plain atomic
// aggregates alongside it so the admin snapshot endpoint does not have
// to gather the registry.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge

	requests    uint64
	requestNs   uint64
	cacheHits   uint64
	cacheMisses uint64
}

// NewMetricsService builds a dedicated registry with the collectors the
// API exposes on /metrics.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups partitioned by outcome",
	}, []string{"outcome"})

	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	m.registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLookups, m.cacheHitRatio, goroutines)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus scrape handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, statusLabel).Inc()
	atomic.AddUint64(&m.requests, 1)
	atomic.AddUint64(&m.requestNs, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records one cache lookup outcome.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHits, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMisses, 1)
	}
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// Snapshot returns the aggregate view served to administrators.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}

	snapshot := models.SystemMetrics{
		CacheHits:     atomic.LoadUint64(&m.cacheHits),
		CacheMisses:   atomic.LoadUint64(&m.cacheMisses),
		RequestsTotal: atomic.LoadUint64(&m.requests),
		Goroutines:    runtime.NumGoroutine(),
		GeneratedAt:   time.Now().UTC(),
	}
	if ratio, ok := m.hitRatio(); ok {
		snapshot.CacheHitRatio = ratio
	}
	if snapshot.RequestsTotal > 0 {
		totalNs := atomic.LoadUint64(&m.requestNs)
		snapshot.AverageRequestDurationMs = float64(totalNs) / float64(snapshot.RequestsTotal) / float64(time.Millisecond)
	}
	return snapshot
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := atomic.LoadUint64(&m.cacheHits)
	total := hits + atomic.LoadUint64(&m.cacheMisses)
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}
