package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic,
// the series cache and the scheduling core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	conflicts       *prometheus.CounterVec
	occurrences     *prometheus.CounterVec
	txRetries       *prometheus.CounterVec
	futureRemoved   prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	conflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "appointment_conflicts_total",
		Help: "Writes rejected because they would overlap an active appointment",
	}, []string{"operation", "source"})

	occurrences := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "series_occurrences_total",
		Help: "Series occurrences by generation outcome",
	}, []string{"outcome"})

	txRetries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transaction_retries_total",
		Help: "Transactions restarted after a serialization failure",
	}, []string{"operation"})

	futureRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "series_future_appointments_removed_total",
		Help: "Future series instances soft-deleted by regeneration or deactivation",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups, conflicts, occurrences, txRetries, futureRemoved, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheLookups:    cacheLookups,
		conflicts:       conflicts,
		occurrences:     occurrences,
		txRetries:       txRetries,
		futureRemoved:   futureRemoved,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordConflict counts a rejected write. source is "batch", "precheck" or "storage".
func (m *MetricsService) RecordConflict(operation, source string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(operation, source).Inc()
}

// RecordOccurrences counts generated, skipped and past occurrences.
func (m *MetricsService) RecordOccurrences(generated, skipped, past int) {
	if m == nil {
		return
	}
	m.occurrences.WithLabelValues("generated").Add(float64(generated))
	m.occurrences.WithLabelValues("skipped").Add(float64(skipped))
	m.occurrences.WithLabelValues("past").Add(float64(past))
}

// RecordRetry counts a transaction restart.
func (m *MetricsService) RecordRetry(operation string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(operation).Inc()
}

// RecordFutureRemoved counts soft-deleted future instances.
func (m *MetricsService) RecordFutureRemoved(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.futureRemoved.Add(float64(n))
}
