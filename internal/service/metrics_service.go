package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer and the
// fetch, extract and sync pipeline.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	fetchAttempts    *prometheus.CounterVec
	extractedRecords prometheus.Histogram
	calendarCalls    *prometheus.CounterVec
	syncOutcomes     *prometheus.CounterVec
	browserWait      prometheus.Histogram
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total schedule cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total schedule cache misses",
	})

	fetchAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_fetch_attempts_total",
		Help: "Timetable fetch attempts by outcome",
	}, []string{"outcome"})

	extractedRecords := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_extracted_records",
		Help:    "Lesson records extracted per page",
		Buckets: []float64{0, 1, 5, 10, 20, 40, 80, 160},
	})

	calendarCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calendar_calls_total",
		Help: "Calendar API calls by operation and outcome",
	}, []string{"operation", "outcome"})

	syncOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_sync_total",
		Help: "Schedule sync requests by outcome",
	}, []string{"status"})

	browserWait := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "browser_checkout_wait_seconds",
		Help:    "Time spent waiting for a free browser instance",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		fetchAttempts, extractedRecords, calendarCalls, syncOutcomes, browserWait, goroutines)

	return &MetricsService{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		fetchAttempts:    fetchAttempts,
		extractedRecords: extractedRecords,
		calendarCalls:    calendarCalls,
		syncOutcomes:     syncOutcomes,
		browserWait:      browserWait,
	}
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveFetchAttempt counts one timetable fetch attempt.
func (m *MetricsService) ObserveFetchAttempt(outcome string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(outcome).Inc()
}

// ObserveExtractedRecords records how many lessons one page yielded.
func (m *MetricsService) ObserveExtractedRecords(count int) {
	if m == nil {
		return
	}
	m.extractedRecords.Observe(float64(count))
}

// ObserveCalendarCall counts one calendar API call.
func (m *MetricsService) ObserveCalendarCall(operation models.SyncOperation, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.calendarCalls.WithLabelValues(string(operation), outcome).Inc()
}

// ObserveSyncOutcome counts one finished sync request.
func (m *MetricsService) ObserveSyncOutcome(status models.SyncStatus) {
	if m == nil {
		return
	}
	m.syncOutcomes.WithLabelValues(string(status)).Inc()
}

// ObserveBrowserWait records the time a request waited for a browser.
func (m *MetricsService) ObserveBrowserWait(duration time.Duration) {
	if m == nil {
		return
	}
	m.browserWait.Observe(duration.Seconds())
}
