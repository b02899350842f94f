package datalayer

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the request lifecycle
// and the reliability middleware. It is safe for concurrent use.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec
	retriesTotal     *prometheus.CounterVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
}

// NewMetricsCollector creates a collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector on the supplied
// registerer, which tests use to keep registrations isolated.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "datalayer_requests_total",
				Help: "Total number of dispatched requests",
			},
			[]string{"method", "status", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datalayer_request_duration_seconds",
				Help:    "Duration of dispatched requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "datalayer_requests_in_flight",
				Help: "Number of requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		retriesTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "datalayer_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"method", "endpoint", "attempt"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "datalayer_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"method", "endpoint"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "datalayer_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"method", "endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "datalayer_errors_total",
				Help: "Total number of dispatch errors by kind",
			},
			[]string{"kind", "method", "endpoint"},
		),
	}
}

// RecordRequestStart marks a request entering dispatch.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd marks a request leaving dispatch.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a settled request with its status and duration.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, status int, duration time.Duration) {
	s := strconv.Itoa(status)
	mc.requestsTotal.WithLabelValues(method, s, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, s, endpoint).Observe(duration.Seconds())
}

// RecordRetry records one retry attempt.
func (mc *MetricsCollector) RecordRetry(method, endpoint string, attempt int) {
	mc.retriesTotal.WithLabelValues(method, endpoint, strconv.Itoa(attempt)).Inc()
}

// RecordCacheHit records a cache hit.
func (mc *MetricsCollector) RecordCacheHit(method, endpoint string) {
	mc.cacheHits.WithLabelValues(method, endpoint).Inc()
}

// RecordCacheMiss records a cache miss.
func (mc *MetricsCollector) RecordCacheMiss(method, endpoint string) {
	mc.cacheMisses.WithLabelValues(method, endpoint).Inc()
}

// RecordError records a dispatch error by kind.
func (mc *MetricsCollector) RecordError(kind, method, endpoint string) {
	mc.errorsTotal.WithLabelValues(kind, method, endpoint).Inc()
}

// WithMetrics instruments dispatch with the collector: in-flight gauge,
// request counter and duration histogram, and an error counter keyed by
// error kind. Each retry attempt shows up as its own dispatch.
func WithMetrics(next Fetch, metrics *MetricsCollector) Fetch {
	return func(ctx context.Context, req *Request) (*Response, error) {
		endpoint := endpointOf(req)
		metrics.RecordRequestStart(req.Method, endpoint)
		start := time.Now()

		resp, err := next(ctx, req)

		metrics.RecordRequestEnd(req.Method, endpoint)
		status := 0
		if resp != nil {
			status = resp.Status
		} else if err != nil {
			if s := StatusOf(err); s > 0 {
				status = s
			}
		}
		metrics.RecordRequest(req.Method, endpoint, status, time.Since(start))
		if err != nil {
			metrics.RecordError(kindOf(err), req.Method, endpoint)
		}
		return resp, err
	}
}

func kindOf(err error) string {
	if de := asDataError(err); de != nil && de.Kind != "" {
		return de.Kind
	}
	return "Unknown"
}

// endpointOf reduces a request to a host+path metric label, keeping
// cardinality independent of query strings.
func endpointOf(req *Request) string {
	u, err := url.Parse(req.URL)
	if err != nil {
		return "unknown"
	}

	var b strings.Builder
	b.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		b.WriteString(u.Path)
	} else {
		b.WriteByte('/')
	}
	return b.String()
}
