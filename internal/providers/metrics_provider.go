package providers

import (
	"rankview/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObserveUpstreamDuration(operation string, duration time.Duration)
	IncUpstreamErrors(operation string)
	IncPlacement(kind, placement string)
	ObserveWarmupDuration(duration time.Duration)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	upstreamDuration *prometheus.HistogramVec
	upstreamErrors   *prometheus.CounterVec
	placements       *prometheus.CounterVec
	warmupDuration   prometheus.Histogram
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObserveUpstreamDuration(operation string, duration time.Duration) {
	m.upstreamDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncUpstreamErrors(operation string) {
	m.upstreamErrors.WithLabelValues(operation).Inc()
}

func (m *MetricsProvider) IncPlacement(kind, placement string) {
	m.placements.WithLabelValues(kind, placement).Inc()
}

func (m *MetricsProvider) ObserveWarmupDuration(duration time.Duration) {
	m.warmupDuration.Observe(duration.Seconds())
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	factory := promauto.With(prometheus.DefaultRegisterer)

	m := &MetricsProvider{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankview_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rankview_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankview_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "rankview_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rankview_upstream_duration_seconds",
			Help:    "Ranking service call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),

		upstreamErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankview_upstream_errors_total",
			Help: "Total number of failed ranking service calls",
		}, []string{"operation"}),

		placements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rankview_self_placements_total",
			Help: "Viewer banner placements served, by kind and placement",
		}, []string{"kind", "placement"}),

		warmupDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rankview_warmup_duration_seconds",
			Help:    "Duration of cache warm-up runs in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                  {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration)  {}
func (n *noopMetrics) IncCacheHits()                                     {}
func (n *noopMetrics) IncCacheMisses()                                   {}
func (n *noopMetrics) ObserveUpstreamDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncUpstreamErrors(_ string)                        {}
func (n *noopMetrics) IncPlacement(_, _ string)                          {}
func (n *noopMetrics) ObserveWarmupDuration(_ time.Duration)             {}
