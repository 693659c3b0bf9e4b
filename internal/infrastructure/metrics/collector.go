package metrics

import (
	"net/http"
	"strconv"
	"time"

	"holder-risk-engine/internal/infrastructure/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Analysis metrics
	AnalysesTotal    *prometheus.CounterVec
	RiskLevels       *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	FetchDuration    *prometheus.HistogramVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewCollector creates a new metrics collector with its own registry
func NewCollector(cfg *config.MetricsConfig) *Collector {
	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	analysesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of holder risk analyses by outcome",
		},
		[]string{"status"},
	)

	riskLevels := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "risk_levels_total",
			Help:      "Total number of successful analyses by risk level",
		},
		[]string{"level"},
	)

	analysisDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End to end analysis duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20, 30, 60},
		},
	)

	fetchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Holder data fetch duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_hits_total",
			Help:      "Total number of snapshot cache hits",
		},
	)

	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_misses_total",
			Help:      "Total number of snapshot cache misses",
		},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		analysesTotal,
		riskLevels,
		analysisDuration,
		fetchDuration,
		cacheHits,
		cacheMisses,
	)

	return &Collector{
		registry:         registry,
		HTTPRequests:     httpRequests,
		HTTPDuration:     httpDuration,
		AnalysesTotal:    analysesTotal,
		RiskLevels:       riskLevels,
		AnalysisDuration: analysisDuration,
		FetchDuration:    fetchDuration,
		CacheHits:        cacheHits,
		CacheMisses:      cacheMisses,
	}
}

// RecordHTTPRequest records one served HTTP request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordAnalysis records the outcome of one analysis. level is empty when no
// risk could be computed.
func (c *Collector) RecordAnalysis(status string, level string, duration time.Duration) {
	if c == nil {
		return
	}
	c.AnalysesTotal.WithLabelValues(status).Inc()
	if level != "" {
		c.RiskLevels.WithLabelValues(level).Inc()
	}
	c.AnalysisDuration.Observe(duration.Seconds())
}

// RecordFetch records one holder data fetch
func (c *Collector) RecordFetch(outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.FetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordCacheHit counts a snapshot served from cache
func (c *Collector) RecordCacheHit() {
	if c == nil {
		return
	}
	c.CacheHits.Inc()
}

// RecordCacheMiss counts a snapshot cache miss
func (c *Collector) RecordCacheMiss() {
	if c == nil {
		return
	}
	c.CacheMisses.Inc()
}

// Handler returns the HTTP handler exposing this collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// GetRegistry returns the Prometheus registry for this collector
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}
