package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Watch for: p95/p99 latency increases.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Open-Meteo API call rate. Watch for: error vs success ratio.
	ForecastAPICallsTotal *prometheus.CounterVec

	// Upstream latency per bulk request. Watch for: p95 > 2s (upstream degradation).
	ForecastAPIDuration *prometheus.HistogramVec

	// Retry attempts for forecast API calls. High retries = unstable upstream.
	ForecastAPIRetriesTotal prometheus.Counter

	// Locations packed into each bulk request. Watch for: batches near the 1000 limit.
	ForecastBatchSize prometheus.Histogram

	// Total coolest-zip lookups. rate() for QPS.
	LookupsTotal prometheus.Counter

	// Cache hits per backend. Hit rate = hits / lookupsTotal.
	CacheHitsTotal *prometheus.CounterVec

	// Cache backend failures per operation.
	CacheErrorsTotal *prometheus.CounterVec

	// Rate limit denials in serve mode.
	RateLimitDeniedTotal prometheus.Counter

	// Circuit breaker transitions for the forecast upstream.
	CircuitBreakerTransitionsTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	ForecastAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastApiCallsTotal",
			Help: "Total number of Open-Meteo API calls",
		},
		[]string{"status"},
	)
	ForecastAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "forecastApiDurationSeconds",
			Help:    "Open-Meteo API latency in seconds (per bulk request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	ForecastAPIRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forecastApiRetriesTotal",
			Help: "Total number of retry attempts for forecast API calls",
		},
	)
	ForecastBatchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forecastBatchSize",
			Help:    "Locations per bulk forecast request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)
	LookupsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lookupsTotal",
			Help: "Total number of coolest-zip lookups",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of cache hits. Hit rate = cacheHitsTotal / lookupsTotal.",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Cache backend failures by operation",
		},
		[]string{"operation"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	CircuitBreakerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuitBreakerTransitionsTotal",
			Help: "Circuit breaker state transitions for the forecast upstream",
		},
		[]string{"from", "to"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		ForecastAPICallsTotal, ForecastAPIDuration, ForecastAPIRetriesTotal, ForecastBatchSize,
		LookupsTotal, CacheHitsTotal, CacheErrorsTotal,
		RateLimitDeniedTotal, CircuitBreakerTransitionsTotal,
	)
}

// MetricsHandler returns the /metrics handler backed by the private registry.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
