package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector provides application metrics collection
type Collector struct {
	// API Metrics
	APIRequestsTotal   *prometheus.CounterVec
	APIRequestDuration *prometheus.HistogramVec
	APIErrorsTotal     *prometheus.CounterVec

	// Provider fetch metrics
	FetchRequestsTotal *prometheus.CounterVec
	FetchDuration      *prometheus.HistogramVec
	FetchErrorsTotal   *prometheus.CounterVec
	FetchRetriesTotal  *prometheus.CounterVec

	// Aggregator metrics
	UpdateRunsTotal     *prometheus.CounterVec
	UpdateDuration      prometheus.Histogram
	CASConflictsTotal   prometheus.Counter
	YearlySharePercent  prometheus.Gauge
	DailySharePercent   prometheus.Gauge
	FinalizedDayOfYear  prometheus.Gauge

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database Metrics
	DBQueryDuration  *prometheus.HistogramVec
	DBConnectionPool *prometheus.GaugeVec
	DBErrorsTotal    *prometheus.CounterVec
}

// NewCollector creates a new metrics collector
func NewCollector(namespace string) *Collector {
	return &Collector{
		APIRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total number of API requests by endpoint, method, and status",
			},
			[]string{"endpoint", "method", "status"},
		),

		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
			},
			[]string{"endpoint"},
		),

		APIErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of API errors by type",
			},
			[]string{"error_type", "endpoint"},
		),

		FetchRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_requests_total",
				Help:      "Total number of upstream fetch requests by source",
			},
			[]string{"source"},
		),

		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Upstream fetch duration in seconds by source",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"source"},
		),

		FetchErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_errors_total",
				Help:      "Total number of upstream fetch errors by source and type",
			},
			[]string{"source", "error_type"},
		),

		FetchRetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_retries_total",
				Help:      "Total number of upstream fetch retries by source",
			},
			[]string{"source"},
		),

		UpdateRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "yearly_update_runs_total",
				Help:      "Total number of yearly aggregate update runs by outcome",
			},
			[]string{"outcome"}, // "advanced", "noop", "rejected", "failed"
		),

		UpdateDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "yearly_update_duration_seconds",
				Help:      "Duration of yearly aggregate updates in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),

		CASConflictsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "yearly_state_cas_conflicts_total",
				Help:      "Total number of compare-and-swap conflicts on the yearly state record",
			},
		),

		YearlySharePercent: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "yearly_share_percent",
				Help:      "Last persisted yearly renewable share percentage",
			},
		),

		DailySharePercent: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "daily_share_percent",
				Help:      "Last computed daily renewable share percentage",
			},
		),

		FinalizedDayOfYear: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "finalized_day_of_year",
				Help:      "Day of year through which totals are finalized (0 = none)",
			},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of daily-fetch cache hits by kind",
			},
			[]string{"kind"},
		),

		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of daily-fetch cache misses by kind",
			},
			[]string{"kind"},
		),

		DBQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Database query duration in seconds by query type",
				Buckets:   []float64{0.001, 0.002, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
			},
			[]string{"query_type"},
		),

		DBConnectionPool: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connection_pool",
				Help:      "Database connection pool statistics",
			},
			[]string{"state"}, // "in_use", "idle", "total"
		),

		DBErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_errors_total",
				Help:      "Total number of database errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// Timer provides timing functionality for operations
type Timer struct {
	start    time.Time
	observer prometheus.Observer
}

// NewTimer creates a new timer
func (c *Collector) NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		start:    time.Now(),
		observer: histogram,
	}
}

// ObserveDuration records the elapsed time since timer creation
func (t *Timer) ObserveDuration() time.Duration {
	duration := time.Since(t.start)
	if t.observer != nil {
		t.observer.Observe(duration.Seconds())
	}
	return duration
}

// RecordAPIRequest increments API request counter
func (c *Collector) RecordAPIRequest(endpoint, method, status string) {
	c.APIRequestsTotal.WithLabelValues(endpoint, method, status).Inc()
}

// RecordAPIError increments API error counter
func (c *Collector) RecordAPIError(errorType, endpoint string) {
	c.APIErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordFetch records an upstream fetch and its duration
func (c *Collector) RecordFetch(source string, duration time.Duration) {
	c.FetchRequestsTotal.WithLabelValues(source).Inc()
	c.FetchDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordFetchError increments fetch error counter
func (c *Collector) RecordFetchError(source, errorType string) {
	c.FetchErrorsTotal.WithLabelValues(source, errorType).Inc()
}

// RecordFetchRetry increments fetch retry counter
func (c *Collector) RecordFetchRetry(source string) {
	c.FetchRetriesTotal.WithLabelValues(source).Inc()
}

// RecordUpdateRun increments the update run counter for an outcome
func (c *Collector) RecordUpdateRun(outcome string) {
	c.UpdateRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheHit increments the cache hit counter
func (c *Collector) RecordCacheHit(kind string) {
	c.CacheHitsTotal.WithLabelValues(kind).Inc()
}

// RecordCacheMiss increments the cache miss counter
func (c *Collector) RecordCacheMiss(kind string) {
	c.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// RecordDBError increments database error counter
func (c *Collector) RecordDBError(errorType string) {
	c.DBErrorsTotal.WithLabelValues(errorType).Inc()
}

// UpdateDBConnectionPool updates database connection pool metrics
func (c *Collector) UpdateDBConnectionPool(inUse, idle, total int) {
	c.DBConnectionPool.WithLabelValues("in_use").Set(float64(inUse))
	c.DBConnectionPool.WithLabelValues("idle").Set(float64(idle))
	c.DBConnectionPool.WithLabelValues("total").Set(float64(total))
}
