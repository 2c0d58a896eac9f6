package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the clustering service.
type Metrics struct {
	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Batch metrics
	BatchesProcessed prometheus.Counter
	PointsProcessed  prometheus.Counter
	BatchSize        prometheus.Histogram
	BatchDuration    prometheus.Histogram

	// Per-stage metrics
	StageDuration *prometheus.HistogramVec

	// Clustering result metrics
	SeedsFound     prometheus.Histogram
	ClustersFound  prometheus.Histogram
	OutliersFound  prometheus.Histogram

	// Saturation metrics (never fatal, always surfaced)
	SaturationEvents *prometheus.CounterVec

	// Per-layer metrics
	LayerBatchesTotal *prometheus.CounterVec
	LayerPointsTotal  *prometheus.CounterVec
	LayerQuotaUsage   *prometheus.GaugeVec

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheSize   prometheus.Gauge

	// System metrics
	GoroutinesCount prometheus.Gauge
	MemoryUsage     prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clue_requests_total",
				Help: "Total number of requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clue_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clue_request_errors_total",
				Help: "Total number of request errors by method and error type",
			},
			[]string{"method", "error_type"},
		),

		BatchesProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "clue_batches_processed_total",
				Help: "Total number of clustering batches processed",
			},
		),
		PointsProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "clue_points_processed_total",
				Help: "Total number of points processed across all batches",
			},
		),
		BatchSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clue_batch_size_points",
				Help:    "Number of points per clustering batch",
				Buckets: []float64{10, 100, 1000, 10000, 100000, 500000, 1000000},
			},
		),
		BatchDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clue_batch_duration_seconds",
				Help:    "Total wall-clock duration of a clustering batch (all stages)",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),

		StageDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "clue_stage_duration_seconds",
				Help:    "Duration of a single pipeline stage by name",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"stage"},
		),

		SeedsFound: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clue_seeds_found",
				Help:    "Number of seeds found per batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100},
			},
		),
		ClustersFound: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clue_clusters_found",
				Help:    "Number of distinct clusters found per batch",
				Buckets: []float64{1, 5, 10, 25, 50, 100},
			},
		),
		OutliersFound: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clue_outliers_found",
				Help:    "Number of outlier points found per batch",
				Buckets: []float64{0, 1, 5, 10, 50, 100, 500},
			},
		),

		SaturationEvents: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clue_saturation_events_total",
				Help: "Total number of bounded-container overflow events by container kind",
			},
			[]string{"container"},
		),

		LayerBatchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clue_layer_batches_total",
				Help: "Total number of batches processed by detector layer",
			},
			[]string{"layer"},
		),
		LayerPointsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clue_layer_points_total",
				Help: "Total number of points processed by detector layer",
			},
			[]string{"layer"},
		),
		LayerQuotaUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "clue_layer_quota_usage",
				Help: "Fraction of the per-batch point quota used by the most recent batch, by layer",
			},
			[]string{"layer"},
		),

		CacheHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "clue_cache_hits_total",
				Help: "Total number of cluster-result cache hits",
			},
		),
		CacheMisses: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "clue_cache_misses_total",
				Help: "Total number of cluster-result cache misses",
			},
		),
		CacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "clue_cache_size",
				Help: "Current number of entries in the cluster-result cache",
			},
		),

		GoroutinesCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "clue_goroutines",
				Help: "Current number of goroutines",
			},
		),
		MemoryUsage: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "clue_memory_bytes",
				Help: "Memory usage in bytes",
			},
		),
	}

	return m
}

// RecordRequest records a request with duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a request error.
func (m *Metrics) RecordError(method, errorType string) {
	m.RequestErrors.WithLabelValues(method, errorType).Inc()
}

// RecordBatch records one completed clustering batch: its size, total
// duration, seed/cluster/outlier counts.
func (m *Metrics) RecordBatch(nPoints int, duration time.Duration, nSeeds, nClusters, nOutliers int) {
	m.BatchesProcessed.Inc()
	m.PointsProcessed.Add(float64(nPoints))
	m.BatchSize.Observe(float64(nPoints))
	m.BatchDuration.Observe(duration.Seconds())
	m.SeedsFound.Observe(float64(nSeeds))
	m.ClustersFound.Observe(float64(nClusters))
	m.OutliersFound.Observe(float64(nOutliers))
}

// RecordStage records the duration of a single pipeline stage.
func (m *Metrics) RecordStage(stage string, duration time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSaturation records a bounded-container overflow event. Never an
// error: purely a diagnostic counter per the "never fatal" saturation
// rule.
func (m *Metrics) RecordSaturation(container string, count uint64) {
	if count == 0 {
		return
	}
	m.SaturationEvents.WithLabelValues(container).Add(float64(count))
}

// RecordLayerBatch records a batch processed for a named detector layer,
// along with the fraction of its quota used.
func (m *Metrics) RecordLayerBatch(layer string, nPoints int, quotaFraction float64) {
	m.LayerBatchesTotal.WithLabelValues(layer).Inc()
	m.LayerPointsTotal.WithLabelValues(layer).Add(float64(nPoints))
	m.LayerQuotaUsage.WithLabelValues(layer).Set(quotaFraction)
}

// RecordCacheHit records a cluster-result cache hit.
func (m *Metrics) RecordCacheHit() {
	m.CacheHits.Inc()
}

// RecordCacheMiss records a cluster-result cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.CacheMisses.Inc()
}

// UpdateCacheSize updates the cache size gauge.
func (m *Metrics) UpdateCacheSize(size int) {
	m.CacheSize.Set(float64(size))
}

// UpdateGoroutineCount updates the goroutine-count gauge.
func (m *Metrics) UpdateGoroutineCount(count int) {
	m.GoroutinesCount.Set(float64(count))
}

// UpdateMemoryUsage updates the memory-usage gauge.
func (m *Metrics) UpdateMemoryUsage(bytes uint64) {
	m.MemoryUsage.Set(float64(bytes))
}
