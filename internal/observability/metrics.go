package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// feed pipeline.
type Metrics struct {
	FetchRequests *prometheus.CounterVec // labels: range, outcome={hit,success,error,aborted}
	FetchDuration prometheus.Histogram

	// Cache metrics.
	CacheLookups   *prometheus.CounterVec // labels: tier={memory,durable}, result={hit,miss}
	CacheEvictions prometheus.Counter
	CacheErrors    prometheus.Counter

	// Selection and clustering metrics.
	EventsVisible     prometheus.Gauge
	EventsCulled      prometheus.Gauge
	ClusterCount      prometheus.Gauge
	SelectionDuration prometheus.Histogram

	PipelineRunning    prometheus.Gauge
	SnapshotsPublished prometheus.Counter
	PublishErrors      prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "fetch_requests_total",
			Help:      "Feed fetch attempts by time range and outcome.",
		}, []string{"range", "outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_map",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of network feed fetches, cache hits excluded.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "cache_evictions_total",
			Help:      "Memory-tier entries evicted to honor the size cap.",
		}),
		CacheErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "cache_errors_total",
			Help:      "Durable cache operations that failed and degraded to a miss.",
		}),
		EventsVisible: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_map",
			Name:      "events_visible",
			Help:      "Events inside the current viewport before the render cap.",
		}),
		EventsCulled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_map",
			Name:      "events_culled",
			Help:      "Visible events dropped by the render cap.",
		}),
		ClusterCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_map",
			Name:      "clusters",
			Help:      "Clusters produced by the last recomputation.",
		}),
		SelectionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "quake_map",
			Name:      "selection_duration_seconds",
			Help:      "Duration of one viewport-select plus cluster recomputation.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "quake_map",
			Name:      "pipeline_running",
			Help:      "1 when the orchestrator loop is active, 0 when shut down.",
		}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "snapshots_published_total",
			Help:      "Normalized event batches published to Kafka.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "quake_map",
			Name:      "publish_errors_total",
			Help:      "Kafka publish attempts that failed.",
		}),
	}

	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.CacheLookups,
		m.CacheEvictions,
		m.CacheErrors,
		m.EventsVisible,
		m.EventsCulled,
		m.ClusterCount,
		m.SelectionDuration,
		m.PipelineRunning,
		m.SnapshotsPublished,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FetchRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_map", Name: "fetch_requests_total"}, []string{"range", "outcome"}),
		FetchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_map", Name: "fetch_duration_seconds"}),
		CacheLookups:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "quake_map", Name: "cache_lookups_total"}, []string{"tier", "result"}),
		CacheEvictions:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_map", Name: "cache_evictions_total"}),
		CacheErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_map", Name: "cache_errors_total"}),
		EventsVisible:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_map", Name: "events_visible"}),
		EventsCulled:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_map", Name: "events_culled"}),
		ClusterCount:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_map", Name: "clusters"}),
		SelectionDuration:  prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "quake_map", Name: "selection_duration_seconds"}),
		PipelineRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "quake_map", Name: "pipeline_running"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_map", Name: "snapshots_published_total"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "quake_map", Name: "publish_errors_total"}),
	}
}
