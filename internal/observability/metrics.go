package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// catalog builder, merge engine, and proximity resolver.
type Metrics struct {
	PartitionsFetched    prometheus.Counter
	PartitionErrors      prometheus.Counter
	SitesCataloged       *prometheus.GaugeVec // labels: provider
	CatalogBuildDuration prometheus.Histogram
	CatalogLoadsRejected prometheus.Counter

	MergeRequests    prometheus.Counter
	MergeSourceMiss  *prometheus.CounterVec // labels: source={historical,forecast,nowcast}
	MergeDuration    prometheus.Histogram
	PublishedSites   prometheus.Counter
	CatalogPublished prometheus.Gauge

	// Proximity resolver metrics.
	ReachLookups *prometheus.CounterVec // labels: catalog={primary,secondary}, outcome={hit,miss,error}
	ReachCache   *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		PartitionsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "partitions_fetched_total",
			Help:      "Bulk fetch partitions that returned a payload.",
		}),
		PartitionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "partition_errors_total",
			Help:      "Bulk fetch partitions skipped after a request failure.",
		}),
		SitesCataloged: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "river_gauge",
			Name:      "sites_cataloged",
			Help:      "Sites in the current catalog by provider.",
		}, []string{"provider"}),
		CatalogBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "river_gauge",
			Name:      "catalog_build_duration_seconds",
			Help:      "Duration of a complete bulk catalog build.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		CatalogLoadsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "catalog_loads_rejected_total",
			Help:      "Bulk load requests ignored because a load was already in flight.",
		}),
		MergeRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "merge_requests_total",
			Help:      "On-demand series bundle builds.",
		}),
		MergeSourceMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "merge_source_miss_total",
			Help:      "Merge sources that produced no data, by source kind.",
		}, []string{"source"}),
		MergeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "river_gauge",
			Name:      "merge_duration_seconds",
			Help:      "Duration of a three-source series merge.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		PublishedSites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "published_sites_total",
			Help:      "Sites published to the catalog topic.",
		}),
		CatalogPublished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "river_gauge",
			Name:      "catalog_publishing_enabled",
			Help:      "1 when catalog publishing is enabled, 0 otherwise.",
		}),
		ReachLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "reach_lookups_total",
			Help:      "Nearest-reach lookups by catalog and outcome.",
		}, []string{"catalog", "outcome"}),
		ReachCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "river_gauge",
			Name:      "reach_cache_total",
			Help:      "Nearest-reach cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.PartitionsFetched,
		m.PartitionErrors,
		m.SitesCataloged,
		m.CatalogBuildDuration,
		m.CatalogLoadsRejected,
		m.MergeRequests,
		m.MergeSourceMiss,
		m.MergeDuration,
		m.PublishedSites,
		m.CatalogPublished,
		m.ReachLookups,
		m.ReachCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		PartitionsFetched:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_gauge", Name: "partitions_fetched_total"}),
		PartitionErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_gauge", Name: "partition_errors_total"}),
		SitesCataloged:       prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "river_gauge", Name: "sites_cataloged"}, []string{"provider"}),
		CatalogBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "river_gauge", Name: "catalog_build_duration_seconds"}),
		CatalogLoadsRejected: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_gauge", Name: "catalog_loads_rejected_total"}),
		MergeRequests:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_gauge", Name: "merge_requests_total"}),
		MergeSourceMiss:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "river_gauge", Name: "merge_source_miss_total"}, []string{"source"}),
		MergeDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "river_gauge", Name: "merge_duration_seconds"}),
		PublishedSites:       prometheus.NewCounter(prometheus.CounterOpts{Namespace: "river_gauge", Name: "published_sites_total"}),
		CatalogPublished:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "river_gauge", Name: "catalog_publishing_enabled"}),
		ReachLookups:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "river_gauge", Name: "reach_lookups_total"}, []string{"catalog", "outcome"}),
		ReachCache:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "river_gauge", Name: "reach_cache_total"}, []string{"result"}),
	}
}
