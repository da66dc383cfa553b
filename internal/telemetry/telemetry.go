// Package telemetry provides Prometheus instrumentation for the ingestion
// service.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all ingestion Prometheus metrics.
type Metrics struct {
	// Parsing metrics
	ArticlesParsed  *prometheus.CounterVec
	ArticlesSkipped *prometheus.CounterVec

	// Persistence metrics
	AlertsIngested *prometheus.CounterVec

	// Clustering metrics
	ClustersCreated     prometheus.Counter
	ClustersJoined      prometheus.Counter
	ClusteringFailures  prometheus.Counter
	IngestBatchDuration prometheus.Histogram
}

// Skip reasons used as label values on ArticlesSkipped.
const (
	SkipDuplicate = "duplicate"
	SkipStale     = "stale"
	SkipOverCap   = "over_cap"
)

// NewMetrics registers and returns the ingestion metrics. Call once per
// process; promauto panics on duplicate registration.
func NewMetrics() *Metrics {
	return &Metrics{
		ArticlesParsed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alerthub_articles_parsed_total",
			Help: "Total article candidates extracted from source documents",
		}, []string{"source"}),

		ArticlesSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alerthub_articles_skipped_total",
			Help: "Total article candidates dropped before persistence",
		}, []string{"source", "reason"}),

		AlertsIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alerthub_alerts_ingested_total",
			Help: "Total alerts persisted in pending status",
		}, []string{"source"}),

		ClustersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerthub_clusters_created_total",
			Help: "Total new cluster groups created",
		}),

		ClustersJoined: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerthub_clusters_joined_total",
			Help: "Total alerts joined to an existing cluster group",
		}),

		ClusteringFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alerthub_clustering_failures_total",
			Help: "Total alerts left unclustered after bounded retries",
		}),

		IngestBatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "alerthub_ingest_batch_duration_seconds",
			Help:    "Wall time of a full ingest batch including clustering",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordParsed counts extracted candidates for a source. Safe on nil.
func (m *Metrics) RecordParsed(source string, n int) {
	if m == nil {
		return
	}
	m.ArticlesParsed.WithLabelValues(source).Add(float64(n))
}

// RecordSkipped counts dropped candidates for a source. Safe on nil.
func (m *Metrics) RecordSkipped(source, reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.ArticlesSkipped.WithLabelValues(source, reason).Add(float64(n))
}

// RecordIngested counts persisted alerts for a source. Safe on nil.
func (m *Metrics) RecordIngested(source string, n int) {
	if m == nil {
		return
	}
	m.AlertsIngested.WithLabelValues(source).Add(float64(n))
}

// ObserveIngestBatch records how long one ingest batch took end to end,
// persistence and clustering included. Safe on nil.
func (m *Metrics) ObserveIngestBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.IngestBatchDuration.Observe(d.Seconds())
}

// RecordClusterCreated counts a newly opened cluster group. Safe on nil.
func (m *Metrics) RecordClusterCreated() {
	if m == nil {
		return
	}
	m.ClustersCreated.Inc()
}

// RecordClusterJoined counts an alert joining an existing group. Safe on nil.
func (m *Metrics) RecordClusterJoined() {
	if m == nil {
		return
	}
	m.ClustersJoined.Inc()
}

// RecordClusteringFailure counts an alert left unclustered. Safe on nil.
func (m *Metrics) RecordClusteringFailure() {
	if m == nil {
		return
	}
	m.ClusteringFailures.Inc()
}
