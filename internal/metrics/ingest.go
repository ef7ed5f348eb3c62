package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion Prometheus metrics.
var (
	IngestRecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexus",
			Name:      "ingest_records_total",
			Help:      "Total number of records processed by ingestion runs",
		},
		[]string{"source", "status"}, // status: "ingested" / "skipped"
	)

	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nexus",
			Name:      "ingest_batches_total",
			Help:      "Total number of upsert batches",
		},
		[]string{"status"},
	)

	IngestRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nexus",
			Name:      "ingest_run_duration_seconds",
			Help:      "End-to-end ingestion run duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"source"},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers Prometheus ingestion metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestRecordsTotal)
	prometheus.MustRegister(IngestBatchesTotal)
	prometheus.MustRegister(IngestRunDuration)
	ingestMetricsRegistered = true
}
