package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingestion pipeline metrics.
var (
	IngestDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_documents_total",
			Help:      "Documents processed by outcome",
		},
		[]string{"outcome"}, // ok / skipped
	)

	IngestChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks processed by outcome",
		},
		[]string{"outcome"}, // embedded / skipped
	)

	IngestBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_batches_total",
			Help:      "Record batches sent to the index by outcome",
		},
		[]string{"outcome"}, // ok / lost
	)

	IngestRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Records upserted into the index",
		},
	)

	IngestStaleRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_stale_records",
			Help:      "Records left over from a longer previous version of a document",
		},
		[]string{"source"},
	)
)
