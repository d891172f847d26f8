package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var registerOnce sync.Once

// Register registers every docqa collector with the default registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			ChatRequestsTotal,
			ChatRequestDuration,
			ChatTokensTotal,
			IngestDocumentsTotal,
			IngestChunksTotal,
			IngestBatchesTotal,
			IngestRecordsTotal,
			IngestStaleRecords,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}
