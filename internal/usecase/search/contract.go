package search

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Repository defines the storage contract for retrieval.
type Repository interface {
	SearchVector(ctx context.Context, vector []float32, k int) ([]domain.Hit, error)
	SearchText(ctx context.Context, query string, k int) ([]domain.Hit, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
