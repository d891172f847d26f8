package health

import "context"

// IndexChecker checks that the search index is reachable and exists.
type IndexChecker interface {
	CheckIndex(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
