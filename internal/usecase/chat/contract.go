package chat

import (
	"context"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Retriever finds index records relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, question string, cfg domain.RetrievalConfig) ([]domain.Hit, error)
}

// Linker resolves a record source into a citation URL.
type Linker interface {
	URL(source string) string
}
