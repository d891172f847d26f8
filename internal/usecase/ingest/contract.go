package ingest

import (
	"context"
	"io"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Extractor turns a document's bytes into plain text.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// Splitter cuts text into chunks.
type Splitter interface {
	Split(documentID, text string) []domain.Chunk
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Sink stores index records.
type Sink interface {
	Upsert(ctx context.Context, records []domain.IndexRecord) error
	// CountFrom counts records of source with a chunk index >= fromChunk.
	CountFrom(ctx context.Context, source string, fromChunk int) (int, error)
}

// Source enumerates and loads the documents of one run.
type Source interface {
	// List returns document names in processing order.
	List(ctx context.Context) ([]string, error)
	// Load reads one document.
	Load(ctx context.Context, name string) (domain.Document, error)
	// String describes the source for logs.
	String() string
}
