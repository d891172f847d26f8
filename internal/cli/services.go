package cli

import (
	"context"
	"net/http"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/domain/result"
	"github.com/kailas-cloud/docqa/internal/usecase/analyze"
	"github.com/kailas-cloud/docqa/internal/usecase/chat"
	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
	"github.com/kailas-cloud/docqa/internal/usecase/upload"
)

// Uploader copies local documents into object storage.
type Uploader interface {
	UploadPath(ctx context.Context, path, pattern string) ([]result.Result, error)
	List(ctx context.Context) (upload.Listing, error)
}

// IndexManager creates the search index schema.
type IndexManager interface {
	EnsureIndex(ctx context.Context) (bool, error)
	IndexName() string
}

// Ingester runs the indexing pipeline over a source.
type Ingester interface {
	Run(ctx context.Context, src ingest.Source) (ingest.Report, error)
}

// Asker answers questions within a conversation.
type Asker interface {
	Ask(ctx context.Context, conv *domain.Conversation, question string) (chat.Answer, error)
}

// Analyzer reports on a single document around a keyword.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, path, keyword string) (analyze.Analysis, error)
}

// Searcher finds index records matching a query.
type Searcher interface {
	Retrieve(ctx context.Context, query string, cfg domain.RetrievalConfig) ([]domain.Hit, error)
}

// Services builds command collaborators on demand, so that each command only
// needs the credentials of the services it talks to. Every constructor fails
// with domain.ErrConfig when required settings are missing.
type Services interface {
	Uploader(ctx context.Context) (Uploader, error)
	Index(ctx context.Context) (IndexManager, error)
	Ingester(ctx context.Context) (Ingester, error)
	BlobSource(ctx context.Context) (ingest.Source, error)
	Asker(ctx context.Context) (Asker, error)
	Analyzer(ctx context.Context) (Analyzer, error)
	// Searcher needs the embedding endpoint only for query types other than simple.
	Searcher(ctx context.Context, qt domain.QueryType) (Searcher, error)
	Handler(ctx context.Context) (http.Handler, error)
	Close()
}
