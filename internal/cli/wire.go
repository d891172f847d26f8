package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/chunker"
	"github.com/kailas-cloud/docqa/internal/config"
	dbRedis "github.com/kailas-cloud/docqa/internal/db/redis"
	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/extract"
	"github.com/kailas-cloud/docqa/internal/metrics"
	"github.com/kailas-cloud/docqa/internal/repository/blob"
	"github.com/kailas-cloud/docqa/internal/repository/embcache"
	"github.com/kailas-cloud/docqa/internal/repository/history"
	"github.com/kailas-cloud/docqa/internal/repository/record"
	chiTransport "github.com/kailas-cloud/docqa/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/docqa/internal/transport/openai"
	"github.com/kailas-cloud/docqa/internal/usecase/analyze"
	chatuc "github.com/kailas-cloud/docqa/internal/usecase/chat"
	embeddinguc "github.com/kailas-cloud/docqa/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/docqa/internal/usecase/health"
	"github.com/kailas-cloud/docqa/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docqa/internal/usecase/search"
	"github.com/kailas-cloud/docqa/internal/usecase/upload"
)

// wiring is the production Services: each collaborator is created on first use
// and shared by the rest of the command.
type wiring struct {
	cfg    *config.Config
	logger *zap.Logger

	redis    *dbRedis.Store
	blob     *blob.Store
	embedder *embeddinguc.InstrumentedEmbedder
	records  *record.Repo
}

// NewServices returns the production wiring.
func NewServices(cfg *config.Config, logger *zap.Logger) Services {
	metrics.Register()
	return &wiring{cfg: cfg, logger: logger}
}

func (w *wiring) Close() {
	if w.redis != nil {
		w.redis.Close()
	}
}

func (w *wiring) redisStore(ctx context.Context) (*dbRedis.Store, error) {
	if w.redis != nil {
		return w.redis, nil
	}
	if err := w.cfg.RequireSearch(); err != nil {
		return nil, err
	}
	s := w.cfg.Search
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    s.Addrs,
		Username: s.Username,
		Password: s.Password,
		TLS:      s.TLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrConfig, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(s.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	w.logger.Debug("Connected to search index", zap.Strings("addrs", s.Addrs))
	w.redis = store
	return store, nil
}

func (w *wiring) blobStore() (*blob.Store, error) {
	if w.blob != nil {
		return w.blob, nil
	}
	if err := w.cfg.RequireStorage(); err != nil {
		return nil, err
	}
	s := w.cfg.Storage
	store, err := blob.NewStore(blob.Config{
		Account:    s.Account,
		AccountKey: s.AccountKey,
		Container:  s.Container,
		Endpoint:   s.Endpoint,
	}, w.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: storage: %w", domain.ErrConfig, err)
	}
	w.blob = store
	return store, nil
}

func (w *wiring) clientConfig(timeoutSec int) openaiTransport.ClientConfig {
	e := w.cfg.Embedding
	return openaiTransport.ClientConfig{
		APIType:    e.APIType,
		BaseURL:    e.BaseURL,
		APIKey:     e.APIKey,
		APIVersion: e.APIVersion,
		Timeout:    time.Duration(timeoutSec) * time.Second,
	}
}

// embed assembles the decorator chain: OpenAI -> Cached -> Instrumented.
func (w *wiring) embed(ctx context.Context) (*embeddinguc.InstrumentedEmbedder, error) {
	if w.embedder != nil {
		return w.embedder, nil
	}
	if err := w.cfg.RequireEmbedding(); err != nil {
		return nil, err
	}
	e := w.cfg.Embedding

	var embedder domain.Embedder = openaiTransport.NewEmbedder(&openaiTransport.Config{
		Client:        w.clientConfig(e.TimeoutSec),
		Deployment:    e.Deployment,
		Dimensions:    e.Dimensions,
		MaxInputChars: e.MaxInputChars,
		Logger:        w.logger,
	})

	if e.Cache.Enabled {
		store, err := w.redisStore(ctx)
		if err != nil {
			return nil, err
		}
		embedder = embcache.New(embedder, store, embcache.Options{
			KeyPrefix: w.cfg.Search.KeyPrefix,
			Model:     e.Deployment,
			TTL:       time.Duration(e.Cache.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, w.logger)
	}

	w.embedder = embeddinguc.NewInstrumentedEmbedder(embedder, e.Deployment, e.RequestsPerSecond, w.logger)
	return w.embedder, nil
}

func (w *wiring) recordRepo(ctx context.Context) (*record.Repo, error) {
	if w.records != nil {
		return w.records, nil
	}
	store, err := w.redisStore(ctx)
	if err != nil {
		return nil, err
	}
	s := w.cfg.Search
	w.records = record.New(store, record.Schema{
		IndexName:       s.IndexName,
		KeyPrefix:       s.KeyPrefix,
		Dimensions:      s.Dimensions,
		Algorithm:       s.Algorithm,
		DistanceMetric:  s.DistanceMetric,
		HNSWM:           s.HNSWM,
		HNSWEFConstruct: s.HNSWEFConstruct,
	})
	return w.records, nil
}

func (w *wiring) Uploader(context.Context) (Uploader, error) {
	store, err := w.blobStore()
	if err != nil {
		return nil, err
	}
	return upload.New(store, w.logger), nil
}

func (w *wiring) Index(ctx context.Context) (IndexManager, error) {
	return w.recordRepo(ctx)
}

func (w *wiring) Ingester(ctx context.Context) (Ingester, error) {
	in := w.cfg.Ingest
	split, err := chunker.New(chunker.WithChunkSize(in.ChunkSize), chunker.WithOverlap(in.Overlap()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	embedder, err := w.embed(ctx)
	if err != nil {
		return nil, err
	}
	records, err := w.recordRepo(ctx)
	if err != nil {
		return nil, err
	}
	return ingest.New(extract.NewPDF(), split, embedder, records, ingest.Config{
		BatchSize:     in.BatchSize,
		ProgressEvery: in.ProgressEvery,
	}, w.logger), nil
}

func (w *wiring) BlobSource(context.Context) (ingest.Source, error) {
	store, err := w.blobStore()
	if err != nil {
		return nil, err
	}
	return ingest.NewBlobSource(store, w.cfg.Storage.Pattern), nil
}

func (w *wiring) Asker(ctx context.Context) (Asker, error) {
	return w.chatService(ctx)
}

func (w *wiring) chatModel() (*openaiTransport.ChatModel, error) {
	if err := w.cfg.RequireChat(); err != nil {
		return nil, err
	}
	return openaiTransport.NewChatModel(&openaiTransport.ChatConfig{
		Client:     w.clientConfig(w.cfg.Chat.TimeoutSec),
		Deployment: w.cfg.Chat.Deployment,
		Logger:     w.logger,
	}), nil
}

func (w *wiring) Analyzer(context.Context) (Analyzer, error) {
	model, err := w.chatModel()
	if err != nil {
		return nil, err
	}
	return analyze.New(extract.NewPDF(), model, analyze.DefaultOptions(w.cfg.Chat.Deployment), w.logger), nil
}

func (w *wiring) Searcher(ctx context.Context, qt domain.QueryType) (Searcher, error) {
	records, err := w.recordRepo(ctx)
	if err != nil {
		return nil, err
	}
	var embedder searchuc.Embedder
	if qt != domain.QuerySimple {
		if embedder, err = w.embed(ctx); err != nil {
			return nil, err
		}
	}
	return searchuc.New(records, embedder), nil
}

func (w *wiring) chatService(ctx context.Context) (*chatuc.Service, error) {
	model, err := w.chatModel()
	if err != nil {
		return nil, err
	}

	opts := w.cfg.ChatOptions()
	var retriever chatuc.Retriever
	if opts.Retrieval != nil {
		embedder, err := w.embed(ctx)
		if err != nil {
			return nil, err
		}
		records, err := w.recordRepo(ctx)
		if err != nil {
			return nil, err
		}
		retriever = searchuc.New(records, embedder)
	}

	// citations link to blobs only when storage is configured
	var linker chatuc.Linker
	if w.cfg.RequireStorage() == nil {
		store, err := w.blobStore()
		if err != nil {
			return nil, err
		}
		linker = store
	}

	return chatuc.New(model, retriever, linker, opts, w.logger), nil
}

func (w *wiring) Handler(ctx context.Context) (http.Handler, error) {
	asker, err := w.chatService(ctx)
	if err != nil {
		return nil, err
	}
	store, err := w.redisStore(ctx)
	if err != nil {
		return nil, err
	}
	records, err := w.recordRepo(ctx)
	if err != nil {
		return nil, err
	}
	var embedding healthuc.EmbeddingChecker
	if w.cfg.RequireEmbedding() == nil {
		if embedding, err = w.embed(ctx); err != nil {
			return nil, err
		}
	}

	sessions := history.New(store, w.cfg.Search.KeyPrefix, time.Duration(w.cfg.HTTP.SessionTTLSec)*time.Second,
		history.WithMaxTurns(w.cfg.HTTP.SessionMaxTurns))
	health := healthuc.New(records, embedding, w.logger)
	server := chiTransport.NewServer(asker, sessions, health, w.cfg.Chat.SystemPrompt, w.logger)
	return chiTransport.NewRouter(server, w.cfg.HTTP.APIKeys, w.logger), nil
}
