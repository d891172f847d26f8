package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// DefaultMaxInputChars caps the text sent per embedding request.
const DefaultMaxInputChars = 8000

// Embedder is an embedding provider using the Azure OpenAI or OpenAI-compatible API.
type Embedder struct {
	client        *openai.Client
	deployment    string
	dimensions    int
	maxInputChars int
	logger        *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	Client        ClientConfig
	Deployment    string
	Dimensions    int
	MaxInputChars int
	Logger        *zap.Logger
}

// NewEmbedder creates an embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	maxChars := cfg.MaxInputChars
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:        NewClient(cfg.Client),
		deployment:    cfg.Deployment,
		dimensions:    cfg.Dimensions,
		maxInputChars: maxChars,
		logger:        logger,
	}
}

// Embed implements domain.Embedder. Input longer than the configured limit is truncated.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if strings.TrimSpace(text) == "" {
		return domain.EmbeddingResult{}, domain.ErrEmptyText
	}

	req := openai.EmbeddingRequest{
		Input:          []string{Truncate(text, e.maxInputChars)},
		Model:          openai.EmbeddingModel(e.deployment),
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	// Only the text-embedding-3 family accepts a dimensions parameter.
	if e.dimensions > 0 && strings.Contains(e.deployment, "text-embedding-3") {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.deployment, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.deployment, "api_error").Inc()
		return domain.EmbeddingResult{}, parseAPIError("embedding", err,
			domain.ErrEmbeddingProviderError, domain.ErrEmbeddingQuotaExceeded)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.deployment, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.deployment, "empty_response").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}

	vec := resp.Data[0].Embedding
	if e.dimensions > 0 && len(vec) != e.dimensions {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.deployment, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.deployment, "dim_mismatch").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("got %d dimensions, want %d: %w",
			len(vec), e.dimensions, domain.ErrVectorDimMismatch)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.deployment, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.deployment).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.deployment, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.deployment, "total").Add(float64(resp.Usage.TotalTokens))
	}

	return domain.EmbeddingResult{
		Embedding:    vec,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck sends a one-word embedding request. Azure deployments do not expose ListModels.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	_, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{"ping"},
		Model: openai.EmbeddingModel(e.deployment),
	})
	if err != nil {
		return fmt.Errorf("embedding health check: %w", err)
	}
	return nil
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
