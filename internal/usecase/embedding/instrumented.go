package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// InstrumentedEmbedder wraps an Embedder with call logging and an optional
// request-rate limit. Transport metrics (requests, duration, tokens) are recorded
// in transport/openai. Calls are never retried.
type InstrumentedEmbedder struct {
	inner   domain.Embedder
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. requestsPerSecond <= 0 disables the limiter.
func NewInstrumentedEmbedder(
	inner domain.Embedder, model string,
	requestsPerSecond float64, logger *zap.Logger,
) *InstrumentedEmbedder {
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return &InstrumentedEmbedder{
		inner:   inner,
		model:   model,
		limiter: limiter,
		logger:  logger,
	}
}

// Embed waits for the limiter, delegates to the inner embedder and logs the call.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return domain.EmbeddingResult{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Warn("Embedding request failed",
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Int("chars", len(text)),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Embedding request completed",
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// HealthCheck delegates to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}
