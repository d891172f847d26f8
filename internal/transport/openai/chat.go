package openai

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
	"github.com/kailas-cloud/docqa/internal/metrics"
)

// ChatModel generates answers through the chat completions API.
type ChatModel struct {
	client     *openai.Client
	deployment string
	logger     *zap.Logger
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	Client     ClientConfig
	Deployment string
	Logger     *zap.Logger
}

// NewChatModel creates a chat provider.
func NewChatModel(cfg *ChatConfig) *ChatModel {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatModel{
		client:     NewClient(cfg.Client),
		deployment: cfg.Deployment,
		logger:     logger,
	}
}

// Complete implements domain.ChatModel. opts.Model overrides the configured deployment.
func (c *ChatModel) Complete(
	ctx context.Context, messages []domain.Message, opts domain.ChatOptions,
) (domain.Completion, error) {
	model := opts.Model
	if model == "" {
		model = c.deployment
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toChatMessages(messages),
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	// temperature is omitempty in the request; the smallest float keeps an explicit zero on the wire.
	if req.Temperature == 0 {
		req.Temperature = math.SmallestNonzeroFloat32
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.ChatRequestsTotal.WithLabelValues(model, "error").Inc()
		return domain.Completion{}, parseAPIError("chat", err, domain.ErrChatProviderError, nil)
	}
	if len(resp.Choices) == 0 {
		metrics.ChatRequestsTotal.WithLabelValues(model, "error").Inc()
		return domain.Completion{}, fmt.Errorf("empty chat response: %w", domain.ErrChatProviderError)
	}

	metrics.ChatRequestsTotal.WithLabelValues(model, "success").Inc()
	metrics.ChatRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	metrics.ChatTokensTotal.WithLabelValues(model, "prompt").Add(float64(resp.Usage.PromptTokens))
	metrics.ChatTokensTotal.WithLabelValues(model, "completion").Add(float64(resp.Usage.CompletionTokens))

	c.logger.Debug("chat completion",
		zap.String("model", model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", duration),
	)

	return domain.Completion{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

func toChatMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}
