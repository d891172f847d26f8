// Package analyze produces a keyword-focused report of a single document:
// a summary, an analysis of the errors it describes, follow-up checks and a
// confidence level.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Generation defaults of an analysis. They are independent of chat settings.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1500
	DefaultMaxChars    = 4000
)

// ErrEmptyKeyword signals a blank analysis keyword.
var ErrEmptyKeyword = errors.New("keyword is empty")

const systemPrompt = `You are a database expert and a technical documentation summarizer.
Analyze the technical document or error log you are given and produce:

1. **Summary** (core structure, concepts, procedures)
2. **Error / error code analysis** (cause, action, related manual section)
3. **Further checks needed** (two items)
4. **Confidence** (high / medium / low)

Answer in a clear, structured format.`

// Options are the generation parameters of an analysis.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
	// MaxChars caps how much of the document text is sent, in characters.
	MaxChars int
}

// DefaultOptions returns the analysis defaults for model.
func DefaultOptions(model string) Options {
	return Options{
		Model:       model,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		MaxChars:    DefaultMaxChars,
	}
}

// Analysis is the report on one document.
type Analysis struct {
	Source           string
	Keyword          string
	Content          string
	TextChars        int
	PromptTokens     int
	CompletionTokens int
}

// Service analyzes documents with the chat model.
type Service struct {
	extract Extractor
	model   domain.ChatModel
	opts    Options
	logger  *zap.Logger
}

// New creates an analysis service. Zero options fall back to the defaults.
func New(extract Extractor, model domain.ChatModel, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	return &Service{extract: extract, model: model, opts: opts, logger: logger}
}

// AnalyzeFile extracts the text of the document at path and analyzes it.
func (s *Service) AnalyzeFile(ctx context.Context, path, keyword string) (Analysis, error) {
	if strings.TrimSpace(keyword) == "" {
		return Analysis{}, ErrEmptyKeyword
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Analysis{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	text, err := s.extract.Extract(ctx, f)
	if err != nil {
		return Analysis{}, fmt.Errorf("extract %s: %w", path, err)
	}

	a, err := s.Analyze(ctx, text, keyword)
	if err != nil {
		return Analysis{}, err
	}
	a.Source = filepath.Base(path)
	return a, nil
}

// Analyze reports on text with respect to keyword. Only the first MaxChars
// characters of text are sent to the model.
func (s *Service) Analyze(ctx context.Context, text, keyword string) (Analysis, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return Analysis{}, ErrEmptyKeyword
	}
	if strings.TrimSpace(text) == "" {
		return Analysis{}, domain.ErrEmptyText
	}

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: systemPrompt},
		{Role: domain.RoleUser, Content: userPrompt(keyword, truncate(text, s.opts.MaxChars))},
	}

	start := time.Now()
	c, err := s.model.Complete(ctx, messages, domain.ChatOptions{
		Model:       s.opts.Model,
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("analyze: %w", err)
	}

	s.logger.Info("Document analyzed",
		zap.String("keyword", keyword),
		zap.Int("text_chars", len([]rune(text))),
		zap.Int("prompt_tokens", c.PromptTokens),
		zap.Int("completion_tokens", c.CompletionTokens),
		zap.Duration("took", time.Since(start)),
	)

	return Analysis{
		Keyword:          keyword,
		Content:          c.Content,
		TextChars:        len([]rune(text)),
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
	}, nil
}

func userPrompt(keyword, text string) string {
	return fmt.Sprintf("Analyze the content related to '%s' in the following document:\n\n%s\n\n"+
		"Based on it, provide the summary, the error analysis and the further checks.", keyword, text)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}

// FileName is the default name of a saved analysis.
func FileName(keyword string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, strings.TrimSpace(keyword))
	return "analysis_" + name + ".txt"
}
