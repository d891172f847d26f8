package chat

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Answer is the reply to one question.
type Answer struct {
	Content          string
	Citations        []domain.Citation
	PromptTokens     int
	CompletionTokens int
}

// Service answers questions within a caller-owned conversation.
type Service struct {
	model     domain.ChatModel
	retriever Retriever
	linker    Linker
	opts      domain.ChatOptions
	logger    *zap.Logger
}

// New creates a chat service. retriever is only used when opts.Retrieval is set;
// linker may be nil, in which case citations link to the source name.
func New(model domain.ChatModel, retriever Retriever, linker Linker, opts domain.ChatOptions, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{model: model, retriever: retriever, linker: linker, opts: opts, logger: logger}
}

// Options returns the generation parameters in use.
func (s *Service) Options() domain.ChatOptions {
	return s.opts
}

// Ask appends question to conv, asks the chat model and appends the reply.
// On any failure conv is left exactly as it was.
func (s *Service) Ask(ctx context.Context, conv *domain.Conversation, question string) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, domain.ErrEmptyQuestion
	}

	prevLen := conv.Len()
	conv.Append(domain.RoleUser, question)

	ans, err := s.complete(ctx, conv, question)
	if err != nil {
		conv.Truncate(prevLen)
		return Answer{}, err
	}

	conv.Append(domain.RoleAssistant, ans.Content)
	return ans, nil
}

func (s *Service) complete(ctx context.Context, conv *domain.Conversation, question string) (Answer, error) {
	messages := conv.Messages()

	var hits []domain.Hit
	if s.opts.Retrieval != nil && s.retriever != nil {
		var err error
		hits, err = s.retriever.Retrieve(ctx, question, *s.opts.Retrieval)
		if err != nil {
			return Answer{}, fmt.Errorf("retrieve: %w", err)
		}
		s.logger.Debug("Retrieved sources", zap.Int("hits", len(hits)))
		if len(hits) > 0 {
			messages = withGrounding(messages, hits)
		}
	}

	c, err := s.model.Complete(ctx, messages, s.opts)
	if err != nil {
		return Answer{}, fmt.Errorf("complete: %w", err)
	}

	return Answer{
		Content:          c.Content,
		Citations:        s.citations(hits),
		PromptTokens:     c.PromptTokens,
		CompletionTokens: c.CompletionTokens,
	}, nil
}

// withGrounding inserts a system message listing the sources right before the
// latest user message. It is sent once and never stored in the conversation.
func withGrounding(messages []domain.Message, hits []domain.Hit) []domain.Message {
	var sb strings.Builder
	sb.WriteString("Answer using the numbered sources below. Mention the document title of each source you use. ")
	sb.WriteString("If the sources do not contain the answer, say so.\n")
	for i, h := range hits {
		fmt.Fprintf(&sb, "\n[%d] %s (part %d)\n%s\n", i+1, titleOf(h.Record), h.Record.ChunkID, h.Record.Content)
	}
	grounding := domain.Message{Role: domain.RoleSystem, Content: sb.String()}

	last := len(messages) - 1
	out := make([]domain.Message, 0, len(messages)+1)
	out = append(out, messages[:last]...)
	out = append(out, grounding, messages[last])
	return out
}

func (s *Service) citations(hits []domain.Hit) []domain.Citation {
	if len(hits) == 0 {
		return nil
	}
	cs := make([]domain.Citation, 0, len(hits))
	for _, h := range hits {
		url := h.Record.Source
		if s.linker != nil && h.Record.Source != "" {
			url = s.linker.URL(h.Record.Source)
		}
		cs = append(cs, domain.Citation{Title: titleOf(h.Record), URL: url})
	}
	return domain.DedupCitations(cs)
}

func titleOf(r domain.IndexRecord) string {
	if r.Title == "" {
		return domain.UnknownTitle
	}
	return r.Title
}
