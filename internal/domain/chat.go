package domain

import "context"

// ChatModel is the chat collaborator: it turns a message history into a reply.
type ChatModel interface {
	Complete(ctx context.Context, messages []Message, opts ChatOptions) (Completion, error)
}

// Completion is a generated reply with its token usage.
type Completion struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}
