package domain

// Role identifies the author of a chat message.
type Role string

// Chat roles understood by the chat collaborator.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the message history of one chat session. It is a plain
// value owned by its caller; nothing in the process shares it implicitly.
type Conversation struct {
	systemPrompt string
	messages     []Message
}

// NewConversation starts a conversation. An empty system prompt adds no system message.
func NewConversation(systemPrompt string) *Conversation {
	c := &Conversation{systemPrompt: systemPrompt}
	c.Reset()
	return c
}

// RestoreConversation rebuilds a conversation from stored messages.
// A leading system message becomes the system prompt.
func RestoreConversation(messages []Message) *Conversation {
	c := &Conversation{}
	if len(messages) > 0 && messages[0].Role == RoleSystem {
		c.systemPrompt = messages[0].Content
	}
	c.messages = append(c.messages, messages...)
	return c
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(role Role, content string) {
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the full history, system prompt included.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// History returns the user and assistant turns only.
func (c *Conversation) History() []Message {
	out := make([]Message, 0, len(c.messages))
	for _, m := range c.messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Recent returns the system prompt followed by the last turns exchanges, each
// starting at a user message. turns <= 0 returns the full history.
func (c *Conversation) Recent(turns int) []Message {
	if turns <= 0 {
		return c.Messages()
	}
	head := 0
	if len(c.messages) > 0 && c.messages[0].Role == RoleSystem {
		head = 1
	}
	start, seen := head, 0
	for i := len(c.messages) - 1; i >= head; i-- {
		if c.messages[i].Role != RoleUser {
			continue
		}
		if seen++; seen == turns {
			start = i
			break
		}
	}
	out := make([]Message, 0, head+len(c.messages)-start)
	out = append(out, c.messages[:head]...)
	return append(out, c.messages[start:]...)
}

// Len returns the number of messages, system prompt included.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Truncate drops every message after the first n. It is used to undo a failed turn.
func (c *Conversation) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(c.messages) {
		c.messages = c.messages[:n]
	}
}

// Reset clears the history back to the system prompt.
func (c *Conversation) Reset() {
	c.messages = c.messages[:0]
	if c.systemPrompt != "" {
		c.messages = append(c.messages, Message{Role: RoleSystem, Content: c.systemPrompt})
	}
}

// SystemPrompt returns the prompt the conversation was started with.
func (c *Conversation) SystemPrompt() string {
	return c.systemPrompt
}
