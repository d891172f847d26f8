package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docqa/internal/db"
	"github.com/kailas-cloud/docqa/internal/domain"
)

// DefaultTTL is how long an idle session's conversation is kept.
const DefaultTTL = 24 * time.Hour

// DefaultMaxTurns bounds the exchanges kept per session so the history sent
// with every question stays within the model's context window.
const DefaultMaxTurns = 20

// ErrNotFound is returned when a session has no stored conversation.
var ErrNotFound = errors.New("session not found")

// store is the consumer interface for session history (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Repo persists conversations of HTTP sessions as JSON message lists.
type Repo struct {
	store    store
	prefix   string
	ttl      time.Duration
	maxTurns int
}

// Option configures a Repo.
type Option func(*Repo)

// WithMaxTurns keeps only the last n exchanges of a session. n <= 0 keeps everything.
func WithMaxTurns(n int) Option {
	return func(r *Repo) { r.maxTurns = n }
}

// New creates a history repository. ttl <= 0 uses DefaultTTL.
func New(s store, keyPrefix string, ttl time.Duration, opts ...Option) *Repo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	r := &Repo{store: s, prefix: keyPrefix, ttl: ttl, maxTurns: DefaultMaxTurns}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Load restores the conversation of a session.
func (r *Repo) Load(ctx context.Context, sessionID string) (*domain.Conversation, error) {
	data, err := r.store.Get(ctx, r.key(sessionID))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get history %s: %w", sessionID, err)
	}

	var msgs []domain.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", sessionID, err)
	}
	return domain.RestoreConversation(msgs), nil
}

// Save stores the system prompt and the most recent exchanges of the
// conversation and refreshes its TTL. conv itself is not modified.
func (r *Repo) Save(ctx context.Context, sessionID string, conv *domain.Conversation) error {
	data, err := json.Marshal(conv.Recent(r.maxTurns))
	if err != nil {
		return fmt.Errorf("encode history %s: %w", sessionID, err)
	}
	if err := r.store.SetWithTTL(ctx, r.key(sessionID), data, r.ttl); err != nil {
		return fmt.Errorf("set history %s: %w", sessionID, err)
	}
	return nil
}

// Delete forgets a session.
func (r *Repo) Delete(ctx context.Context, sessionID string) error {
	if err := r.store.Del(ctx, r.key(sessionID)); err != nil {
		return fmt.Errorf("del history %s: %w", sessionID, err)
	}
	return nil
}

func (r *Repo) key(sessionID string) string {
	return r.prefix + "history:" + sessionID
}
