package domain

import "fmt"

// QueryType selects how retrieval searches the index.
type QueryType string

// Supported retrieval query types.
const (
	QueryVector QueryType = "vector"
	QuerySimple QueryType = "simple"
	QueryHybrid QueryType = "vector_simple_hybrid"
)

// ParseQueryType validates s as a QueryType.
func ParseQueryType(s string) (QueryType, error) {
	switch q := QueryType(s); q {
	case QueryVector, QuerySimple, QueryHybrid:
		return q, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidQueryType, s)
	}
}

// AuthType names how the retrieval source authenticates.
type AuthType string

// Retrieval authentication kinds.
const (
	AuthNone     AuthType = "none"
	AuthPassword AuthType = "password"
)

// AuthDescriptor describes the credentials used against the search index.
// The secret itself never leaves the store connection; only its presence is described.
type AuthDescriptor struct {
	Type     AuthType
	Username string
}

// Retrieval defaults.
const (
	DefaultTopN       = 5
	DefaultStrictness = 3
	MaxTopN           = 20
	MinStrictness     = 1
	MaxStrictness     = 5
)

// RetrievalConfig enumerates the retrieval-augmentation options of a chat request.
type RetrievalConfig struct {
	Endpoint            string
	IndexName           string
	Auth                AuthDescriptor
	QueryType           QueryType
	EmbeddingDeployment string
	TopN                int
	Strictness          int
}

// Validate checks option ranges.
func (r RetrievalConfig) Validate() error {
	if _, err := ParseQueryType(string(r.QueryType)); err != nil {
		return err
	}
	if r.TopN < 1 || r.TopN > MaxTopN {
		return fmt.Errorf("top_n must be between 1 and %d, got %d", MaxTopN, r.TopN)
	}
	if r.Strictness < MinStrictness || r.Strictness > MaxStrictness {
		return fmt.Errorf("strictness must be between %d and %d, got %d", MinStrictness, MaxStrictness, r.Strictness)
	}
	return nil
}

// MinScore maps strictness onto the minimum vector similarity a hit must reach:
// 1 keeps everything, each step raises the bar by 0.1.
func (r RetrievalConfig) MinScore() float64 {
	s := min(max(r.Strictness, MinStrictness), MaxStrictness)
	return 0.1 * float64(s-MinStrictness)
}

// ChatOptions are the generation parameters of a chat request.
type ChatOptions struct {
	Model string
	// Temperature 0 asks for deterministic sampling, it is not a "use default" marker.
	Temperature float32
	MaxTokens   int
	// Retrieval enables grounding on the search index when non-nil.
	Retrieval *RetrievalConfig
}
