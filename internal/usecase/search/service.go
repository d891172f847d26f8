package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Service retrieves index records relevant to a question.
type Service struct {
	repo  Repository
	embed Embedder
}

// New creates a retrieval service.
func New(repo Repository, embed Embedder) *Service {
	return &Service{repo: repo, embed: embed}
}

// Retrieve returns up to cfg.TopN hits for question using cfg.QueryType.
// Strictness drops vector hits whose similarity is below cfg.MinScore();
// BM25 scores are unbounded and are not filtered.
func (s *Service) Retrieve(
	ctx context.Context, question string, cfg domain.RetrievalConfig,
) ([]domain.Hit, error) {
	if strings.TrimSpace(question) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.QueryType {
	case domain.QueryVector:
		return s.searchVector(ctx, question, cfg)
	case domain.QuerySimple:
		return s.searchText(ctx, question, cfg)
	case domain.QueryHybrid:
		return s.searchHybrid(ctx, question, cfg)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidQueryType, cfg.QueryType)
	}
}

// searchVector embeds the question and runs KNN search.
func (s *Service) searchVector(
	ctx context.Context, question string, cfg domain.RetrievalConfig,
) ([]domain.Hit, error) {
	embResult, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}

	hits, err := s.repo.SearchVector(ctx, embResult.Embedding, cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("search vector: %w", err)
	}
	return filterByScore(hits, cfg.MinScore()), nil
}

// searchText runs BM25 search over title and content.
func (s *Service) searchText(
	ctx context.Context, question string, cfg domain.RetrievalConfig,
) ([]domain.Hit, error) {
	hits, err := s.repo.SearchText(ctx, question, cfg.TopN)
	if err != nil {
		return nil, fmt.Errorf("search text: %w", err)
	}
	return hits, nil
}

// searchHybrid runs vector and BM25 search, then fuses via RRF.
func (s *Service) searchHybrid(
	ctx context.Context, question string, cfg domain.RetrievalConfig,
) ([]domain.Hit, error) {
	vectorHits, err := s.searchVector(ctx, question, cfg)
	if err != nil {
		return nil, err
	}

	textHits, err := s.searchText(ctx, question, cfg)
	if err != nil {
		return nil, err
	}

	return fuseRRF(vectorHits, textHits, cfg.TopN), nil
}

func filterByScore(hits []domain.Hit, minScore float64) []domain.Hit {
	if minScore <= 0 {
		return hits
	}
	filtered := hits[:0]
	for _, h := range hits {
		if h.Score >= minScore {
			filtered = append(filtered, h)
		}
	}
	return filtered
}
