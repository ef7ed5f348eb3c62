package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/cosmos-nexus/nexus/internal/domain"
)

// Config carries search limits and the namespace queries run against.
type Config struct {
	Namespace   string
	DefaultTopK int
	MaxTopK     int
	Dimensions  int
}

// Service handles semantic search: it vectorizes the query and runs KNN
// against the index.
type Service struct {
	embed Embedder
	index Index
	cfg   Config
}

// New creates a search service.
func New(embed Embedder, index Index, cfg Config) *Service {
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 5
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = 100
	}
	return &Service{embed: embed, index: index, cfg: cfg}
}

// Search embeds the query and returns the topK nearest matches, best first.
// A non-positive topK falls back to the configured default.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]domain.Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrEmptyQuery
	}

	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if topK > s.cfg.MaxTopK {
		return nil, fmt.Errorf("%w: top_k %d exceeds maximum %d", domain.ErrInvalidTopK, topK, s.cfg.MaxTopK)
	}

	embResult, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}

	domain.UsageFromContext(ctx).AddTokens(embResult.TotalTokens)

	if s.cfg.Dimensions > 0 && len(embResult.Embedding) != s.cfg.Dimensions {
		return nil, domain.NewDimensionMismatch(s.cfg.Dimensions, len(embResult.Embedding))
	}

	matches, err := s.index.Query(ctx, s.cfg.Namespace, embResult.Embedding, topK, true)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	return matches, nil
}
