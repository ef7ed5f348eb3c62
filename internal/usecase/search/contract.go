package search

import (
	"context"

	"github.com/cosmos-nexus/nexus/internal/domain"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index runs nearest-neighbor queries against the vector index.
type Index interface {
	Query(
		ctx context.Context, namespace string,
		vector []float32, topK int, includeMetadata bool,
	) ([]domain.Match, error)
}
