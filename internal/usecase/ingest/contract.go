package ingest

import (
	"context"

	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/domain/record"
)

// Source produces the records of one external system. Fetch may return a
// usable subset together with a *source.PartialError.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]record.Record, error)
}

// Embedder vectorizes the normalized record texts in one batched pass.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Index is the write side of the vector index.
type Index interface {
	EnsureIndex(ctx context.Context) (int, error)
	Upsert(ctx context.Context, namespace string, entries []domain.Entry) error
	Stats(ctx context.Context) (domain.IndexStats, error)
}
