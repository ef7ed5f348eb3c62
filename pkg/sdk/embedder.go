package nexus

import "context"

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single call. Optional: if
// the Embedder passed to WithEmbedder also implements BatchEmbedder,
// ingestion uses it instead of embedding record by record.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// Generator produces a natural-language answer for an assembled prompt.
// An error degrades the search answer to a deterministic fallback; it
// never fails the search itself.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}
