package domain

import "context"

type embeddingUsageKey struct{}

// EmbeddingUsage collects embedding token spend for a single search request.
// The handler seeds the context with a mutable collector before calling the
// service; the service adds tokens after embedding the query; the handler
// reads the total back for the X-Embedding-Tokens response header.
type EmbeddingUsage struct {
	TotalTokens int
	Used        bool // true if embedding ran, even on a cache hit with 0 tokens
}

// NewContextWithUsage returns a context carrying a fresh usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// AddTokens records consumed tokens.
func (u *EmbeddingUsage) AddTokens(n int) {
	if u != nil {
		u.TotalTokens += n
		u.Used = true
	}
}
