package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/metrics"
)

// Batch fan-out defaults, used when config leaves them unset.
const (
	DefaultBatchSize   = 128
	DefaultConcurrency = 4
)

// Embedder is an embedding provider speaking the OpenAI-compatible
// embeddings API (a hosted service or a local model server).
type Embedder struct {
	client      *openai.Client
	model       openai.EmbeddingModel
	dimensions  int
	user        string
	provider    string
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// Config holds the embedding provider settings. Model is part of the index
// contract: vectors from a different model are not comparable to the ones
// already stored.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Dimensions  int
	User        string
	Provider    string
	BatchSize   int // max inputs per API call
	Concurrency int // max in-flight chunk requests
	Logger      *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Embedder{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       openai.EmbeddingModel(cfg.Model),
		dimensions:  cfg.Dimensions,
		user:        cfg.User,
		provider:    cfg.Provider,
		batchSize:   batchSize,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Embed implements domain.Embedder. Returns the vector and token usage.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	resp, err := e.createEmbeddings(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}

	return domain.EmbeddingResult{
		Embedding:    resp.Data[0].Embedding,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. Inputs beyond the per-call
// batch size are split into chunks embedded concurrently; the first chunk
// failure cancels the rest. Output order always matches input order.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	if len(texts) <= e.batchSize {
		return e.embedChunk(ctx, texts)
	}

	chunks := chunkTexts(texts, e.batchSize)
	results := make([]domain.BatchEmbeddingResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk // per-iteration copies; module targets go 1.21 loop semantics
		g.Go(func() error {
			res, err := e.embedChunk(gctx, chunk)
			if err != nil {
				return fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for _, r := range results {
		out.Embeddings = append(out.Embeddings, r.Embeddings...)
		out.PromptTokens += r.PromptTokens
		out.TotalTokens += r.TotalTokens
	}
	return out, nil
}

// embedChunk performs one API call. The API may return vectors out of
// order; they are put back in input order via the per-item Index field.
func (e *Embedder) embedChunk(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	resp, err := e.createEmbeddings(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	embeddings := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding index %d out of range for %d texts: %w",
				item.Index, len(texts), domain.ErrEmbeddingUnavailable)
		}
		embeddings[item.Index] = item.Embedding
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func chunkTexts(texts []string, size int) [][]string {
	chunks := make([][]string, 0, (len(texts)+size-1)/size)
	for offset := 0; offset < len(texts); offset += size {
		end := offset + size
		if end > len(texts) {
			end = len(texts)
		}
		chunks = append(chunks, texts[offset:end])
	}
	return chunks
}

// createEmbeddings performs one API call and records transport metrics.
// On success len(resp.Data) == len(input) is guaranteed.
func (e *Embedder) createEmbeddings(ctx context.Context, input []string) (openai.EmbeddingResponse, error) {
	req := openai.EmbeddingRequest{
		Input:          input,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           e.user,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)

	if err != nil {
		e.recordError("api_error")
		e.logger.Warn("Embedding request failed",
			zap.Int("texts", len(input)),
			zap.Error(err))
		return openai.EmbeddingResponse{}, parseAPIError(err)
	}

	if len(resp.Data) != len(input) {
		kind := "count_mismatch"
		if len(resp.Data) == 0 {
			kind = "empty_response"
		}
		e.recordError(kind)
		return openai.EmbeddingResponse{}, fmt.Errorf("embedding response has %d vectors for %d texts: %w",
			len(resp.Data), len(input), domain.ErrEmbeddingUnavailable)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, string(e.model)).Observe(duration.Seconds())

	if resp.Usage.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, string(e.model), "total").Add(float64(resp.Usage.TotalTokens))
	}

	return resp, nil
}

func (e *Embedder) recordError(kind string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, string(e.model), "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, string(e.model), kind).Inc()
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingUnavailable for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingUnavailable

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail pulls the "detail" field some providers put in JSON error bodies.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
