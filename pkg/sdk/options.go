package nexus

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// EmbeddingConfig configures the built-in OpenAI-compatible embedding
// provider. The dimension set by WithIndex is requested from the provider
// and enforced on every returned vector.
type EmbeddingConfig struct {
	BaseURL             string
	APIKey              string
	Model               string
	BatchSize           int    // inputs per API call, default 128
	Concurrency         int    // parallel chunk requests, default 4
	QueryInstruction    string // optional prefix prepended to query text
	DocumentInstruction string // optional prefix prepended to ingested text
}

// GenerationConfig configures the built-in Gemini answer provider
// (OpenAI-compatible chat completions endpoint).
type GenerationConfig struct {
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float32
	MaxTokens       int
	Timeout         time.Duration // per-call budget, default 30s
	MaxContextBytes int           // prompt snippet budget, default 16 KiB
}

type clientConfig struct {
	addrs    []string
	password string

	embedder   Embedder
	embedding  *EmbeddingConfig
	generator  Generator
	generation *GenerationConfig

	indexName       string
	dimensions      int
	metric          string
	hnswM           int
	hnswEFConstruct int

	namespace   string
	defaultTopK int
	maxTopK     int
	batchSize   int
	pollBudget  time.Duration

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// algorithm picks the vector field layout: HNSW once build parameters are
// set, FLAT otherwise.
func (c *clientConfig) algorithm() string {
	if c.hnswM > 0 || c.hnswEFConstruct > 0 {
		return "hnsw"
	}
	return "flat"
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithEmbedder sets a custom text embedding provider. Takes precedence
// over WithOpenAIEmbedding. Implement BatchEmbedder too for batched
// ingestion, and HealthCheck(ctx) error to appear in Health reports.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAIEmbedding wires the built-in OpenAI-compatible embedding
// provider with a Redis-backed embedding cache in front of it.
func WithOpenAIEmbedding(cfg EmbeddingConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedding = &cfg
	})
}

// WithGenerator sets a custom answer generator. Takes precedence over
// WithGeminiGeneration.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithGeminiGeneration wires the built-in Gemini answer provider. Without
// it (or WithGenerator) Search still returns ranked matches, with a
// deterministic generation-disabled answer.
func WithGeminiGeneration(cfg GenerationConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.generation = &cfg
	})
}

// WithIndex sets the logical index name, vector dimension and distance
// metric ("cosine", "l2" or "ip").
// Defaults: "nexus", 384, "cosine".
func WithIndex(name string, dimensions int, metric string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexName = name
		c.dimensions = dimensions
		c.metric = metric
	})
}

// WithHNSW switches the vector field from FLAT to HNSW with the given
// build parameters (M and EF construction).
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithNamespace sets the namespace searches and ingest runs operate on.
// Default: "default".
func WithNamespace(ns string) Option {
	return optionFunc(func(c *clientConfig) {
		c.namespace = ns
	})
}

// WithSearchLimits sets the default and maximum top_k. Defaults: 5, 100.
func WithSearchLimits(defaultTopK, maxTopK int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = defaultTopK
		c.maxTopK = maxTopK
	})
}

// WithBatchSize sets how many entries one ingest upsert batch carries.
// Default: 100.
func WithBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.batchSize = size
	})
}

// WithPollBudget bounds the post-ingest consistency poll. Default: 30s.
func WithPollBudget(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.pollBudget = d
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
