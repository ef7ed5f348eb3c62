package nexus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/db"
	dbRedis "github.com/cosmos-nexus/nexus/internal/db/redis"
	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/repository/embcache"
	indexrepo "github.com/cosmos-nexus/nexus/internal/repository/index"
	"github.com/cosmos-nexus/nexus/internal/transport/gemini"
	openaiEmb "github.com/cosmos-nexus/nexus/internal/transport/openai"
	answeruc "github.com/cosmos-nexus/nexus/internal/usecase/answer"
	healthuc "github.com/cosmos-nexus/nexus/internal/usecase/health"
	ingestuc "github.com/cosmos-nexus/nexus/internal/usecase/ingest"
	searchuc "github.com/cosmos-nexus/nexus/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Внутренние интерфейсы для подмены в тестах.
type searchUseCase interface {
	Search(ctx context.Context, query string, topK int) ([]domain.Match, error)
}

type answerUseCase interface {
	Synthesize(ctx context.Context, query string, matches []domain.Match) string
}

type ingestUseCase interface {
	Run(ctx context.Context, src ingestuc.Source) (ingestuc.Report, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

type indexMaintenance interface {
	Stats(ctx context.Context) (domain.IndexStats, error)
	DeleteNamespace(ctx context.Context, namespace string) (int, error)
}

// Client is the nexus SDK entry point.
type Client struct {
	store     db.Store
	searchSvc searchUseCase
	answerSvc answerUseCase
	ingestSvc ingestUseCase
	healthSvc healthUseCase
	index     indexMaintenance
	obs       *observer
}

// New creates a nexus Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		indexName:  domain.DefaultIndexName,
		dimensions: domain.DefaultVectorConfig().Dimensions,
		metric:     "cosine",
		namespace:  domain.DefaultNamespace,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("nexus: database address required (use WithRedis)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("nexus: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("nexus: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return wireClient(store, cfg, obs), nil
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) *Client {
	repo := indexrepo.New(store, indexrepo.Config{
		Name:            cfg.indexName,
		Dimensions:      cfg.dimensions,
		Metric:          cfg.metric,
		Algorithm:       cfg.algorithm(),
		HNSWM:           cfg.hnswM,
		HNSWEFConstruct: cfg.hnswEFConstruct,
	})

	base, embCheck := buildEmbedder(store, cfg)

	// Instruction prefixes wrap the cache so prefixed and bare text never
	// share a cache entry.
	queryEmb, docEmb := base, base
	if cfg.embedding != nil {
		if instr := cfg.embedding.QueryInstruction; instr != "" {
			queryEmb = domain.NewInstructionEmbedder(base, instr)
		}
		if instr := cfg.embedding.DocumentInstruction; instr != "" {
			docEmb = domain.NewInstructionEmbedder(base, instr)
		}
	}

	gen, genCheck := buildGenerator(cfg)

	answerCfg := answeruc.Config{}
	if cfg.generation != nil {
		answerCfg.MaxContextBytes = cfg.generation.MaxContextBytes
	}

	return &Client{
		store: store,
		searchSvc: searchuc.New(queryEmb, repo, searchuc.Config{
			Namespace:   cfg.namespace,
			DefaultTopK: cfg.defaultTopK,
			MaxTopK:     cfg.maxTopK,
			Dimensions:  cfg.dimensions,
		}),
		answerSvc: answeruc.New(gen, answerCfg, zap.NewNop()),
		ingestSvc: ingestuc.New(batchEmbedder{inner: docEmb}, repo, ingestuc.Config{
			Namespace:  cfg.namespace,
			BatchSize:  cfg.batchSize,
			PollBudget: cfg.pollBudget,
		}, zap.NewNop()),
		healthSvc: healthuc.New(store, embCheck, genCheck),
		index:     repo,
		obs:       obs,
	}
}

// buildEmbedder assembles the embedding chain and picks the health probe
// from whatever the provider exposes.
func buildEmbedder(store db.Store, cfg *clientConfig) (domain.Embedder, healthuc.DependencyChecker) {
	if cfg.embedder != nil {
		var check healthuc.DependencyChecker
		if hc, ok := cfg.embedder.(healthuc.DependencyChecker); ok {
			check = hc
		}
		return &embedderAdapter{inner: cfg.embedder}, check
	}

	if cfg.embedding != nil {
		e := cfg.embedding
		provider := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:      e.APIKey,
			BaseURL:     e.BaseURL,
			Model:       e.Model,
			Dimensions:  cfg.dimensions,
			Provider:    "openai",
			BatchSize:   e.BatchSize,
			Concurrency: e.Concurrency,
			Logger:      zap.NewNop(),
		})
		cached := embcache.New(provider, store, e.Model, nil, zap.NewNop())
		return cached, provider
	}

	return noopEmbedder{}, nil
}

// buildGenerator assembles the answer provider. nil means generation is
// disabled and Search degrades to the deterministic disabled answer.
func buildGenerator(cfg *clientConfig) (answeruc.Generator, healthuc.DependencyChecker) {
	if cfg.generator != nil {
		var check healthuc.DependencyChecker
		if hc, ok := cfg.generator.(healthuc.DependencyChecker); ok {
			check = hc
		}
		return &generatorAdapter{inner: cfg.generator}, check
	}

	if cfg.generation != nil {
		g := cfg.generation
		provider := gemini.NewGenerator(&gemini.Config{
			APIKey:      g.APIKey,
			BaseURL:     g.BaseURL,
			Model:       g.Model,
			Temperature: g.Temperature,
			MaxTokens:   g.MaxTokens,
			Timeout:     g.Timeout,
			Logger:      zap.NewNop(),
		})
		return provider, provider
	}

	return nil, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Search embeds the query, retrieves the topK nearest entries of the
// configured namespace and synthesizes a grounded answer when a generator
// is wired. A non-positive topK uses the configured default; a generation
// failure degrades the answer, never the call.
func (c *Client) Search(ctx context.Context, query string, topK int) (res SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	ctx, usage := domain.NewContextWithUsage(ctx)

	matches, err := c.searchSvc.Search(ctx, query, topK)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search: %w", err)
	}

	res = SearchResult{
		Matches:         make([]Match, 0, len(matches)),
		Answer:          c.answerSvc.Synthesize(ctx, query, matches),
		EmbeddingTokens: usage.TotalTokens,
	}
	for i := range matches {
		res.Matches = append(res.Matches, toMatch(&matches[i]))
	}
	return res, nil
}

// Ingest runs the pipeline over everything the source produces: normalize,
// batch-embed, upsert, then poll until the namespace count reflects the
// run. A partial fetch is tolerated; its skip count lands in the report.
func (c *Client) Ingest(ctx context.Context, src Source) (rep Report, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	r, err := c.ingestSvc.Run(ctx, sourceAdapter{src: src})
	if err != nil {
		return toReport(r), fmt.Errorf("ingest %s: %w", src.Name(), err)
	}
	return toReport(r), nil
}

// Stats reports index occupancy per namespace.
func (c *Client) Stats(ctx context.Context) (st Stats, err error) {
	start := time.Now()
	defer func() { c.obs.observe("stats", start, err) }()

	s, err := c.index.Stats(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return toStats(s), nil
}

// Health checks the health of all configured components.
func (c *Client) Health(ctx context.Context) Health {
	start := time.Now()
	defer func() { c.obs.observe("health", start, nil) }()

	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return Health{
		Status: string(report.Status),
		Checks: checks,
	}
}

// DeleteNamespace removes every entry of a namespace and returns how many
// keys were deleted. The index itself is kept.
func (c *Client) DeleteNamespace(ctx context.Context, namespace string) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_namespace", start, err) }()

	n, err = c.index.DeleteNamespace(ctx, namespace)
	if err != nil {
		return 0, fmt.Errorf("delete namespace %s: %w", namespace, err)
	}
	return n, nil
}

func toMatch(m *domain.Match) Match {
	text, _ := m.SearchableText()
	return Match{
		ID:       m.ID,
		Score:    m.Score,
		Text:     text,
		Metadata: m.Metadata,
	}
}

func toReport(r ingestuc.Report) Report {
	return Report{
		RunID:     r.RunID,
		Source:    r.Source,
		Namespace: r.Namespace,
		Fetched:   r.Fetched,
		Skipped:   r.Skipped,
		Ingested:  r.Ingested,
		Batches:   r.Batches,
		Duration:  r.Duration,
		Stats:     toStats(r.Stats),
	}
}

func toStats(s domain.IndexStats) Stats {
	return Stats{
		TotalVectors: s.TotalVectorCount,
		Namespaces:   s.Namespaces,
	}
}

// embedderAdapter wraps a public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed delegates to the public BatchEmbedder when the wrapped
// provider has one; otherwise the caller falls back to per-text calls.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps a public Generator into the result-typed internal
// contract.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) Generate(ctx context.Context, prompt string) domain.GenerationResult {
	text, err := a.inner.Generate(ctx, prompt)
	if err != nil {
		return domain.GenerationFailure(err)
	}
	return domain.GeneratedText(text)
}

// batchEmbedder upgrades any Embedder to the batched ingest contract.
type batchEmbedder struct {
	inner domain.Embedder
}

func (b batchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := b.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, b.inner, texts)
}

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"nexus: embedder not configured (use WithOpenAIEmbedding or WithEmbedder)",
	)
}
