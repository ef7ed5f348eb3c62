package nexus

import (
	"context"

	"github.com/cosmos-nexus/nexus/internal/domain"
	healthuc "github.com/cosmos-nexus/nexus/internal/usecase/health"
	ingestuc "github.com/cosmos-nexus/nexus/internal/usecase/ingest"
)

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, query string, topK int) ([]domain.Match, error)
}

func (m *mockSearchUC) Search(ctx context.Context, query string, topK int) ([]domain.Match, error) {
	return m.searchFn(ctx, query, topK)
}

// --- answerUseCase mock ---

type mockAnswerUC struct {
	synthesizeFn func(ctx context.Context, query string, matches []domain.Match) string
}

func (m *mockAnswerUC) Synthesize(ctx context.Context, query string, matches []domain.Match) string {
	return m.synthesizeFn(ctx, query, matches)
}

// --- ingestUseCase mock ---

type mockIngestUC struct {
	runFn func(ctx context.Context, src ingestuc.Source) (ingestuc.Report, error)
}

func (m *mockIngestUC) Run(ctx context.Context, src ingestuc.Source) (ingestuc.Report, error) {
	return m.runFn(ctx, src)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	checkFn func(ctx context.Context) healthuc.Report
}

func (m *mockHealthUC) Check(ctx context.Context) healthuc.Report {
	return m.checkFn(ctx)
}

// --- indexMaintenance mock ---

type mockIndexMaintenance struct {
	statsFn  func(ctx context.Context) (domain.IndexStats, error)
	deleteFn func(ctx context.Context, namespace string) (int, error)
}

func (m *mockIndexMaintenance) Stats(ctx context.Context) (domain.IndexStats, error) {
	return m.statsFn(ctx)
}

func (m *mockIndexMaintenance) DeleteNamespace(ctx context.Context, namespace string) (int, error) {
	return m.deleteFn(ctx, namespace)
}

// --- public provider mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

type mockGenerator struct {
	fn func(ctx context.Context, prompt string) (string, error)
}

func (m *mockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return m.fn(ctx, prompt)
}

// plainDomainEmbedder implements domain.Embedder without batch support.
type plainDomainEmbedder struct {
	fn func(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

func (m *plainDomainEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// staticSource serves a fixed record set through the public interface.
type staticSource struct {
	name    string
	records []Record
	err     error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(_ context.Context) ([]Record, error) {
	return s.records, s.err
}

// --- helpers ---

func testClient(
	searchSvc searchUseCase,
	answerSvc answerUseCase,
	ingestSvc ingestUseCase,
	healthSvc healthUseCase,
	index indexMaintenance,
) *Client {
	return &Client{
		searchSvc: searchSvc,
		answerSvc: answerSvc,
		ingestSvc: ingestSvc,
		healthSvc: healthSvc,
		index:     index,
	}
}
