package index

import (
	"context"
	"testing"

	"github.com/cosmos-nexus/nexus/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	createIndexFn    func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn    func(ctx context.Context, name string) (bool, error)
	indexDimensionFn func(ctx context.Context, name string) (int, error)
	hSetMultiFn      func(ctx context.Context, items []db.HashSetItem) error
	scanFn           func(ctx context.Context, pattern string) ([]string, error)
	delMultiFn       func(ctx context.Context, keys []string) error
	searchKNNFn      func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchCountFn    func(ctx context.Context, index, namespace string) (int, error)
	tagValuesFn      func(ctx context.Context, index, field string) ([]string, error)
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) IndexDimension(ctx context.Context, name string) (int, error) {
	if m.indexDimensionFn != nil {
		return m.indexDimensionFn(ctx, name)
	}
	return 0, nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hSetMultiFn != nil {
		return m.hSetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) DelMulti(ctx context.Context, keys []string) error {
	if m.delMultiFn != nil {
		return m.delMultiFn(ctx, keys)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, namespace string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, namespace)
	}
	return 0, nil
}

func (m *mockStore) TagValues(ctx context.Context, index, field string) ([]string, error) {
	if m.tagValuesFn != nil {
		return m.tagValuesFn(ctx, index, field)
	}
	return nil, nil
}

func testConfig() Config {
	return Config{
		Name:       "docs",
		Dimensions: 4,
		Metric:     "cosine",
		Algorithm:  "flat",
	}
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testConfig()), ms
}

func testVector() []float32 {
	return []float32{0.1, 0.2, 0.3, 0.4}
}
