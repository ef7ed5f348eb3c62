// Package index persists vector entries in namespace-partitioned Redis
// hashes behind one FT index per logical index name.
package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cosmos-nexus/nexus/internal/db"
	"github.com/cosmos-nexus/nexus/internal/domain"
)

// store is the consumer interface for index operations (ISP).
type store interface {
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	IndexDimension(ctx context.Context, name string) (int, error)
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	DelMulti(ctx context.Context, keys []string) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, namespace string) (int, error)
	TagValues(ctx context.Context, index, field string) ([]string, error)
}

// Config holds the index layout settings.
type Config struct {
	Name            string // logical index name, scoped under domain.KeyPrefix
	Dimensions      int
	Metric          string // cosine, l2 or ip
	Algorithm       string // flat or hnsw
	HNSWM           int
	HNSWEFConstruct int
}

// Repo implements the vector index repository consumed by the search,
// ingest and stats services.
type Repo struct {
	store store
	cfg   Config
}

// New creates an index repository.
func New(s store, cfg Config) *Repo {
	return &Repo{store: s, cfg: cfg}
}

// EnsureIndex creates the FT index when absent. An existing index is trusted
// by name; its reported vector dimension is returned so callers can verify
// embeddings against what the index actually holds before writing.
func (r *Repo) EnsureIndex(ctx context.Context) (int, error) {
	name := r.indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return 0, indexErr("probe index "+name, err)
	}

	if exists {
		dim, err := r.store.IndexDimension(ctx, name)
		if err != nil {
			return 0, indexErr("probe dimension "+name, err)
		}
		if dim == 0 {
			dim = r.cfg.Dimensions
		}
		return dim, nil
	}

	def, err := buildIndexDefinition(name, r.keyPrefix(), r.cfg)
	if err != nil {
		return 0, fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// Concurrent ingest runs race on creation; losing the race is fine.
		if errors.Is(err, db.ErrIndexExists) {
			return r.cfg.Dimensions, nil
		}
		return 0, indexErr("create index "+name, err)
	}
	return r.cfg.Dimensions, nil
}

// Upsert writes entries into a namespace in one pipelined batch. Existing
// entries sharing an ID are replaced, so retrying a failed batch is safe.
func (r *Repo) Upsert(ctx context.Context, namespace string, entries []domain.Entry) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if len(entries) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			return fmt.Errorf("entry [%d]: id is required", i)
		}
		items = append(items, db.HashSetItem{
			Key:    r.entryKey(namespace, e.ID),
			Fields: buildHashFields(namespace, e),
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return indexErr(fmt.Sprintf("upsert %d entries into %s", len(items), namespace), err)
	}
	return nil
}

// Query returns the topK nearest entries of a namespace, best first. An
// empty namespace searches the whole index. A namespace with no entries
// yields an empty slice, not an error.
func (r *Repo) Query(
	ctx context.Context, namespace string, vector []float32, topK int, includeMetadata bool,
) ([]domain.Match, error) {
	q := &db.KNNQuery{
		IndexName: r.indexName(),
		Namespace: namespace,
		Vector:    vector,
		K:         topK,
	}
	if !includeMetadata {
		q.ReturnFields = []string{"__vector_score"}
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, indexErr("search knn "+r.cfg.Name, err)
	}

	return r.parseMatches(sr, namespace, includeMetadata), nil
}

// Stats reports index occupancy. A missing index reads as empty so stats
// work before the first ingest run.
func (r *Repo) Stats(ctx context.Context) (domain.IndexStats, error) {
	name := r.indexName()

	total, err := r.store.SearchCount(ctx, name, "")
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return domain.IndexStats{Namespaces: map[string]int{}}, nil
		}
		return domain.IndexStats{}, indexErr("count "+name, err)
	}

	namespaces, err := r.store.TagValues(ctx, name, fieldNamespace)
	if err != nil {
		return domain.IndexStats{}, indexErr("namespaces "+name, err)
	}

	counts := make(map[string]int, len(namespaces))
	for _, ns := range namespaces {
		n, err := r.store.SearchCount(ctx, name, ns)
		if err != nil {
			return domain.IndexStats{}, indexErr("count "+name+" namespace "+ns, err)
		}
		counts[ns] = n
	}

	return domain.IndexStats{TotalVectorCount: total, Namespaces: counts}, nil
}

// DeleteNamespace removes every entry of a namespace and reports how many
// keys were scanned for deletion. The FT index itself is kept.
func (r *Repo) DeleteNamespace(ctx context.Context, namespace string) (int, error) {
	if namespace == "" {
		return 0, fmt.Errorf("namespace is required")
	}

	pattern := r.keyPrefix() + namespace + ":*"
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return 0, indexErr("scan namespace "+namespace, err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return 0, indexErr(fmt.Sprintf("delete %d keys of %s", len(keys), namespace), err)
	}
	return len(keys), nil
}

func (r *Repo) parseMatches(sr *db.SearchResult, namespace string, includeMetadata bool) []domain.Match {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	matches := make([]domain.Match, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		m := domain.Match{
			ID:    r.matchID(entry.Key, namespace),
			Score: entry.Score,
		}
		if includeMetadata {
			m.Metadata = matchMetadata(entry.Fields)
		}
		matches = append(matches, m)
	}
	return matches
}

// matchID strips the key layout ({prefix}{namespace}:{id}) back to the
// entry ID. Whole-index queries carry an unknown namespace in each key, so
// the ID starts after the first separator past the prefix.
func (r *Repo) matchID(key, namespace string) string {
	rest := strings.TrimPrefix(key, r.keyPrefix())
	if namespace != "" {
		return strings.TrimPrefix(rest, namespace+":")
	}
	if i := strings.Index(rest, ":"); i >= 0 {
		return rest[i+1:]
	}
	return rest
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, r.cfg.Name)
}

func (r *Repo) keyPrefix() string {
	return fmt.Sprintf("%s%s:", domain.KeyPrefix, r.cfg.Name)
}

func (r *Repo) entryKey(namespace, id string) string {
	return r.keyPrefix() + namespace + ":" + id
}

// indexErr classifies store failures as index unavailability for upstream
// error handling while keeping the cause in the chain.
func indexErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrIndexUnavailable, err)
}
