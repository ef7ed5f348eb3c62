package index

import (
	"fmt"
	"strings"

	"github.com/cosmos-nexus/nexus/internal/db"
)

// Reserved hash fields. Everything else in an entry's hash is metadata.
const (
	fieldNamespace = "namespace"
	fieldVector    = "__vector"
)

// vectorAlias names the vector field inside FT.SEARCH queries.
const vectorAlias = "vector"

// buildIndexDefinition maps the repository config onto an FT index: one
// namespace TAG for partitioning plus the vector field.
func buildIndexDefinition(name, prefix string, cfg Config) (*db.IndexDefinition, error) {
	metric, err := metricFromConfig(cfg.Metric)
	if err != nil {
		return nil, err
	}

	b := db.NewIndex(name).
		Prefix(prefix).
		Tag(fieldNamespace)

	switch strings.ToLower(cfg.Algorithm) {
	case "", "flat":
		b = b.Vector(fieldVector, cfg.Dimensions, db.VectorFlat, metric).As(vectorAlias)
	case "hnsw":
		b = b.VectorHNSW(fieldVector, cfg.Dimensions, metric, cfg.HNSWM, cfg.HNSWEFConstruct).As(vectorAlias)
	default:
		return nil, fmt.Errorf("unknown vector algorithm %q", cfg.Algorithm)
	}

	return b.Build()
}

func metricFromConfig(metric string) (db.DistanceMetric, error) {
	switch strings.ToLower(metric) {
	case "", "cosine":
		return db.DistanceCosine, nil
	case "l2":
		return db.DistanceL2, nil
	case "ip":
		return db.DistanceIP, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", metric)
	}
}
