package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/cosmos-nexus/nexus/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name. The indexed hashes are kept.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// IndexDimension reads the DIM of the first vector attribute from FT.INFO.
// Returns 0 when the index has no vector attribute or the server does not
// report a dimension, and db.ErrIndexNotFound for unknown indexes.
func (s *Store) IndexDimension(ctx context.Context, name string) (int, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	info, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return 0, db.ErrIndexNotFound
		}
		return 0, &db.Error{Op: db.OpIndexInfo, Err: err}
	}

	attrs, ok := infoSection(info, "attributes")
	if !ok {
		return 0, nil
	}

	for _, attr := range attrs {
		fields, err := attr.ToArray()
		if err != nil {
			continue
		}
		if dim, ok := vectorDim(fields); ok {
			return dim, nil
		}
	}
	return 0, nil
}

// infoSection finds a top-level FT.INFO section by key. The reply is a flat
// array of alternating keys and values.
func infoSection(info []rueidis.RedisMessage, key string) ([]rueidis.RedisMessage, bool) {
	for i := 0; i+1 < len(info); i += 2 {
		k, err := info[i].ToString()
		if err != nil || !strings.EqualFold(k, key) {
			continue
		}
		val, err := info[i+1].ToArray()
		if err != nil {
			return nil, false
		}
		return val, true
	}
	return nil, false
}

// vectorDim extracts the dim from a single attribute's key-value pairs,
// returning false unless the attribute type is VECTOR.
func vectorDim(fields []rueidis.RedisMessage) (int, bool) {
	isVector := false
	dim := 0

	for i := 0; i+1 < len(fields); i += 2 {
		k, err := fields[i].ToString()
		if err != nil {
			continue
		}
		switch {
		case strings.EqualFold(k, "type"):
			v, err := fields[i+1].ToString()
			if err == nil && strings.EqualFold(v, "VECTOR") {
				isVector = true
			}
		case strings.EqualFold(k, "dim"):
			if n, err := fields[i+1].AsInt64(); err == nil {
				dim = int(n)
			} else if v, err := fields[i+1].ToString(); err == nil {
				if n, err := strconv.Atoi(v); err == nil {
					dim = n
				}
			}
		}
	}

	if !isVector || dim <= 0 {
		return 0, false
	}
	return dim, true
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	args := []string{f.Name}

	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case db.IndexFieldTag:
		args = append(args, "TAG")
		if f.TagSeparator != "" {
			args = append(args, "SEPARATOR", f.TagSeparator)
		}
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}

	case db.IndexFieldVector:
		vectorArgs, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)

	default:
		return nil, errors.New("unknown field type")
	}

	return args, nil
}

func buildVectorFieldArgs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, errors.New("vector DIM must be positive")
	}

	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorFlat
	}

	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}

	switch algo {
	case db.VectorHNSW:
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
	case db.VectorFlat:
		if f.VectorBlockSize > 0 {
			attrs = append(attrs, "BLOCK_SIZE", strconv.Itoa(f.VectorBlockSize))
		}
	}

	result := make([]string, 0, 3+len(attrs))
	result = append(result, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	result = append(result, attrs...)

	return result, nil
}
