package nexus

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain/record"
	"github.com/cosmos-nexus/nexus/internal/source/airtable"
	"github.com/cosmos-nexus/nexus/internal/source/file"
	"github.com/cosmos-nexus/nexus/internal/source/notion"
)

// Source produces the records of one external system for Ingest. Fetch may
// return a usable subset together with an error describing what was
// skipped; ingestion continues with the subset in that case.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Record, error)
}

// AirtableConfig configures the built-in Airtable source.
type AirtableConfig struct {
	APIKey string
	BaseID string
	Table  string
	View   string // optional: fetch through a view for its field/row filter
}

// AirtableSource reads all records of one Airtable table, following offset
// pagination until the table is exhausted.
func AirtableSource(cfg AirtableConfig) (Source, error) {
	src, err := airtable.New(airtable.Config{
		APIKey: cfg.APIKey,
		BaseID: cfg.BaseID,
		Table:  cfg.Table,
		View:   cfg.View,
		Logger: zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("nexus: airtable source: %w", err)
	}
	return &recordSource{inner: src}, nil
}

// NotionConfig configures the built-in Notion source.
type NotionConfig struct {
	APIKey     string
	DatabaseID string
}

// NotionSource reads all pages of one Notion database, following the
// cursor until has_more is false.
func NotionSource(cfg NotionConfig) (Source, error) {
	src, err := notion.New(notion.Config{
		APIKey:     cfg.APIKey,
		DatabaseID: cfg.DatabaseID,
		Logger:     zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("nexus: notion source: %w", err)
	}
	return &recordSource{inner: src}, nil
}

// FileSource reads records from an exported JSON message dump.
func FileSource(path string) (Source, error) {
	src, err := file.New(file.Config{
		Path:   path,
		Logger: zap.NewNop(),
	})
	if err != nil {
		return nil, fmt.Errorf("nexus: file source: %w", err)
	}
	return &recordSource{inner: src}, nil
}

// internalSource is the slice of the built-in producers recordSource wraps.
type internalSource interface {
	Name() string
	Fetch(ctx context.Context) ([]record.Record, error)
}

// recordSource exposes a built-in producer through the public Source
// interface. The fetch error passes through untouched so partial-fetch
// detection inside the pipeline keeps working.
type recordSource struct {
	inner internalSource
}

func (s *recordSource) Name() string { return s.inner.Name() }

func (s *recordSource) Fetch(ctx context.Context) ([]Record, error) {
	recs, err := s.inner.Fetch(ctx)

	out := make([]Record, 0, len(recs))
	for i := range recs {
		out = append(out, toPublicRecord(&recs[i]))
	}
	return out, err
}

func toPublicRecord(r *record.Record) Record {
	fields := make(map[string]any, len(r.Fields()))
	for name, v := range r.Fields() {
		fields[name] = v.Raw()
	}
	return Record{ID: r.ID(), Fields: fields}
}

// sourceAdapter turns a public Source into the pipeline's record producer.
type sourceAdapter struct {
	src Source
}

func (a sourceAdapter) Name() string { return a.src.Name() }

func (a sourceAdapter) Fetch(ctx context.Context) ([]record.Record, error) {
	recs, fetchErr := a.src.Fetch(ctx)

	out := make([]record.Record, 0, len(recs))
	for i := range recs {
		fields := make(map[string]record.Value, len(recs[i].Fields))
		for name, v := range recs[i].Fields {
			fields[name] = record.ValueOf(v)
		}
		rec, err := record.New(recs[i].ID, fields)
		if err != nil {
			return nil, fmt.Errorf("record [%d]: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, fetchErr
}
