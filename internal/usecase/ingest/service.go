package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/domain/record"
	"github.com/cosmos-nexus/nexus/internal/metrics"
	"github.com/cosmos-nexus/nexus/internal/source"
)

// Defaults for unset config fields.
const (
	DefaultBatchSize  = 100
	DefaultPollBudget = 30 * time.Second

	pollBase = 500 * time.Millisecond
)

// Config carries ingestion batching and consistency-poll settings.
type Config struct {
	Namespace  string
	BatchSize  int
	PollBudget time.Duration
}

// Report summarizes one ingestion run for the operator.
type Report struct {
	RunID     string
	Source    string
	Namespace string
	Fetched   int
	Skipped   int
	Ingested  int
	Batches   int
	Duration  time.Duration
	Stats     domain.IndexStats
}

// Service drives the ingestion pipeline: fetch, normalize, batch-embed,
// upsert, then poll the index until the batch is visible.
type Service struct {
	embed  Embedder
	index  Index
	cfg    Config
	logger *zap.Logger
}

// New creates an ingest service.
func New(embed Embedder, index Index, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.PollBudget <= 0 {
		cfg.PollBudget = DefaultPollBudget
	}
	return &Service{embed: embed, index: index, cfg: cfg, logger: logger}
}

// Run ingests everything the source produces into the configured namespace.
// A partial fetch is tolerated: the run continues with the subset and the
// skip count lands in the report. Every other failure aborts the run; the
// whole run is safe to retry because upsert replaces by ID.
func (s *Service) Run(ctx context.Context, src Source) (Report, error) {
	start := time.Now()
	report := Report{
		RunID:     uuid.NewString(),
		Source:    src.Name(),
		Namespace: s.cfg.Namespace,
	}
	log := s.logger.With(
		zap.String("run_id", report.RunID),
		zap.String("source", report.Source),
		zap.String("namespace", report.Namespace),
	)

	records, err := src.Fetch(ctx)
	if err != nil {
		var partial *source.PartialError
		if !errors.As(err, &partial) {
			return report, fmt.Errorf("fetch %s: %w", report.Source, err)
		}
		report.Skipped = partial.Skipped
		log.Warn("Partial fetch, continuing with subset",
			zap.Int("fetched", partial.Fetched),
			zap.Int("skipped", partial.Skipped),
			zap.Error(partial.Err),
		)
	}
	report.Fetched = len(records)
	metrics.IngestRecordsTotal.WithLabelValues(report.Source, "skipped").Add(float64(report.Skipped))

	if len(records) == 0 {
		log.Info("Nothing to ingest")
		report.Duration = time.Since(start)
		return report, nil
	}

	texts := make([]string, len(records))
	for i := range records {
		texts[i] = records[i].SearchableText()
	}

	log.Info("Embedding records", zap.Int("count", len(texts)))
	batch, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return report, fmt.Errorf("batch embed %d texts: %w", len(texts), err)
	}
	if len(batch.Embeddings) != len(records) {
		return report, fmt.Errorf("batch embed returned %d vectors for %d records", len(batch.Embeddings), len(records))
	}

	wantDim, err := s.index.EnsureIndex(ctx)
	if err != nil {
		return report, fmt.Errorf("ensure index: %w", err)
	}
	if err := domain.VerifyDimensions(batch.Embeddings, wantDim); err != nil {
		return report, fmt.Errorf("verify embeddings against index: %w", err)
	}

	entries, unique := buildEntries(src.Name(), records, batch.Embeddings, texts)

	for offset := 0; offset < len(entries); offset += s.cfg.BatchSize {
		end := offset + s.cfg.BatchSize
		if end > len(entries) {
			end = len(entries)
		}
		if err := s.index.Upsert(ctx, s.cfg.Namespace, entries[offset:end]); err != nil {
			metrics.IngestBatchesTotal.WithLabelValues("error").Inc()
			return report, fmt.Errorf("upsert batch at offset %d: %w", offset, err)
		}
		metrics.IngestBatchesTotal.WithLabelValues("ok").Inc()
		report.Batches++
	}
	report.Ingested = len(entries)
	metrics.IngestRecordsTotal.WithLabelValues(report.Source, "ingested").Add(float64(report.Ingested))

	// Indexing is eventually consistent: entries may not be queryable the
	// moment upsert returns. Poll occupancy within a bounded budget; missing
	// the budget degrades the report, not the run.
	s.awaitVisible(ctx, log, unique)

	stats, err := s.index.Stats(ctx)
	if err != nil {
		log.Warn("Stats unavailable after ingest", zap.Error(err))
	} else {
		report.Stats = stats
	}

	report.Duration = time.Since(start)
	metrics.IngestRunDuration.WithLabelValues(report.Source).Observe(report.Duration.Seconds())

	log.Info("Ingestion run complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("skipped", report.Skipped),
		zap.Int("ingested", report.Ingested),
		zap.Int("batches", report.Batches),
		zap.Duration("duration", report.Duration),
		zap.Int("namespace_vectors", report.Stats.Namespaces[report.Namespace]),
	)
	return report, nil
}

// awaitVisible polls index stats with fibonacci backoff until the namespace
// holds at least want vectors or the poll budget elapses.
func (s *Service) awaitVisible(ctx context.Context, log *zap.Logger, want int) {
	backoff := retry.WithMaxDuration(s.cfg.PollBudget, retry.NewFibonacci(pollBase))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		stats, err := s.index.Stats(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		if got := stats.Namespaces[s.cfg.Namespace]; got < want {
			return retry.RetryableError(fmt.Errorf("namespace holds %d of %d vectors", got, want))
		}
		return nil
	})
	if err != nil {
		log.Warn("Ingested entries not yet visible, poll budget elapsed",
			zap.Duration("budget", s.cfg.PollBudget),
			zap.Error(err),
		)
	}
}

// buildEntries pairs records with their vectors and stamps the standing
// metadata. unique counts distinct IDs, the floor for the visibility poll.
func buildEntries(sourceName string, records []record.Record, embeddings [][]float32, texts []string) ([]domain.Entry, int) {
	entries := make([]domain.Entry, 0, len(records))
	seen := make(map[string]struct{}, len(records))

	for i := range records {
		id := records[i].ID()
		seen[id] = struct{}{}
		entries = append(entries, domain.Entry{
			ID:     id,
			Vector: embeddings[i],
			Metadata: map[string]string{
				domain.MetaSourceID:       id,
				domain.MetaSearchableText: texts[i],
				domain.MetaSource:         sourceName,
			},
		})
	}
	return entries, len(seen)
}
