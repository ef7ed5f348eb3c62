package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosmos-nexus/nexus/internal/config"
	"github.com/cosmos-nexus/nexus/internal/domain"
	nexus "github.com/cosmos-nexus/nexus/pkg/sdk"
)

// newClient wires an SDK client from the loaded configuration. Generation
// is optional: commands that never print an answer skip it and spare the
// API call.
func newClient(ctx context.Context, cfg config.Config, namespace string, withGeneration bool) (*nexus.Client, error) {
	// The model identity must match what ingestion wrote into the index.
	vc := domain.DefaultVectorConfig()
	model := cfg.Embedding.Model
	if model == "" {
		model = vc.Model
	}
	dims := cfg.Embedding.Dimensions
	if dims <= 0 {
		dims = vc.Dimensions
	}

	opts := []nexus.Option{
		nexus.WithRedis(cfg.Database.Addrs[0], cfg.Database.Password),
		nexus.WithIndex(cfg.Index.Name, dims, cfg.Index.Metric),
		nexus.WithNamespace(namespace),
		nexus.WithSearchLimits(cfg.Index.DefaultTopK, cfg.Index.MaxTopK),
		nexus.WithBatchSize(cfg.Index.MaxBatchSize),
		nexus.WithPollBudget(time.Duration(cfg.Index.PollBudgetSec) * time.Second),
		nexus.WithOpenAIEmbedding(nexus.EmbeddingConfig{
			BaseURL:             cfg.Embedding.BaseURL,
			APIKey:              cfg.Embedding.APIKey,
			Model:               model,
			BatchSize:           cfg.Embedding.BatchSize,
			Concurrency:         cfg.Embedding.Concurrency,
			QueryInstruction:    cfg.Embedding.QueryInstruction,
			DocumentInstruction: cfg.Embedding.DocumentInstruction,
		}),
	}
	if cfg.Index.Algorithm == "hnsw" {
		opts = append(opts, nexus.WithHNSW(cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct))
	}
	if withGeneration && cfg.Generation.Enabled() {
		opts = append(opts, nexus.WithGeminiGeneration(nexus.GenerationConfig{
			BaseURL:         cfg.Generation.BaseURL,
			APIKey:          cfg.Generation.APIKey,
			Model:           cfg.Generation.Model,
			Timeout:         time.Duration(cfg.Generation.TimeoutSec) * time.Second,
			MaxContextBytes: cfg.Generation.MaxContextBytes,
		}))
	}

	client, err := nexus.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	return client, nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(config.GetEnv())
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func printStats(cmd *cobra.Command, st nexus.Stats) {
	cmd.Println("Index statistics:")
	cmd.Printf("  Total vectors: %d\n", st.TotalVectors)

	if len(st.Namespaces) == 0 {
		return
	}
	names := make([]string, 0, len(st.Namespaces))
	for ns := range st.Namespaces {
		names = append(names, ns)
	}
	sort.Strings(names)

	cmd.Println("  Namespaces:")
	for _, ns := range names {
		cmd.Printf("    %s: %d\n", ns, st.Namespaces[ns])
	}
}
