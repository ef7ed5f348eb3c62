package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cosmos-nexus/nexus/internal/config"
	nexus "github.com/cosmos-nexus/nexus/pkg/sdk"
)

var ingestNamespace string

var ingestCmd = &cobra.Command{
	Use:   "ingest [airtable|notion|file]",
	Short: "Fetch a source and load it into the vector index",
	Long: `Runs the full ingestion pipeline for one source: fetch records,
normalize them into searchable text, embed in batches and upsert into the
vector index. The run report and the resulting index statistics are
printed when the pipeline finishes.

A partial fetch (some records lost mid-pagination) does not abort the
run; the skipped count appears in the report.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVarP(&ingestNamespace, "namespace", "n", "",
		"target namespace (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	src, err := buildSource(cfg, args[0])
	if err != nil {
		return err
	}

	namespace := ingestNamespace
	if namespace == "" {
		namespace = cfg.Index.Namespace
	}

	client, err := newClient(cmd.Context(), cfg, namespace, false)
	if err != nil {
		return err
	}
	defer client.Close()

	cmd.Printf("Ingesting %s into namespace %q...\n", src.Name(), namespace)

	rep, err := client.Ingest(cmd.Context(), src)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	cmd.Println()
	cmd.Printf("Run %s finished in %s\n", rep.RunID, rep.Duration.Round(time.Millisecond))
	cmd.Printf("  Fetched:  %d\n", rep.Fetched)
	if rep.Skipped > 0 {
		cmd.Printf("  Skipped:  %d\n", rep.Skipped)
	}
	cmd.Printf("  Ingested: %d in %d batches\n", rep.Ingested, rep.Batches)
	cmd.Println()
	printStats(cmd, rep.Stats)
	return nil
}

func buildSource(cfg config.Config, kind string) (nexus.Source, error) {
	switch kind {
	case "airtable":
		if err := cfg.Sources.Airtable.Validate(); err != nil {
			return nil, err
		}
		return nexus.AirtableSource(nexus.AirtableConfig{
			APIKey: cfg.Sources.Airtable.APIKey,
			BaseID: cfg.Sources.Airtable.BaseID,
			Table:  cfg.Sources.Airtable.Table,
			View:   cfg.Sources.Airtable.View,
		})
	case "notion":
		if err := cfg.Sources.Notion.Validate(); err != nil {
			return nil, err
		}
		return nexus.NotionSource(nexus.NotionConfig{
			APIKey:     cfg.Sources.Notion.APIKey,
			DatabaseID: cfg.Sources.Notion.DatabaseID,
		})
	case "file":
		if err := cfg.Sources.File.Validate(); err != nil {
			return nil, err
		}
		return nexus.FileSource(cfg.Sources.File.Path)
	default:
		return nil, fmt.Errorf("unknown source %q (expected airtable, notion or file)", kind)
	}
}
