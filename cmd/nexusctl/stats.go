package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print vector index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cmd.Context(), cfg, cfg.Index.Namespace, false)
	if err != nil {
		return err
	}
	defer client.Close()

	st, err := client.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("stats failed: %w", err)
	}

	printStats(cmd, st)
	return nil
}
