package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	wipeNamespace string
	wipeYes       bool
)

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all entries of a namespace",
	Long: `Deletes every vector entry of the given namespace. The index itself
is kept, so other namespaces stay searchable. Requires --yes.`,
	Args: cobra.NoArgs,
	RunE: runWipe,
}

func init() {
	wipeCmd.Flags().StringVarP(&wipeNamespace, "namespace", "n", "",
		"namespace to delete (required)")
	wipeCmd.Flags().BoolVar(&wipeYes, "yes", false, "confirm deletion")
	_ = wipeCmd.MarkFlagRequired("namespace")
	rootCmd.AddCommand(wipeCmd)
}

func runWipe(cmd *cobra.Command, _ []string) error {
	if !wipeYes {
		return errors.New("refusing to delete without --yes")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cmd.Context(), cfg, wipeNamespace, false)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.DeleteNamespace(cmd.Context(), wipeNamespace)
	if err != nil {
		return fmt.Errorf("wipe failed: %w", err)
	}

	cmd.Printf("Deleted %d entries from namespace %q.\n", n, wipeNamespace)
	return nil
}
