package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nexusctl",
	Short: "Operator CLI for the nexus semantic search service",
	Long: `nexusctl drives the nexus retrieval pipeline from the command line:
load source records into the vector index, run one-shot searches, inspect
index statistics and clean up namespaces.

Configuration comes from config/{ENV}.yaml (default: local) with
environment variable expansion. A .env file in the working directory is
loaded before the config file is read.`,
	SilenceUsage: true,
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
