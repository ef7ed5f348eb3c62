package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

var (
	queryTopK     int
	queryNoAnswer bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a one-shot semantic search",
	Long: `Embeds the query text, retrieves the nearest entries of the configured
namespace and prints them best first. When answer generation is
configured, a grounded natural-language answer follows the matches;
--no-answer skips generation entirely.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0,
		"number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryNoAnswer, "no-answer", false,
		"print matches only, skip answer synthesis")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, err := newClient(cmd.Context(), cfg, cfg.Index.Namespace, !queryNoAnswer)
	if err != nil {
		return err
	}
	defer client.Close()

	res, err := client.Search(cmd.Context(), query, queryTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	divider := strings.Repeat("=", 60)
	cmd.Println(divider)
	cmd.Printf("SEARCH RESULTS for: %q\n", query)
	cmd.Println(divider)

	if len(res.Matches) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, m := range res.Matches {
		cmd.Printf("\n%d. Score: %.4f\n", i+1, m.Score)
		cmd.Printf("   ID: %s\n", m.ID)
		if m.Text != "" {
			cmd.Printf("   Text: %s\n", snippet(m.Text, 200))
		}
		if src, ok := m.Metadata["source"]; ok {
			cmd.Printf("   Source: %s\n", src)
		}
		cmd.Println(strings.Repeat("-", 40))
	}

	if !queryNoAnswer {
		cmd.Println()
		cmd.Println("Answer:")
		cmd.Println(res.Answer)
	}
	if res.EmbeddingTokens > 0 {
		cmd.Printf("\n(embedding tokens used: %d)\n", res.EmbeddingTokens)
	}
	return nil
}

// snippet cuts s to at most n bytes without splitting a rune, marking the cut.
func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
