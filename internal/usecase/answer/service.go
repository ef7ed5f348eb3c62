package answer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/metrics"
)

// DefaultMaxContextBytes bounds the total snippet bytes packed into one prompt.
const DefaultMaxContextBytes = 16 * 1024

const noTextPlaceholder = "No text available"

const promptTemplate = `You are a helpful assistant that answers questions based on the provided search results from a user information database.

Original Query: %s

Search Results:
%s

Please provide a comprehensive, human-readable answer to the original query based on the search results above.
- Be specific and cite relevant details from the case studies
- If the results don't contain enough information to fully answer the query, mention this
- Keep the response informative but concise
- Use a professional, helpful tone

Answer:`

// Config bounds prompt assembly.
type Config struct {
	MaxContextBytes int
}

// Service assembles a grounded prompt from ranked matches and asks the
// generator for a natural-language answer. It always returns an answer
// string: generation failures degrade to a deterministic fallback, they
// never fail the surrounding request.
type Service struct {
	gen    Generator // nil when generation is not configured
	cfg    Config
	logger *zap.Logger
}

// New creates an answer service. A nil generator is allowed and yields the
// deterministic disabled-generation answer for every call.
func New(gen Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxContextBytes <= 0 {
		cfg.MaxContextBytes = DefaultMaxContextBytes
	}
	return &Service{gen: gen, cfg: cfg, logger: logger}
}

// Synthesize builds the prompt from the query and ranked matches and returns
// the generated answer, or a fallback string naming the result count.
func (s *Service) Synthesize(ctx context.Context, query string, matches []domain.Match) string {
	if s.gen == nil {
		s.logger.Debug("Generation disabled, returning deterministic answer",
			zap.Int("results", len(matches)),
		)
		return disabledMessage(len(matches))
	}

	prompt := s.buildPrompt(query, matches)

	result := s.gen.Generate(ctx, prompt)
	if !result.Ok() {
		s.logger.Warn("Answer generation failed, falling back",
			zap.Int("results", len(matches)),
			zap.Error(result.Err),
		)
		metrics.GenerationFallbacksTotal.Inc()
		return fallbackMessage(len(matches))
	}

	s.logger.Debug("Answer generated",
		zap.Int("results", len(matches)),
		zap.Int("prompt_bytes", len(prompt)),
		zap.Int("answer_bytes", len(result.Text)),
	)
	return result.Text
}

// buildPrompt packs matches into the prompt in rank order. Snippets are
// charged against the context budget: the first overflowing snippet is
// truncated to the remaining budget, later matches are dropped entirely.
func (s *Service) buildPrompt(query string, matches []domain.Match) string {
	var blocks []string
	remaining := s.cfg.MaxContextBytes

	for i, m := range matches {
		if remaining <= 0 {
			s.logger.Debug("Context budget exhausted, dropping tail results",
				zap.Int("kept", i),
				zap.Int("dropped", len(matches)-i),
			)
			break
		}

		text, ok := m.SearchableText()
		if !ok || text == "" {
			text = noTextPlaceholder
		}
		if len(text) > remaining {
			text = truncateRunes(text, remaining)
		}
		remaining -= len(text)

		blocks = append(blocks, fmt.Sprintf("Result %d (Score: %.3f):\n%s\n", i+1, m.Score, text))
	}

	return fmt.Sprintf(promptTemplate, query, strings.Join(blocks, "\n"))
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func fallbackMessage(n int) string {
	return fmt.Sprintf(
		"I found %d relevant results, but encountered an error generating a detailed response. Please check the individual results below.",
		n,
	)
}

func disabledMessage(n int) string {
	return fmt.Sprintf(
		"I found %d relevant results. Answer generation is disabled; please check the individual results below.",
		n,
	)
}
