package answer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/cosmos-nexus/nexus/internal/domain"
	"github.com/cosmos-nexus/nexus/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterGenerationMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

type mockGenerator struct {
	result     domain.GenerationResult
	called     bool
	lastPrompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) domain.GenerationResult {
	m.called = true
	m.lastPrompt = prompt
	return m.result
}

func match(id string, score float64, text string) domain.Match {
	md := map[string]string{domain.MetaSourceID: id}
	if text != "" {
		md[domain.MetaSearchableText] = text
	}
	return domain.Match{ID: id, Score: score, Metadata: md}
}

func newService(gen Generator, budget int) *Service {
	return New(gen, Config{MaxContextBytes: budget}, zap.NewNop())
}

// --- Tests ---

func TestSynthesize_ReturnsGeneratedText(t *testing.T) {
	gen := &mockGenerator{result: domain.GeneratedText("Ada is an engineer.")}
	svc := newService(gen, 0)

	matches := []domain.Match{
		match("r1", 0.92, "Name: Ada. Role: Engineer"),
		match("r2", 0.71, "Name: Grace. Role: Admiral"),
	}

	got := svc.Synthesize(context.Background(), "who is the engineer?", matches)
	if got != "Ada is an engineer." {
		t.Fatalf("answer = %q, want generator output unmodified", got)
	}
	if !gen.called {
		t.Fatal("expected generator to be called")
	}

	for _, want := range []string{
		"Original Query: who is the engineer?",
		"Result 1 (Score: 0.920):\nName: Ada. Role: Engineer",
		"Result 2 (Score: 0.710):\nName: Grace. Role: Admiral",
	} {
		if !strings.Contains(gen.lastPrompt, want) {
			t.Errorf("prompt missing %q\nprompt:\n%s", want, gen.lastPrompt)
		}
	}
}

func TestSynthesize_PlaceholderWhenTextMissing(t *testing.T) {
	gen := &mockGenerator{result: domain.GeneratedText("answer")}
	svc := newService(gen, 0)

	svc.Synthesize(context.Background(), "q", []domain.Match{match("r1", 0.5, "")})

	if !strings.Contains(gen.lastPrompt, noTextPlaceholder) {
		t.Errorf("prompt missing placeholder %q\nprompt:\n%s", noTextPlaceholder, gen.lastPrompt)
	}
}

func TestSynthesize_FallbackOnGenerationError(t *testing.T) {
	before := testutil.ToFloat64(metrics.GenerationFallbacksTotal)

	gen := &mockGenerator{result: domain.GenerationFailure(errors.New("quota exceeded"))}
	svc := newService(gen, 0)

	matches := []domain.Match{
		match("a", 0.9, "t1"),
		match("b", 0.8, "t2"),
		match("c", 0.7, "t3"),
	}

	got := svc.Synthesize(context.Background(), "q", matches)
	if got == "" {
		t.Fatal("fallback answer must not be empty")
	}
	if !strings.Contains(got, "3 relevant results") {
		t.Errorf("fallback %q does not name the result count", got)
	}

	after := testutil.ToFloat64(metrics.GenerationFallbacksTotal)
	if after != before+1 {
		t.Errorf("fallback counter = %v, want %v", after, before+1)
	}
}

func TestSynthesize_FallbackOnEmptyOutput(t *testing.T) {
	gen := &mockGenerator{result: domain.GeneratedText("")}
	svc := newService(gen, 0)

	got := svc.Synthesize(context.Background(), "q", []domain.Match{match("a", 0.9, "t")})
	if !strings.Contains(got, "1 relevant results") {
		t.Errorf("empty generator output should fall back, got %q", got)
	}
}

func TestSynthesize_DisabledGenerator(t *testing.T) {
	svc := newService(nil, 0)

	got := svc.Synthesize(context.Background(), "q", []domain.Match{
		match("a", 0.9, "t1"),
		match("b", 0.8, "t2"),
	})
	if !strings.Contains(got, "2 relevant results") {
		t.Errorf("disabled answer %q does not name the result count", got)
	}
}

func TestBuildPrompt_BudgetTruncatesThenDrops(t *testing.T) {
	gen := &mockGenerator{result: domain.GeneratedText("answer")}
	svc := newService(gen, 15)

	matches := []domain.Match{
		match("a", 0.9, "aaaaaaaaaa"), // 10 bytes, fits
		match("b", 0.8, "bbbbbbbbbb"), // truncated to the remaining 5
		match("c", 0.7, "cccccccccc"), // dropped, budget exhausted
	}

	svc.Synthesize(context.Background(), "q", matches)

	if !strings.Contains(gen.lastPrompt, "aaaaaaaaaa") {
		t.Error("first snippet should be kept whole")
	}
	if !strings.Contains(gen.lastPrompt, "bbbbb") || strings.Contains(gen.lastPrompt, "bbbbbb") {
		t.Error("second snippet should be truncated to the remaining budget")
	}
	if strings.Contains(gen.lastPrompt, "Result 3") || strings.Contains(gen.lastPrompt, "ccc") {
		t.Error("third match should be dropped entirely")
	}
}

func TestBuildPrompt_OrderPreserved(t *testing.T) {
	gen := &mockGenerator{result: domain.GeneratedText("answer")}
	svc := newService(gen, 0)

	var matches []domain.Match
	for i := 0; i < 4; i++ {
		matches = append(matches, match(fmt.Sprintf("id%d", i), 1.0-float64(i)*0.1, fmt.Sprintf("text-%d", i)))
	}
	svc.Synthesize(context.Background(), "q", matches)

	last := -1
	for i := range matches {
		pos := strings.Index(gen.lastPrompt, fmt.Sprintf("text-%d", i))
		if pos < 0 {
			t.Fatalf("snippet %d missing from prompt", i)
		}
		if pos < last {
			t.Fatalf("snippet %d out of rank order", i)
		}
		last = pos
	}
}

func TestTruncateRunes_NeverSplitsRune(t *testing.T) {
	s := "héllo" // é is 2 bytes
	if got := truncateRunes(s, 2); got != "h" {
		t.Errorf("truncateRunes(%q, 2) = %q, want %q", s, got, "h")
	}
	if got := truncateRunes(s, 3); got != "hé" {
		t.Errorf("truncateRunes(%q, 3) = %q, want %q", s, got, "hé")
	}
	if got := truncateRunes(s, 100); got != s {
		t.Errorf("truncateRunes(%q, 100) = %q, want input unchanged", s, got)
	}
}
