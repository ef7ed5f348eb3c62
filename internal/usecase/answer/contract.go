package answer

import (
	"context"

	"github.com/cosmos-nexus/nexus/internal/domain"
)

// Generator produces free-text output for an assembled prompt. Failure is
// carried inside the result so the caller always matches on the outcome.
type Generator interface {
	Generate(ctx context.Context, prompt string) domain.GenerationResult
}
