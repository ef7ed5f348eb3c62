package domain

import "context"

// Generator produces a grounded answer from an assembled prompt.
// Failure is reported through the result, not an error return, so the
// consumer always matches on the outcome and never propagates a
// generation failure as a request failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) GenerationResult
}

// GenerationResult is the outcome of one generation call.
// Exactly one of Text or Err is meaningful.
type GenerationResult struct {
	Text string
	Err  error
}

// Ok reports whether generation produced usable text.
func (r GenerationResult) Ok() bool { return r.Err == nil && r.Text != "" }

// GeneratedText creates a successful result.
func GeneratedText(text string) GenerationResult { return GenerationResult{Text: text} }

// GenerationFailure creates a failed result.
func GenerationFailure(err error) GenerationResult { return GenerationResult{Err: err} }
