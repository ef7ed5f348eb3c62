package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery signals a blank or whitespace-only search query.
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidTopK signals an out-of-range top_k.
	ErrInvalidTopK = errors.New("invalid top_k")
	// ErrDimensionMismatch signals an embedding/index dimension mismatch.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrIndexUnavailable signals an unreachable vector index.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrEmbeddingUnavailable signals an unreachable embedding provider.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrGenerationFailed signals a generative model failure.
	// The answer synthesizer recovers it with a fallback; it never fails a request.
	ErrGenerationFailed = errors.New("generation failed")
)

// DimensionMismatchError wraps ErrDimensionMismatch with the observed dimensions.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: index expects %d, got %d", ErrDimensionMismatch.Error(), e.Want, e.Got)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }

// NewDimensionMismatch creates a dimension mismatch error.
func NewDimensionMismatch(want, got int) error {
	return &DimensionMismatchError{Want: want, Got: got}
}
