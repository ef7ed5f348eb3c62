package nexus

import "github.com/cosmos-nexus/nexus/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyQuery           = domain.ErrEmptyQuery
	ErrInvalidTopK          = domain.ErrInvalidTopK
	ErrDimensionMismatch    = domain.ErrDimensionMismatch
	ErrIndexUnavailable     = domain.ErrIndexUnavailable
	ErrEmbeddingUnavailable = domain.ErrEmbeddingUnavailable
	ErrGenerationFailed     = domain.ErrGenerationFailed
)
