package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates search still works but a non-critical dependency is down.
	Degraded Status = "degraded"
	// Unhealthy indicates the vector store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names, shared with the HTTP handler's response fields.
const (
	CheckIndex      = "index"
	CheckEmbedding  = "embedding"
	CheckGeneration = "generation"
)

// Report aggregates health check results. A check that is not configured
// (disabled generation) is absent from Checks and does not affect Status.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks. The index is the only critical
// dependency: without it no query can be served, so its failure alone
// makes the whole report Unhealthy. Embedding or generation failures
// degrade the report but queries may still partially work (cache hits,
// fallback answers).
type Service struct {
	index      IndexPinger
	embedding  DependencyChecker
	generation DependencyChecker
}

// New creates a Service. embedding and generation can be nil.
func New(index IndexPinger, embedding, generation DependencyChecker) *Service {
	return &Service{index: index, embedding: embedding, generation: generation}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.index.Ping(ctx); err != nil {
		checks[CheckIndex] = CheckError
	} else {
		checks[CheckIndex] = CheckOK
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks[CheckEmbedding] = CheckError
		} else {
			checks[CheckEmbedding] = CheckOK
		}
	}

	if s.generation != nil {
		if err := s.generation.HealthCheck(ctx); err != nil {
			checks[CheckGeneration] = CheckError
		} else {
			checks[CheckGeneration] = CheckOK
		}
	}

	status := Healthy
	if checks[CheckIndex] == CheckError {
		status = Unhealthy
	} else {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}
