package health

import "context"

// IndexPinger checks vector store availability.
type IndexPinger interface {
	Ping(ctx context.Context) error
}

// DependencyChecker checks an upstream provider's availability.
type DependencyChecker interface {
	HealthCheck(ctx context.Context) error
}
