package ports

import "context"

// BlockClock is the external clock collaborator. Heights are monotonic
// non-decreasing. Operations read the height once, before their transaction
// begins, and treat it as a pure input.
type BlockClock interface {
	Current(ctx context.Context) (int64, error)
}

// Authorizer is the external authorization collaborator deciding whether a
// caller may invoke privileged operations.
type Authorizer interface {
	IsPrivileged(ctx context.Context, username string) (bool, error)
}

// HealthChecker checks external dependency health.
type HealthChecker interface {
	// Ping verifies connectivity. Returns nil if healthy.
	Ping(ctx context.Context) error
	// Name returns the dependency name (e.g., "postgresql", "redis").
	Name() string
}
