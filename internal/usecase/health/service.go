package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the cache is down; search still works uncached.
	Degraded Status = "degraded"
	// Unhealthy indicates the search backend is unreachable.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	backend Pinger
	cache   Pinger
}

// New creates a Service. cache can be nil when no cache database is configured.
func New(backend, cache Pinger) *Service {
	return &Service{backend: backend, cache: cache}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if s.cache != nil {
		checks["cache"] = check(ctx, s.cache)
		if checks["cache"] == CheckError {
			status = Degraded
		}
	}

	checks["backend"] = check(ctx, s.backend)
	if checks["backend"] == CheckError {
		status = Unhealthy
	}

	return Report{Status: status, Checks: checks}
}

func check(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
