package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates the document store is down while the relational store is up.
	Degraded Status = "degraded"
	// Unhealthy indicates the relational store is unreachable.
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
	database  Pinger
	documents Pinger
}

// New creates a Service. documents can be nil.
func New(database, documents Pinger) *Service {
	return &Service{database: database, documents: documents}
}

// Check runs health checks against all components. Matching cannot work without the
// relational store, so its failure is Unhealthy; a failing document store only Degrades.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{"database": ping(ctx, s.database)}
	if s.documents != nil {
		checks["documents"] = ping(ctx, s.documents)
	}

	status := Healthy
	switch {
	case checks["database"] == CheckError:
		status = Unhealthy
	case checks["documents"] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func ping(ctx context.Context, p Pinger) CheckResult {
	if err := p.Ping(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
