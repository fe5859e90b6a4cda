package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means searches run but instances cannot load.
	Degraded Status = "degraded"
	// Unhealthy means Solr is unreachable.
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

// Component names in a report.
const (
	ComponentSolr     = "solr"
	ComponentDatabase = "database"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	solr Pinger
	db   Pinger
}

// New creates a Service. db can be nil when no data store is configured.
func New(solr, db Pinger) *Service {
	return &Service{solr: solr, db: db}
}

// Check pings Solr and the data store.
func (s *Service) Check(ctx context.Context) Report {
	checks := map[string]CheckResult{ComponentSolr: ping(ctx, s.solr)}
	if s.db != nil {
		checks[ComponentDatabase] = ping(ctx, s.db)
	}

	status := Healthy
	switch {
	case checks[ComponentSolr] == CheckError:
		status = Unhealthy
	case checks[ComponentDatabase] == CheckError:
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
