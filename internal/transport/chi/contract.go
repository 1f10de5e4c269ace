package chi

import (
	"context"

	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
	"github.com/ahmedoothman/expanders360-api/internal/domain/batch"
	domdoc "github.com/ahmedoothman/expanders360-api/internal/domain/document"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	documentuc "github.com/ahmedoothman/expanders360-api/internal/usecase/document"
	healthuc "github.com/ahmedoothman/expanders360-api/internal/usecase/health"
)

// Matcher rebuilds and lists project matches.
type Matcher interface {
	Rebuild(ctx context.Context, projectID int64) ([]dommatch.Match, error)
	Matches(ctx context.Context, projectID int64) ([]dommatch.Match, error)
}

// Reporter builds the analytics report.
type Reporter interface {
	TopVendorsByCountry(ctx context.Context, windowDays int) (domanalytics.Report, error)
}

// RunTrigger starts an on-demand refresh run.
type RunTrigger interface {
	RunOnce(ctx context.Context) (batch.Report, error)
}

// Invalidator drops derived data made stale by a rebuild.
type Invalidator interface {
	Invalidate()
}

// Documents stores and searches research documents.
type Documents interface {
	Create(ctx context.Context, in documentuc.CreateInput) (domdoc.Document, error)
	Get(ctx context.Context, id string) (domdoc.Document, error)
	ListByProject(ctx context.Context, projectID int64, offset, limit int) ([]domdoc.Document, int, error)
	Search(ctx context.Context, q domdoc.SearchQuery) ([]domdoc.Hit, int, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
