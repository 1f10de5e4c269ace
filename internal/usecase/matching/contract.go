package matching

import (
	"context"

	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	domproject "github.com/ahmedoothman/expanders360-api/internal/domain/project"
	domvendor "github.com/ahmedoothman/expanders360-api/internal/domain/vendor"
)

// ProjectReader loads projects by id.
type ProjectReader interface {
	Get(ctx context.Context, id int64) (domproject.Project, error)
}

// VendorFinder returns vendors whose supported countries contain the given country,
// in a stable order.
type VendorFinder interface {
	ListByCountry(ctx context.Context, country string) ([]domvendor.Vendor, error)
}

// MatchStore persists matches keyed by (project, vendor).
type MatchStore interface {
	Upsert(ctx context.Context, projectID, vendorID int64, score float64) (dommatch.Match, error)
	FindByProject(ctx context.Context, projectID int64) ([]dommatch.Match, error)
}
