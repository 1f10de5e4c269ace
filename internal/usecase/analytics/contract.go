package analytics

import (
	"context"
	"time"

	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
)

// ScoreAggregator averages match scores per (country, vendor) over a window.
type ScoreAggregator interface {
	AverageScoresSince(ctx context.Context, since time.Time) ([]domanalytics.VendorAverage, error)
}

// ProjectIndex lists project ids by country.
type ProjectIndex interface {
	ListIDsByCountry(ctx context.Context, country string) ([]int64, error)
}

// DocumentCounter counts research documents attached to any of the given projects.
type DocumentCounter interface {
	CountByProjectIDs(ctx context.Context, projectIDs []int64) (int, error)
}
