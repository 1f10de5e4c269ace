package scheduler

import (
	"context"

	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	domproject "github.com/ahmedoothman/expanders360-api/internal/domain/project"
)

// ProjectLister selects the projects a run refreshes.
type ProjectLister interface {
	ListByStatus(ctx context.Context, status domproject.Status) ([]domproject.Project, error)
}

// Rebuilder recomputes one project's matches.
type Rebuilder interface {
	Rebuild(ctx context.Context, projectID int64) ([]dommatch.Match, error)
}

// Notifier hands matches to the notification path without waiting for delivery.
type Notifier interface {
	Notify(ctx context.Context, projectID int64, matches []dommatch.Match)
}

// Invalidator drops derived data that a run made stale.
type Invalidator interface {
	Invalidate()
}
