package project

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
)

// Status is the lifecycle state of a project.
type Status string

const (
	// StatusActive projects take part in scheduled match refreshes.
	StatusActive Status = "active"
	// StatusPaused projects are skipped by the scheduler.
	StatusPaused Status = "paused"
	// StatusCompleted projects are closed.
	StatusCompleted Status = "completed"
)

// IsValid checks if the status is one of the known values.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusPaused || s == StatusCompleted
}

// Project is a client's expansion need (immutable value object).
type Project struct {
	id             int64
	clientID       int64
	country        string
	servicesNeeded []string
	budget         float64
	status         Status
	createdAt      time.Time
	updatedAt      time.Time
}

// New validates and creates a Project that has not been persisted yet.
// Country is required, budget must be non-negative, services are normalized to a set.
func New(clientID int64, country string, servicesNeeded []string, budget float64, status Status) (Project, error) {
	country = strings.TrimSpace(country)
	if country == "" {
		return Project{}, fmt.Errorf("country is required")
	}
	if budget < 0 {
		return Project{}, fmt.Errorf("budget must be non-negative, got %v", budget)
	}
	if status == "" {
		status = StatusActive
	}
	if !status.IsValid() {
		return Project{}, fmt.Errorf("invalid project status: %q", status)
	}
	now := time.Now().UTC()
	return Project{
		clientID:       clientID,
		country:        country,
		servicesNeeded: domain.NormalizeSet(servicesNeeded),
		budget:         budget,
		status:         status,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// Reconstruct creates a Project without validation (storage hydration).
func Reconstruct(
	id, clientID int64, country string, servicesNeeded []string, budget float64,
	status Status, createdAt, updatedAt time.Time,
) Project {
	return Project{
		id:             id,
		clientID:       clientID,
		country:        country,
		servicesNeeded: domain.NormalizeSet(servicesNeeded),
		budget:         budget,
		status:         status,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

// ID returns the project identifier (zero until persisted).
func (p Project) ID() int64 { return p.id }

// ClientID returns the owning client's identifier.
func (p Project) ClientID() int64 { return p.clientID }

// Country returns the target country.
func (p Project) Country() string { return p.country }

// ServicesNeeded returns a copy of the needed service tags.
func (p Project) ServicesNeeded() []string {
	out := make([]string, len(p.servicesNeeded))
	copy(out, p.servicesNeeded)
	return out
}

// Budget returns the project budget.
func (p Project) Budget() float64 { return p.budget }

// Status returns the lifecycle state.
func (p Project) Status() Status { return p.status }

// IsActive reports whether the project takes part in scheduled refreshes.
func (p Project) IsActive() bool { return p.status == StatusActive }

// CreatedAt returns the creation time.
func (p Project) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns the last modification time.
func (p Project) UpdatedAt() time.Time { return p.updatedAt }
