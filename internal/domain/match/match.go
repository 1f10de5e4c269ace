package match

import "time"

// Match is the persisted compatibility score of one (project, vendor) pair.
// The pair is unique; score and UpdatedAt change on every rebuild that refreshes it.
type Match struct {
	id        int64
	projectID int64
	vendorID  int64
	score     float64
	createdAt time.Time
	updatedAt time.Time
}

// Reconstruct creates a Match from stored values.
func Reconstruct(id, projectID, vendorID int64, score float64, createdAt, updatedAt time.Time) Match {
	return Match{
		id:        id,
		projectID: projectID,
		vendorID:  vendorID,
		score:     score,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the surrogate row identifier.
func (m Match) ID() int64 { return m.id }

// ProjectID returns the project side of the key.
func (m Match) ProjectID() int64 { return m.projectID }

// VendorID returns the vendor side of the key.
func (m Match) VendorID() int64 { return m.vendorID }

// Score returns the compatibility score.
func (m Match) Score() float64 { return m.score }

// CreatedAt returns when the pair was first matched.
func (m Match) CreatedAt() time.Time { return m.createdAt }

// UpdatedAt returns when the score was last refreshed.
func (m Match) UpdatedAt() time.Time { return m.updatedAt }
