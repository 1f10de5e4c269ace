package expanders360

import (
	"time"

	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
)

// Match links a project to a vendor with its last computed score.
type Match struct {
	ID        int64
	ProjectID int64
	VendorID  int64
	Score     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// VendorScore is a vendor's average match score within one country.
type VendorScore struct {
	VendorID   int64
	VendorName string
	AvgScore   float64
}

// CountryReport lists the best vendors of a country, best first, and the number
// of research documents attached to the country's projects.
type CountryReport struct {
	TopVendors    []VendorScore
	DocumentCount int
}

// Report maps a country name to its CountryReport.
type Report map[string]CountryReport

func matchFromDomain(m dommatch.Match) Match {
	return Match{
		ID:        m.ID(),
		ProjectID: m.ProjectID(),
		VendorID:  m.VendorID(),
		Score:     m.Score(),
		CreatedAt: m.CreatedAt(),
		UpdatedAt: m.UpdatedAt(),
	}
}

func matchesFromDomain(in []dommatch.Match) []Match {
	out := make([]Match, len(in))
	for i, m := range in {
		out[i] = matchFromDomain(m)
	}
	return out
}

func reportFromDomain(r domanalytics.Report) Report {
	out := make(Report, len(r))
	for country, cr := range r {
		vendors := make([]VendorScore, len(cr.TopVendors))
		for i, v := range cr.TopVendors {
			vendors[i] = VendorScore{VendorID: v.VendorID, VendorName: v.VendorName, AvgScore: v.AvgScore}
		}
		out[country] = CountryReport{TopVendors: vendors, DocumentCount: cr.DocumentCount}
	}
	return out
}
