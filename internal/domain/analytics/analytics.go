// Package analytics holds the top-vendors-per-country report model and its ranking rule.
package analytics

import (
	"cmp"
	"slices"
)

// VendorAverage is one vendor's average match score within a country.
type VendorAverage struct {
	Country    string
	VendorID   int64
	VendorName string
	AvgScore   float64
}

// CountryReport is the per-country entry of the report.
type CountryReport struct {
	TopVendors    []VendorAverage
	DocumentCount int
}

// Report maps a country to its top vendors and research document count.
type Report map[string]CountryReport

// Countries returns the report's countries in ascending order.
func (r Report) Countries() []string {
	out := make([]string, 0, len(r))
	for c := range r {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Clone returns a deep copy; the result shares no slices with r.
func (r Report) Clone() Report {
	if r == nil {
		return nil
	}
	out := make(Report, len(r))
	for c, cr := range r {
		cr.TopVendors = slices.Clone(cr.TopVendors)
		out[c] = cr
	}
	return out
}

// Compare orders by average score descending, then vendor id ascending.
func Compare(a, b VendorAverage) int {
	if c := cmp.Compare(b.AvgScore, a.AvgScore); c != 0 {
		return c
	}
	return cmp.Compare(a.VendorID, b.VendorID)
}

// Rank groups rows by country and keeps at most topN vendors per country.
// Input order is irrelevant: the result is fully determined by Compare.
func Rank(rows []VendorAverage, topN int) map[string][]VendorAverage {
	byCountry := make(map[string][]VendorAverage)
	for _, r := range rows {
		byCountry[r.Country] = append(byCountry[r.Country], r)
	}
	for country, list := range byCountry {
		slices.SortStableFunc(list, Compare)
		if topN > 0 && len(list) > topN {
			list = list[:topN]
		}
		byCountry[country] = list
	}
	return byCountry
}
