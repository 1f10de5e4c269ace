// Package scoring computes service overlap and compatibility scores for project/vendor pairs.
package scoring

import (
	"math"

	"github.com/ahmedoothman/expanders360-api/internal/domain/vendor"
)

// Scoring constants.
const (
	OverlapWeight    = 2.0
	FastSLAThreshold = 24 // hours, inclusive
	FastSLAWeight    = 1.0
	SlowSLAWeight    = 0.5
)

// Overlap returns the size of the intersection of two tag sets.
// Duplicates in either input are counted once; empty input yields 0.
func Overlap(needed, offered []string) int {
	if len(needed) == 0 || len(offered) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(offered))
	for _, s := range offered {
		have[s] = struct{}{}
	}
	counted := make(map[string]struct{}, len(needed))
	n := 0
	for _, s := range needed {
		if _, ok := have[s]; !ok {
			continue
		}
		if _, dup := counted[s]; dup {
			continue
		}
		counted[s] = struct{}{}
		n++
	}
	return n
}

// SLAWeight returns the response-time bonus for a vendor SLA.
func SLAWeight(slaHours int) float64 {
	if slaHours <= FastSLAThreshold {
		return FastSLAWeight
	}
	return SlowSLAWeight
}

// Score computes overlap*2 + rating + SLA weight, rounded to two decimals.
func Score(v vendor.Vendor, overlap int) float64 {
	raw := float64(overlap)*OverlapWeight + v.Rating() + SLAWeight(v.ResponseSLAHours())
	return math.Round(raw*100) / 100
}
