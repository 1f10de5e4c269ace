package analytics

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
)

// --- Mocks ---

type mockScores struct {
	rows   []domanalytics.VendorAverage
	err    error
	calls  int
	cutoff time.Time
}

func (m *mockScores) AverageScoresSince(_ context.Context, since time.Time) ([]domanalytics.VendorAverage, error) {
	m.calls++
	m.cutoff = since
	return m.rows, m.err
}

type mockProjectIndex struct {
	ids map[string][]int64
	err map[string]error
}

func (m *mockProjectIndex) ListIDsByCountry(_ context.Context, country string) ([]int64, error) {
	if err := m.err[country]; err != nil {
		return nil, err
	}
	return m.ids[country], nil
}

type mockDocCounter struct {
	countFn func(ids []int64) (int, error)
	seen    [][]int64
}

func (m *mockDocCounter) CountByProjectIDs(_ context.Context, ids []int64) (int, error) {
	m.seen = append(m.seen, ids)
	if m.countFn != nil {
		return m.countFn(ids)
	}
	return len(ids), nil
}

var fixedNow = time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

func row(country string, id int64, name string, avg float64) domanalytics.VendorAverage {
	return domanalytics.VendorAverage{Country: country, VendorID: id, VendorName: name, AvgScore: avg}
}

func newService(scores *mockScores, projects *mockProjectIndex, docs DocumentCounter) *Service {
	return New(scores, projects, docs).WithClock(func() time.Time { return fixedNow })
}

// --- Tests ---

func TestTopVendorsByCountry_CutoffUsesWindow(t *testing.T) {
	scores := &mockScores{}
	svc := newService(scores, &mockProjectIndex{}, nil)

	if _, err := svc.TopVendorsByCountry(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := fixedNow.AddDate(0, 0, -7); !scores.cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", scores.cutoff, want)
	}
}

func TestTopVendorsByCountry_DefaultWindow(t *testing.T) {
	for _, days := range []int{0, -5} {
		scores := &mockScores{}
		svc := newService(scores, &mockProjectIndex{}, nil)
		if _, err := svc.TopVendorsByCountry(context.Background(), days); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := fixedNow.AddDate(0, 0, -30); !scores.cutoff.Equal(want) {
			t.Errorf("windowDays=%d: cutoff = %v, want %v", days, scores.cutoff, want)
		}
	}
}

func TestTopVendorsByCountry_KeepsTopThreeWithTieBreak(t *testing.T) {
	scores := &mockScores{rows: []domanalytics.VendorAverage{
		row("Germany", 5, "E", 6.0),
		row("Germany", 2, "B", 9.5),
		row("Germany", 4, "D", 7.0),
		row("Germany", 1, "A", 7.0),
		row("France", 3, "C", 5.5),
	}}
	projects := &mockProjectIndex{ids: map[string][]int64{"Germany": {1, 2}, "France": {3}}}
	svc := newService(scores, projects, &mockDocCounter{})

	report, err := svc.TopVendorsByCountry(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	de := report["Germany"]
	var ids []int64
	for _, v := range de.TopVendors {
		ids = append(ids, v.VendorID)
	}
	if !slices.Equal(ids, []int64{2, 1, 4}) {
		t.Errorf("Germany top vendors = %v, want [2 1 4]", ids)
	}
	if de.DocumentCount != 2 {
		t.Errorf("Germany document_count = %d, want 2", de.DocumentCount)
	}
	if fr := report["France"]; len(fr.TopVendors) != 1 || fr.DocumentCount != 1 {
		t.Errorf("France = %+v", fr)
	}
	if got := report.Countries(); !slices.Equal(got, []string{"France", "Germany"}) {
		t.Errorf("countries = %v", got)
	}
}

func TestTopVendorsByCountry_DocumentCountDegradesToZero(t *testing.T) {
	scores := &mockScores{rows: []domanalytics.VendorAverage{
		row("Germany", 1, "A", 9.5),
		row("France", 2, "B", 5.5),
		row("Spain", 3, "C", 4.0),
	}}
	projects := &mockProjectIndex{
		ids: map[string][]int64{"Germany": {1}, "France": {2}},
		err: map[string]error{"Spain": errors.New("connection refused")},
	}
	docs := &mockDocCounter{countFn: func(ids []int64) (int, error) {
		if ids[0] == 2 {
			return 0, errors.New("index missing")
		}
		return 4, nil
	}}
	svc := newService(scores, projects, docs)

	report, err := svc.TopVendorsByCountry(context.Background(), 30)
	if err != nil {
		t.Fatalf("document failures must not fail the report: %v", err)
	}
	if report["Germany"].DocumentCount != 4 {
		t.Errorf("Germany = %d, want 4", report["Germany"].DocumentCount)
	}
	if report["France"].DocumentCount != 0 {
		t.Errorf("France = %d, want 0 after count failure", report["France"].DocumentCount)
	}
	if report["Spain"].DocumentCount != 0 {
		t.Errorf("Spain = %d, want 0 after id lookup failure", report["Spain"].DocumentCount)
	}
}

func TestTopVendorsByCountry_NoProjectsSkipsCount(t *testing.T) {
	scores := &mockScores{rows: []domanalytics.VendorAverage{row("Germany", 1, "A", 9.5)}}
	docs := &mockDocCounter{}
	svc := newService(scores, &mockProjectIndex{}, docs)

	report, err := svc.TopVendorsByCountry(context.Background(), 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report["Germany"].DocumentCount != 0 {
		t.Errorf("document_count = %d, want 0", report["Germany"].DocumentCount)
	}
	if len(docs.seen) != 0 {
		t.Error("document store must not be queried with an empty id set")
	}
}

func TestTopVendorsByCountry_ScoreFailure(t *testing.T) {
	scores := &mockScores{err: errors.New("query failed")}
	svc := newService(scores, &mockProjectIndex{}, nil)

	if _, err := svc.TopVendorsByCountry(context.Background(), 30); err == nil {
		t.Fatal("expected error")
	}
}

func TestTopVendorsByCountry_Cache(t *testing.T) {
	scores := &mockScores{rows: []domanalytics.VendorAverage{row("Germany", 1, "A", 9.5)}}
	svc := newService(scores, &mockProjectIndex{}, nil).WithCache(time.Minute)
	ctx := context.Background()

	first, err := svc.TopVendorsByCountry(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	delete(first, "Germany") // callers must not be able to corrupt the cache

	second, err := svc.TopVendorsByCountry(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if scores.calls != 1 {
		t.Errorf("store calls = %d, want 1", scores.calls)
	}
	if _, ok := second["Germany"]; !ok {
		t.Error("cached report lost an entry")
	}

	if _, err := svc.TopVendorsByCountry(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if scores.calls != 2 {
		t.Errorf("different window must miss the cache, calls = %d", scores.calls)
	}

	svc.Invalidate()
	if _, err := svc.TopVendorsByCountry(ctx, 30); err != nil {
		t.Fatal(err)
	}
	if scores.calls != 3 {
		t.Errorf("invalidated cache must be recomputed, calls = %d", scores.calls)
	}
}

func TestTopVendorsByCountry_CachedTopVendorsAreIsolated(t *testing.T) {
	scores := &mockScores{rows: []domanalytics.VendorAverage{row("Germany", 1, "A", 9.5), row("Germany", 2, "B", 7)}}
	svc := newService(scores, &mockProjectIndex{}, nil).WithCache(time.Minute)
	ctx := context.Background()

	computed, err := svc.TopVendorsByCountry(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	computed["Germany"].TopVendors[0].AvgScore = -1

	hit, err := svc.TopVendorsByCountry(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if got := hit["Germany"].TopVendors[0].AvgScore; got != 9.5 {
		t.Fatalf("cached AvgScore = %v after mutating computed report, want 9.5", got)
	}
	hit["Germany"].TopVendors[1].VendorID = 99

	again, err := svc.TopVendorsByCountry(ctx, 30)
	if err != nil {
		t.Fatal(err)
	}
	if got := again["Germany"].TopVendors[1].VendorID; got != 2 {
		t.Errorf("cached VendorID = %d after mutating a cache hit, want 2", got)
	}
	if scores.calls != 1 {
		t.Errorf("store calls = %d, want 1", scores.calls)
	}
}

func TestTopVendorsByCountry_NeverMoreThanTopN(t *testing.T) {
	countries := []string{"Germany", "France", "Spain"}
	genRow := gopter.CombineGens(
		gen.IntRange(0, len(countries)-1),
		gen.Int64Range(1, 50),
		gen.Float64Range(0, 20),
	).Map(func(v []interface{}) domanalytics.VendorAverage {
		return row(countries[v[0].(int)], v[1].(int64), "v", v[2].(float64))
	})

	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	properties.Property("at most 3 vendors per country, best first", prop.ForAll(
		func(rows []domanalytics.VendorAverage) bool {
			svc := newService(&mockScores{rows: rows}, &mockProjectIndex{}, nil)
			report, err := svc.TopVendorsByCountry(context.Background(), 30)
			if err != nil {
				return false
			}
			for _, c := range report {
				if len(c.TopVendors) > 3 {
					return false
				}
				if !slices.IsSortedFunc(c.TopVendors, domanalytics.Compare) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genRow),
	))
	properties.TestingRun(t)
}
