package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
	"github.com/ahmedoothman/expanders360-api/internal/domain/batch"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	domproject "github.com/ahmedoothman/expanders360-api/internal/domain/project"
)

// --- Mocks ---

type mockProjects struct {
	projects []domproject.Project
	err      error
	status   domproject.Status
}

func (m *mockProjects) ListByStatus(_ context.Context, status domproject.Status) ([]domproject.Project, error) {
	m.status = status
	return m.projects, m.err
}

type mockRebuilder struct {
	mu        sync.Mutex
	rebuildFn func(ctx context.Context, projectID int64) ([]dommatch.Match, error)
	calls     []int64
}

func (m *mockRebuilder) Rebuild(ctx context.Context, projectID int64) ([]dommatch.Match, error) {
	m.mu.Lock()
	m.calls = append(m.calls, projectID)
	m.mu.Unlock()
	if m.rebuildFn != nil {
		return m.rebuildFn(ctx, projectID)
	}
	return nil, nil
}

type mockNotifier struct {
	mu       sync.Mutex
	notified map[int64]int
	panicky  bool
}

func (m *mockNotifier) Notify(_ context.Context, projectID int64, matches []dommatch.Match) {
	if m.panicky {
		panic("mailer down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notified == nil {
		m.notified = make(map[int64]int)
	}
	m.notified[projectID] = len(matches)
}

type mockInvalidator struct{ calls int }

func (m *mockInvalidator) Invalidate() { m.calls++ }

func activeProjects(ids ...int64) []domproject.Project {
	out := make([]domproject.Project, len(ids))
	now := time.Now()
	for i, id := range ids {
		out[i] = domproject.Reconstruct(id, 1, "Germany", []string{"legal"}, 1000, domproject.StatusActive, now, now)
	}
	return out
}

func oneMatch(projectID int64) []dommatch.Match {
	now := time.Now()
	return []dommatch.Match{dommatch.Reconstruct(projectID*10, projectID, 1, 9.5, now, now)}
}

func newTestService(projects ProjectLister, rebuilder Rebuilder, notifier Notifier) *Service {
	s := New(projects, rebuilder, notifier, nil)
	s.newRunID = func() string { return "run-1" }
	return s
}

// --- Tests ---

func TestRunOnce_IsolatesFailingProject(t *testing.T) {
	projects := &mockProjects{projects: activeProjects(1, 2, 3)}
	rebuilder := &mockRebuilder{rebuildFn: func(_ context.Context, id int64) ([]dommatch.Match, error) {
		if id == 2 {
			return nil, domain.StoreError("upsert match", errors.New("deadlock"))
		}
		return oneMatch(id), nil
	}}
	notifier := &mockNotifier{}
	svc := newTestService(projects, rebuilder, notifier)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("a project failure must not fail the run: %v", err)
	}

	if projects.status != domproject.StatusActive {
		t.Errorf("listed status %q, want active", projects.status)
	}
	if len(rebuilder.calls) != 3 {
		t.Fatalf("rebuild called %d times, want 3", len(rebuilder.calls))
	}
	if report.RunID != "run-1" {
		t.Errorf("run id = %q", report.RunID)
	}

	want := []batch.ItemStatus{batch.StatusOK, batch.StatusError, batch.StatusOK}
	for i, res := range report.Results {
		if res.Status() != want[i] {
			t.Errorf("project %d status = %q, want %q", res.ProjectID(), res.Status(), want[i])
		}
	}
	if report.Succeeded() != 2 {
		t.Errorf("succeeded = %d, want 2", report.Succeeded())
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].ProjectID() != 2 || !errors.Is(failed[0].Err(), domain.ErrStoreFailure) {
		t.Errorf("unexpected failures: %+v", failed)
	}

	if _, ok := notifier.notified[2]; ok {
		t.Error("failed project must not be notified")
	}
	if notifier.notified[1] != 1 || notifier.notified[3] != 1 {
		t.Errorf("notified = %v, want projects 1 and 3", notifier.notified)
	}
	if runStatus(report) != "partial" {
		t.Errorf("run status = %q, want partial", runStatus(report))
	}
}

func TestRunOnce_RejectsOverlappingRun(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	rebuilder := &mockRebuilder{rebuildFn: func(_ context.Context, _ int64) ([]dommatch.Match, error) {
		close(started)
		<-release
		return nil, nil
	}}
	svc := newTestService(&mockProjects{projects: activeProjects(1)}, rebuilder, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := svc.RunOnce(context.Background())
		errc <- err
	}()
	<-started

	if _, err := svc.RunOnce(context.Background()); !errors.Is(err, domain.ErrRunInProgress) {
		t.Errorf("expected ErrRunInProgress, got %v", err)
	}

	close(release)
	if err := <-errc; err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// the guard is released once the first run finishes
	rebuilder.rebuildFn = nil
	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Errorf("follow-up run rejected: %v", err)
	}
}

func TestRunOnce_RecoversPanic(t *testing.T) {
	rebuilder := &mockRebuilder{rebuildFn: func(_ context.Context, id int64) ([]dommatch.Match, error) {
		if id == 1 {
			panic("nil vendor")
		}
		return oneMatch(id), nil
	}}
	svc := newTestService(&mockProjects{projects: activeProjects(1, 2)}, rebuilder, nil)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Results[0].Status() != batch.StatusError || report.Results[1].Status() != batch.StatusOK {
		t.Errorf("unexpected results: %+v", report.Results)
	}
}

func TestRunOnce_NotifierPanicDoesNotAbort(t *testing.T) {
	rebuilder := &mockRebuilder{}
	svc := newTestService(&mockProjects{projects: activeProjects(1, 2)}, rebuilder, &mockNotifier{panicky: true})

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Succeeded() != 2 {
		t.Errorf("succeeded = %d, want 2", report.Succeeded())
	}
}

func TestRunOnce_ProjectTimeout(t *testing.T) {
	rebuilder := &mockRebuilder{rebuildFn: func(ctx context.Context, id int64) ([]dommatch.Match, error) {
		if id == 1 {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return oneMatch(id), nil
	}}
	svc := newTestService(&mockProjects{projects: activeProjects(1, 2)}, rebuilder, nil).
		WithProjectTimeout(20 * time.Millisecond)

	report, err := svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(report.Results[0].Err(), context.DeadlineExceeded) {
		t.Errorf("project 1 err = %v, want deadline exceeded", report.Results[0].Err())
	}
	if report.Results[1].Status() != batch.StatusOK {
		t.Error("project 2 must still be refreshed")
	}
}

func TestRunOnce_CancelledRunRecordsRemainingProjects(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rebuilder := &mockRebuilder{rebuildFn: func(_ context.Context, _ int64) ([]dommatch.Match, error) {
		cancel()
		return nil, nil
	}}
	svc := newTestService(&mockProjects{projects: activeProjects(1, 2, 3)}, rebuilder, nil)

	report, err := svc.RunOnce(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rebuilder.calls) != 1 {
		t.Errorf("rebuild called %d times after cancel, want 1", len(rebuilder.calls))
	}
	if len(report.Results) != 3 || len(report.Failed()) != 2 {
		t.Errorf("unexpected results: %+v", report.Results)
	}
}

func TestRunOnce_ListFailure(t *testing.T) {
	rebuilder := &mockRebuilder{}
	svc := newTestService(&mockProjects{err: domain.StoreError("list projects", errors.New("conn reset"))}, rebuilder, nil)

	_, err := svc.RunOnce(context.Background())
	if !errors.Is(err, domain.ErrStoreFailure) {
		t.Errorf("expected ErrStoreFailure, got %v", err)
	}
	if len(rebuilder.calls) != 0 {
		t.Error("no project should be rebuilt")
	}
}

func TestRunOnce_InvalidatesAfterSuccess(t *testing.T) {
	inv := &mockInvalidator{}
	svc := newTestService(&mockProjects{projects: activeProjects(1)}, &mockRebuilder{}, nil).WithInvalidator(inv)

	if _, err := svc.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if inv.calls != 1 {
		t.Errorf("invalidate calls = %d, want 1", inv.calls)
	}

	empty := newTestService(&mockProjects{}, &mockRebuilder{}, nil).WithInvalidator(inv)
	if _, err := empty.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if inv.calls != 1 {
		t.Error("a run that refreshed nothing must keep the cache")
	}
}

func TestRunStatus(t *testing.T) {
	ok := batch.NewOK(1, 0)
	bad := batch.NewError(2, errors.New("x"))
	tests := []struct {
		name    string
		results []batch.Result
		want    string
	}{
		{"empty", nil, "ok"},
		{"all ok", []batch.Result{ok}, "ok"},
		{"mixed", []batch.Result{ok, bad}, "partial"},
		{"all failed", []batch.Result{bad}, "failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runStatus(batch.Report{Results: tt.results}); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStart_InvalidSchedule(t *testing.T) {
	svc := newTestService(&mockProjects{}, &mockRebuilder{}, nil)
	if err := svc.Start(context.Background(), "not a cron spec", ""); err == nil {
		t.Fatal("expected error")
	}
	<-svc.Stop().Done()
}

func TestStartStop(t *testing.T) {
	svc := newTestService(&mockProjects{}, &mockRebuilder{}, nil)
	if err := svc.Start(context.Background(), "", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	select {
	case <-svc.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("stop did not complete")
	}
}

func TestCheckVendorSLAs_IsNoop(t *testing.T) {
	rebuilder := &mockRebuilder{}
	svc := newTestService(&mockProjects{}, rebuilder, nil)
	svc.CheckVendorSLAs(context.Background())
	if len(rebuilder.calls) != 0 {
		t.Error("SLA hook must not trigger rebuilds")
	}
}
