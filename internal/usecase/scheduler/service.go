// Package scheduler refreshes matches of every active project on a cron cadence.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
	"github.com/ahmedoothman/expanders360-api/internal/domain/batch"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	domproject "github.com/ahmedoothman/expanders360-api/internal/domain/project"
	"github.com/ahmedoothman/expanders360-api/internal/logger"
	"github.com/ahmedoothman/expanders360-api/internal/metrics"
	"github.com/ahmedoothman/expanders360-api/internal/tracing"
)

// Default cron specs.
const (
	DefaultRefreshSchedule = "@midnight"
	DefaultSLASchedule     = "@hourly"
)

const defaultProjectTimeout = 60 * time.Second

// Service runs match refreshes. At most one run executes at a time.
type Service struct {
	projects       ProjectLister
	rebuilder      Rebuilder
	notifier       Notifier
	invalidator    Invalidator
	logger         *zap.Logger
	projectTimeout time.Duration
	now            func() time.Time
	newRunID       func() string
	tracer         trace.Tracer

	running atomic.Bool
	cron    *cron.Cron
}

// New creates a scheduler. notifier can be nil.
func New(projects ProjectLister, rebuilder Rebuilder, notifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects:       projects,
		rebuilder:      rebuilder,
		notifier:       notifier,
		logger:         logger,
		projectTimeout: defaultProjectTimeout,
		now:            time.Now,
		newRunID:       uuid.NewString,
		tracer:         tracing.Tracer(),
	}
}

// WithProjectTimeout bounds each project's rebuild.
func (s *Service) WithProjectTimeout(d time.Duration) *Service {
	if d > 0 {
		s.projectTimeout = d
	}
	return s
}

// WithInvalidator registers a cache to flush after a run that refreshed at least one project.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// RunOnce rebuilds matches for every active project, one after another.
// A failing project is recorded in the report and never stops the run.
// Returns domain.ErrRunInProgress when another run has not finished yet.
func (s *Service) RunOnce(ctx context.Context) (batch.Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		metrics.SchedulerRunsTotal.WithLabelValues("skipped").Inc()
		return batch.Report{}, domain.ErrRunInProgress
	}
	defer s.running.Store(false)

	report := batch.Report{RunID: s.newRunID(), StartedAt: s.now()}
	log := s.logger.With(zap.String("run_id", report.RunID))
	ctx = logger.ContextWithLogger(ctx, log)

	ctx, span := s.tracer.Start(ctx, "scheduler.RefreshMatches",
		trace.WithAttributes(attribute.String("run.id", report.RunID)))
	defer span.End()

	log.Info("Starting match refresh")

	projects, err := s.projects.ListByStatus(ctx, domproject.StatusActive)
	if err != nil {
		metrics.SchedulerRunsTotal.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Listing active projects failed", zap.Error(err))
		return report, fmt.Errorf("list active projects: %w", err)
	}

	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			report.Results = append(report.Results, batch.NewError(p.ID(), err))
			continue
		}

		matches, err := s.rebuild(ctx, p.ID())
		if err != nil {
			metrics.SchedulerProjectFailuresTotal.Inc()
			log.Error("Project refresh failed", zap.Int64("project_id", p.ID()), zap.Error(err))
			report.Results = append(report.Results, batch.NewError(p.ID(), err))
			continue
		}
		report.Results = append(report.Results, batch.NewOK(p.ID(), len(matches)))
		s.notify(ctx, p.ID(), matches)
	}

	report.FinishedAt = s.now()
	if s.invalidator != nil && report.Succeeded() > 0 {
		s.invalidator.Invalidate()
	}

	status := runStatus(report)
	metrics.SchedulerRunsTotal.WithLabelValues(status).Inc()
	span.SetAttributes(
		attribute.Int("projects", len(report.Results)),
		attribute.Int("failed", len(report.Failed())),
	)
	log.Info("Match refresh finished",
		zap.String("status", status),
		zap.Int("projects", len(report.Results)),
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", len(report.Failed())),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

// CheckVendorSLAs is the hourly SLA monitoring hook. It only logs.
func (s *Service) CheckVendorSLAs(ctx context.Context) {
	logger.FromContext(ctx).Info("Checking vendor SLAs")
}

// Start registers the refresh and SLA jobs and starts the cron runner.
// Jobs run with ctx, so cancelling it aborts an in-flight refresh.
func (s *Service) Start(ctx context.Context, refreshSpec, slaSpec string) error {
	if refreshSpec == "" {
		refreshSpec = DefaultRefreshSchedule
	}
	if slaSpec == "" {
		slaSpec = DefaultSLASchedule
	}

	c := cron.New(cron.WithChain(cron.Recover(cronLogger{s.logger.Sugar()})))

	if _, err := c.AddFunc(refreshSpec, func() { s.scheduledRun(ctx) }); err != nil {
		return fmt.Errorf("refresh schedule %q: %w", refreshSpec, err)
	}
	if _, err := c.AddFunc(slaSpec, func() {
		s.CheckVendorSLAs(logger.ContextWithLogger(ctx, s.logger))
	}); err != nil {
		return fmt.Errorf("sla schedule %q: %w", slaSpec, err)
	}

	s.cron = c
	c.Start()
	s.logger.Info("Scheduler started",
		zap.String("refresh_schedule", refreshSpec),
		zap.String("sla_schedule", slaSpec),
	)
	return nil
}

// Stop stops scheduling new jobs. The returned context is done once running jobs finish.
func (s *Service) Stop() context.Context {
	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.cron.Stop()
}

func (s *Service) scheduledRun(ctx context.Context) {
	_, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		s.logger.Warn("Skipping match refresh, previous run still in progress")
	case err != nil:
		s.logger.Error("Match refresh aborted", zap.Error(err))
	}
}

func (s *Service) rebuild(ctx context.Context, projectID int64) (matches []dommatch.Match, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.projectTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rebuild panic: %v", r)
		}
	}()
	return s.rebuilder.Rebuild(ctx, projectID)
}

func (s *Service) notify(ctx context.Context, projectID int64, matches []dommatch.Match) {
	if s.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("Notification dispatch panicked",
				zap.Int64("project_id", projectID), zap.Any("panic", r))
		}
	}()
	s.notifier.Notify(ctx, projectID, matches)
}

func runStatus(r batch.Report) string {
	failed := len(r.Failed())
	switch {
	case failed == 0:
		return "ok"
	case failed == len(r.Results):
		return "failed"
	default:
		return "partial"
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
