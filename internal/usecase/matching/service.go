package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
	"github.com/ahmedoothman/expanders360-api/internal/domain/scoring"
	"github.com/ahmedoothman/expanders360-api/internal/logger"
	"github.com/ahmedoothman/expanders360-api/internal/metrics"
	"github.com/ahmedoothman/expanders360-api/internal/tracing"
)

// Service recomputes the matches of a project.
type Service struct {
	projects ProjectReader
	vendors  VendorFinder
	matches  MatchStore
	tracer   trace.Tracer
}

// New creates a matching service.
func New(projects ProjectReader, vendors VendorFinder, matches MatchStore) *Service {
	return &Service{
		projects: projects,
		vendors:  vendors,
		matches:  matches,
		tracer:   tracing.Tracer(),
	}
}

// WithTracer overrides the tracer used for rebuild spans.
func (s *Service) WithTracer(t trace.Tracer) *Service {
	if t != nil {
		s.tracer = t
	}
	return s
}

// Rebuild scores every vendor that supports the project's country and upserts a match
// for each one sharing at least one service. Vendors without overlap are skipped and
// their existing matches, if any, are left untouched.
// Returns the matches written by this call in evaluation order.
func (s *Service) Rebuild(ctx context.Context, projectID int64) (matches []dommatch.Match, err error) {
	ctx, span := s.tracer.Start(ctx, "matching.Rebuild",
		trace.WithAttributes(attribute.Int64("project.id", projectID)))
	start := time.Now()
	defer func() {
		metrics.RebuildDuration.Observe(time.Since(start).Seconds())
		metrics.RebuildsTotal.WithLabelValues(rebuildStatus(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	p, err := s.projects.Get(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}

	eligible, err := s.vendors.ListByCountry(ctx, p.Country())
	if err != nil {
		return nil, fmt.Errorf("list vendors for %s: %w", p.Country(), err)
	}

	needed := p.ServicesNeeded()
	matches = make([]dommatch.Match, 0, len(eligible))
	for _, v := range eligible {
		overlap := scoring.Overlap(needed, v.ServicesOffered())
		if overlap == 0 {
			metrics.VendorsSkippedTotal.WithLabelValues("no_overlap").Inc()
			continue
		}

		m, err := s.matches.Upsert(ctx, p.ID(), v.ID(), scoring.Score(v, overlap))
		if err != nil {
			return nil, fmt.Errorf("upsert match for vendor %d: %w", v.ID(), err)
		}
		matches = append(matches, m)
	}
	metrics.MatchesUpsertedTotal.Add(float64(len(matches)))

	span.SetAttributes(
		attribute.Int("vendors.eligible", len(eligible)),
		attribute.Int("matches.upserted", len(matches)),
	)
	logger.FromContext(ctx).Debug("Project matches rebuilt",
		zap.Int64("project_id", projectID),
		zap.String("country", p.Country()),
		zap.Int("eligible", len(eligible)),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// Matches returns all stored matches of a project, best score first.
func (s *Service) Matches(ctx context.Context, projectID int64) ([]dommatch.Match, error) {
	if _, err := s.projects.Get(ctx, projectID); err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	ms, err := s.matches.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list matches of project %d: %w", projectID, err)
	}
	return ms, nil
}

func rebuildStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
