package analytics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
	"github.com/ahmedoothman/expanders360-api/internal/logger"
	"github.com/ahmedoothman/expanders360-api/internal/metrics"
	"github.com/ahmedoothman/expanders360-api/internal/tracing"
)

// Service builds the top-vendors-per-country report.
type Service struct {
	scores     ScoreAggregator
	projects   ProjectIndex
	docs       DocumentCounter
	now        func() time.Time
	topN       int
	windowDays int
	cache      *gocache.Cache
	tracer     trace.Tracer
}

// New creates an analytics service. docs may be nil when no document store is configured;
// every country then reports a document count of 0.
func New(scores ScoreAggregator, projects ProjectIndex, docs DocumentCounter) *Service {
	return &Service{
		scores:     scores,
		projects:   projects,
		docs:       docs,
		now:        time.Now,
		topN:       domain.DefaultTopN,
		windowDays: domain.DefaultWindowDays,
		tracer:     tracing.Tracer(),
	}
}

// WithClock overrides the time source used to compute the window cutoff.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithTopN sets how many vendors are kept per country.
func (s *Service) WithTopN(n int) *Service {
	if n > 0 {
		s.topN = n
	}
	return s
}

// WithDefaultWindow sets the window used when callers pass windowDays <= 0.
func (s *Service) WithDefaultWindow(days int) *Service {
	if days > 0 {
		s.windowDays = days
	}
	return s
}

// WithCache keeps computed reports for ttl. A non-positive ttl disables caching.
func (s *Service) WithCache(ttl time.Duration) *Service {
	if ttl <= 0 {
		s.cache = nil
		return s
	}
	s.cache = gocache.New(ttl, 2*ttl)
	return s
}

// TopVendorsByCountry averages match scores created within the last windowDays per
// (country, vendor), keeps the best topN vendors per country and attaches the number of
// research documents belonging to that country's projects. A failed document lookup
// degrades that country's count to 0 instead of failing the report.
func (s *Service) TopVendorsByCountry(ctx context.Context, windowDays int) (report domanalytics.Report, err error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}

	key := strconv.Itoa(windowDays)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			metrics.AnalyticsCacheTotal.WithLabelValues("hit").Inc()
			return cached.(domanalytics.Report).Clone(), nil
		}
		metrics.AnalyticsCacheTotal.WithLabelValues("miss").Inc()
	}

	ctx, span := s.tracer.Start(ctx, "analytics.TopVendorsByCountry",
		trace.WithAttributes(attribute.Int("window.days", windowDays)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	cutoff := s.now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)
	rows, err := s.scores.AverageScoresSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("aggregate match scores: %w", err)
	}

	ranked := domanalytics.Rank(rows, s.topN)
	report = make(domanalytics.Report, len(ranked))
	for country, top := range ranked {
		report[country] = domanalytics.CountryReport{
			TopVendors:    top,
			DocumentCount: s.documentCount(ctx, country),
		}
	}
	span.SetAttributes(attribute.Int("countries", len(report)))

	if s.cache != nil {
		s.cache.SetDefault(key, report.Clone())
	}
	return report, nil
}

// Invalidate drops cached reports, e.g. after a scheduler run changed match scores.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

func (s *Service) documentCount(ctx context.Context, country string) int {
	if s.docs == nil {
		return 0
	}
	log := logger.FromContext(ctx).With(zap.String("country", country))

	ids, err := s.projects.ListIDsByCountry(ctx, country)
	if err != nil {
		metrics.DocumentCountDegradedTotal.Inc()
		log.Warn("Project id lookup failed, reporting 0 documents", zap.Error(err))
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	n, err := s.docs.CountByProjectIDs(ctx, ids)
	if err != nil {
		metrics.DocumentCountDegradedTotal.Inc()
		log.Warn("Document count failed, reporting 0 documents", zap.Error(err))
		return 0
	}
	return n
}
