package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
	domdoc "github.com/ahmedoothman/expanders360-api/internal/domain/document"
	documentuc "github.com/ahmedoothman/expanders360-api/internal/usecase/document"
	healthuc "github.com/ahmedoothman/expanders360-api/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the HTTP API.
type Server struct {
	matcher       Matcher
	reports       Reporter
	runs          RunTrigger
	documents     Documents
	health        HealthChecker
	invalidator   Invalidator
	metrics       http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. documents can be nil when no document store is configured.
func NewServer(
	matcher Matcher,
	reports Reporter,
	runs RunTrigger,
	documents Documents,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		matcher:   matcher,
		reports:   reports,
		runs:      runs,
		documents: documents,
		health:    health,
		metrics:   promhttp.Handler(),
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		invalidInputHandler,
		sentinelHandler(domain.ErrRunInProgress, http.StatusConflict, ErrorCodeRunInProgress),
		sentinelHandler(domain.ErrSearchUnavailable, http.StatusServiceUnavailable, ErrorCodeSearchUnavailable),
	}
	return s
}

// WithInvalidator registers a cache to flush after a successful on-demand rebuild.
func (s *Server) WithInvalidator(inv Invalidator) *Server {
	s.invalidator = inv
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r gochi.Router) {
		r.Post("/projects/{id}/matches/rebuild", s.RebuildMatches)
		r.Get("/projects/{id}/matches", s.ListMatches)
		r.Get("/projects/{id}/documents", s.ListProjectDocuments)
		r.Get("/analytics/top-vendors", s.TopVendors)
		r.Post("/scheduler/runs", s.TriggerRun)
		r.Post("/documents", s.CreateDocument)
		r.Get("/documents/search", s.SearchDocuments)
		r.Get("/documents/{id}", s.GetDocument)
	})
}

// RebuildMatches handles POST /api/v1/projects/{id}/matches/rebuild.
func (s *Server) RebuildMatches(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	matches, err := s.matcher.Rebuild(r.Context(), projectID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
	writeJSON(w, http.StatusOK, matchesToResponse(projectID, matches))
}

// ListMatches handles GET /api/v1/projects/{id}/matches.
func (s *Server) ListMatches(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	matches, err := s.matcher.Matches(r.Context(), projectID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesToResponse(projectID, matches))
}

// TopVendors handles GET /api/v1/analytics/top-vendors?days=N.
func (s *Server) TopVendors(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}
	report, err := s.reports.TopVendorsByCountry(r.Context(), days)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reportToResponse(report))
}

// TriggerRun handles POST /api/v1/scheduler/runs. The run outlives a disconnected client.
func (s *Server) TriggerRun(w http.ResponseWriter, r *http.Request) {
	// Request-scoped values such as the logger survive; cancellation does not.
	report, err := s.runs.RunOnce(context.WithoutCancel(r.Context()))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runToResponse(report))
}

// CreateDocument handles POST /api/v1/documents.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if !s.documentsEnabled(w) {
		return
	}
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	doc, err := s.documents.Create(r.Context(), documentuc.CreateInput{
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Content:   req.Content,
		Tags:      req.Tags,
		File:      domdoc.File{URL: req.FileURL, Size: req.FileSize, MimeType: req.MimeType},
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, documentToResponse(&doc))
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	if !s.documentsEnabled(w) {
		return
	}
	doc, err := s.documents.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// ListProjectDocuments handles GET /api/v1/projects/{id}/documents.
func (s *Server) ListProjectDocuments(w http.ResponseWriter, r *http.Request) {
	if !s.documentsEnabled(w) {
		return
	}
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	offset, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	docs, total, err := s.documents.ListByProject(r.Context(), projectID, offset, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]documentResponse, len(docs))
	for i := range docs {
		items[i] = documentToResponse(&docs[i])
	}
	writeJSON(w, http.StatusOK, documentListResponse{Items: items, Total: total})
}

// SearchDocuments handles GET /api/v1/documents/search?q=&project_id=&tags=.
func (s *Server) SearchDocuments(w http.ResponseWriter, r *http.Request) {
	if !s.documentsEnabled(w) {
		return
	}
	query := r.URL.Query()
	q := domdoc.SearchQuery{Text: query.Get("q")}
	if raw := query.Get("project_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "project_id must be a positive integer")
			return
		}
		q.ProjectID = id
	}
	if raw := query.Get("tags"); raw != "" {
		q.Tags = strings.Split(raw, ",")
	}
	offset, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	q.Offset, q.Limit = offset, limit

	hits, total, err := s.documents.Search(r.Context(), q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	items := make([]searchHitResponse, len(hits))
	for i := range hits {
		items[i] = searchHitResponse{Document: documentToResponse(&hits[i].Document), Score: hits[i].Score}
	}
	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: total})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, healthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

func (s *Server) documentsEnabled(w http.ResponseWriter) bool {
	if s.documents == nil {
		writeError(w, http.StatusServiceUnavailable, ErrorCodeSearchUnavailable, "document store is not configured")
		return false
	}
	return true
}

func projectIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(gochi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "project id must be a positive integer")
		return 0, false
	}
	return id, true
}

func pageParams(w http.ResponseWriter, r *http.Request) (offset, limit int, ok bool) {
	query := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"offset", &offset}, {"limit", &limit}} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, p.name+" must be a non-negative integer")
			return 0, 0, false
		}
		*p.dst = n
	}
	return offset, limit, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrInvalidInput,
		domain.ErrRunInProgress,
		domain.ErrSearchUnavailable,
	}
	var nf *domain.NotFoundError
	if errors.As(err, &nf) {
		return nf.Error()
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// invalidInputHandler reports validation failures with their cause; domain validation
// messages describe the input only.
func invalidInputHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidInput) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
