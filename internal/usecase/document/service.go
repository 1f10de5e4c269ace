package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
	domdoc "github.com/ahmedoothman/expanders360-api/internal/domain/document"
)

// CreateInput carries the fields of a new research document.
type CreateInput struct {
	ProjectID int64
	Title     string
	Content   string
	Tags      []string
	File      domdoc.File
}

// Service handles research document storage and search.
type Service struct {
	repo            Repository
	newID           func() string
	defaultPageSize int
	maxPageSize     int
}

// New creates a document service.
func New(repo Repository) *Service {
	return &Service{
		repo:            repo,
		newID:           uuid.NewString,
		defaultPageSize: 20,
		maxPageSize:     100,
	}
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Create validates and stores a new document under a generated id.
func (s *Service) Create(ctx context.Context, in CreateInput) (domdoc.Document, error) {
	doc, err := domdoc.New(s.newID(), in.ProjectID, in.Title, in.Content, in.Tags, in.File)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.repo.Create(ctx, &doc); err != nil {
		return domdoc.Document{}, fmt.Errorf("create document: %w", err)
	}
	return doc, nil
}

// Get retrieves a document by id.
func (s *Service) Get(ctx context.Context, id string) (domdoc.Document, error) {
	if strings.TrimSpace(id) == "" {
		return domdoc.Document{}, fmt.Errorf("document id is required: %w", domain.ErrInvalidInput)
	}
	doc, err := s.repo.Get(ctx, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// ListByProject returns one page of a project's documents and the project's total.
func (s *Service) ListByProject(ctx context.Context, projectID int64, offset, limit int) ([]domdoc.Document, int, error) {
	if projectID <= 0 {
		return nil, 0, fmt.Errorf("project id must be positive: %w", domain.ErrInvalidInput)
	}
	docs, total, err := s.repo.ListByProject(ctx, projectID, max(offset, 0), s.pageSize(limit))
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	return docs, total, nil
}

// Search runs a full-text query, optionally narrowed to one project and a tag set.
func (s *Service) Search(ctx context.Context, q domdoc.SearchQuery) ([]domdoc.Hit, int, error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, 0, fmt.Errorf("search text is required: %w", domain.ErrInvalidInput)
	}
	if q.ProjectID < 0 {
		return nil, 0, fmt.Errorf("project id must be positive: %w", domain.ErrInvalidInput)
	}
	q.Tags = domain.NormalizeSet(q.Tags)
	q.Offset = max(q.Offset, 0)
	q.Limit = s.pageSize(q.Limit)

	hits, total, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("search documents: %w", err)
	}
	return hits, total, nil
}

func (s *Service) pageSize(limit int) int {
	if limit <= 0 {
		return s.defaultPageSize
	}
	return min(limit, s.maxPageSize)
}
