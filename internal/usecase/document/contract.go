package document

import (
	"context"

	domdoc "github.com/ahmedoothman/expanders360-api/internal/domain/document"
)

// Repository defines the storage contract for research documents.
type Repository interface {
	Create(ctx context.Context, doc *domdoc.Document) error
	Get(ctx context.Context, id string) (domdoc.Document, error)
	ListByProject(ctx context.Context, projectID int64, offset, limit int) ([]domdoc.Document, int, error)
	Search(ctx context.Context, q domdoc.SearchQuery) ([]domdoc.Hit, int, error)
}
