package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ahmedoothman/expanders360-api/internal/db"
	"github.com/ahmedoothman/expanders360-api/internal/domain"
	domdoc "github.com/ahmedoothman/expanders360-api/internal/domain/document"
)

const (
	keyPrefix = domain.KeyPrefix + "document:"
	indexName = domain.KeyPrefix + "documents:idx"

	// countChunkSize bounds the number of project ids in one TAG union.
	countChunkSize = 200
)

// store is the consumer interface for documents (ISP).
type store interface {
	db.JSONStore
	db.IndexManager
	db.Searcher
}

// Repo is the DocumentStore backed by RedisJSON and RediSearch.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// IndexDefinition returns the FT index over research documents.
func IndexDefinition() *db.IndexDefinition {
	return db.NewIndex(indexName).
		OnJSON().
		Prefix(keyPrefix).
		TagAs("$.project_id", "project_id").
		TextAs("$.title", "title", 2).
		TextAs("$.content", "content", 0).
		TagAs("$.tags[*]", "tags").
		MustBuild()
}

// EnsureIndex creates the search index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, indexName)
	if err != nil {
		return domain.StoreError("check document index", err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, IndexDefinition()); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return domain.StoreError("create document index", err)
	}
	return nil
}

// Create stores a new document. Documents are keyed by id, so creating an existing id overwrites it.
func (r *Repo) Create(ctx context.Context, doc *domdoc.Document) error {
	data, err := json.Marshal(toJSONDoc(doc))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := r.store.JSONSet(ctx, docKey(doc.ID()), "$", data); err != nil {
		return domain.StoreError("store document "+doc.ID(), err)
	}
	return nil
}

// Get returns a document by id.
func (r *Repo) Get(ctx context.Context, id string) (domdoc.Document, error) {
	raw, err := r.store.JSONGet(ctx, docKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.NewNotFound("document", id)
		}
		return domdoc.Document{}, domain.StoreError("get document "+id, err)
	}
	var jd jsonDoc
	if err := json.Unmarshal(raw, &jd); err != nil {
		return domdoc.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	return jd.toDomain(), nil
}

// ListByProject returns one page of a project's documents and the total count.
func (r *Repo) ListByProject(ctx context.Context, projectID int64, offset, limit int) ([]domdoc.Document, int, error) {
	q := projectFilter(projectID).String()
	result, err := r.store.SearchList(ctx, indexName, q, offset, limit, []string{"$"})
	if err != nil {
		return nil, 0, searchError("list documents", err)
	}
	docs := make([]domdoc.Document, 0, len(result.Entries))
	for _, e := range result.Entries {
		d, ok := decodeEntry(e)
		if !ok {
			continue
		}
		docs = append(docs, d)
	}
	return docs, result.Total, nil
}

// Search runs a full-text query over title and content.
func (r *Repo) Search(ctx context.Context, q domdoc.SearchQuery) ([]domdoc.Hit, int, error) {
	var filters []db.TagFilter
	if q.ProjectID > 0 {
		filters = append(filters, projectFilter(q.ProjectID))
	}
	if len(q.Tags) > 0 {
		filters = append(filters, db.TagFilter{Field: "tags", Values: q.Tags})
	}

	result, err := r.store.SearchText(ctx, &db.TextQuery{
		IndexName:    indexName,
		Query:        q.Text,
		TextFields:   []string{"title", "content"},
		Filters:      filters,
		Offset:       q.Offset,
		Limit:        q.Limit,
		ReturnFields: []string{"$"},
	})
	if err != nil {
		return nil, 0, searchError("search documents", err)
	}

	hits := make([]domdoc.Hit, 0, len(result.Entries))
	for _, e := range result.Entries {
		d, ok := decodeEntry(e)
		if !ok {
			continue
		}
		hits = append(hits, domdoc.Hit{Document: d, Score: e.Score})
	}
	return hits, result.Total, nil
}

// CountByProjectIDs returns the number of documents belonging to any of the given projects.
// An empty id list counts 0 without touching the store.
func (r *Repo) CountByProjectIDs(ctx context.Context, projectIDs []int64) (int, error) {
	total := 0
	for start := 0; start < len(projectIDs); start += countChunkSize {
		end := min(start+countChunkSize, len(projectIDs))
		values := make([]string, 0, end-start)
		for _, id := range projectIDs[start:end] {
			values = append(values, strconv.FormatInt(id, 10))
		}
		q := db.TagFilter{Field: "project_id", Values: values}.String()
		n, err := r.store.SearchCount(ctx, indexName, q)
		if err != nil {
			return 0, searchError("count documents", err)
		}
		total += n
	}
	return total, nil
}

func searchError(op string, err error) error {
	if errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrSearchUnavailable)
	}
	return domain.StoreError(op, err)
}

func projectFilter(projectID int64) db.TagFilter {
	return db.TagFilter{Field: "project_id", Values: []string{strconv.FormatInt(projectID, 10)}}
}

func decodeEntry(e db.SearchEntry) (domdoc.Document, bool) {
	raw := e.Fields["$"]
	if raw == "" {
		return domdoc.Document{}, false
	}
	var jd jsonDoc
	if err := json.Unmarshal([]byte(raw), &jd); err != nil {
		return domdoc.Document{}, false
	}
	if jd.ID == "" {
		jd.ID = strings.TrimPrefix(e.Key, keyPrefix)
	}
	return jd.toDomain(), true
}

func docKey(id string) string {
	return keyPrefix + id
}
