package document

import (
	"fmt"
	"strings"
	"time"

	"github.com/ahmedoothman/expanders360-api/internal/domain"
)

// Size limits.
const (
	MaxTitleLength = 512
	MaxContentSize = 1 << 20 // 1MB
	MaxTags        = 64
)

// Document is a research document attached loosely to a project (immutable value object).
// ProjectID is not checked against the relational store.
type Document struct {
	id        string
	projectID int64
	title     string
	content   string
	tags      []string
	fileURL   string
	fileSize  int64
	mimeType  string
	createdAt time.Time
	updatedAt time.Time
}

// File describes an optional uploaded attachment.
type File struct {
	URL      string
	Size     int64
	MimeType string
}

// New validates and creates a Document.
// Title and content are required; tags are normalized to a set.
func New(id string, projectID int64, title, content string, tags []string, file File) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if projectID <= 0 {
		return Document{}, fmt.Errorf("project ID must be positive")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Document{}, fmt.Errorf("title is required")
	}
	if len(title) > MaxTitleLength {
		return Document{}, fmt.Errorf("title too long (max %d)", MaxTitleLength)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	tags = domain.NormalizeSet(tags)
	if len(tags) > MaxTags {
		return Document{}, fmt.Errorf("too many tags (max %d)", MaxTags)
	}
	if file.Size < 0 {
		return Document{}, fmt.Errorf("file size must be non-negative")
	}

	now := time.Now().UTC()
	return Document{
		id:        id,
		projectID: projectID,
		title:     title,
		content:   content,
		tags:      tags,
		fileURL:   file.URL,
		fileSize:  file.Size,
		mimeType:  file.MimeType,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(
	id string, projectID int64, title, content string, tags []string, file File,
	createdAt, updatedAt time.Time,
) Document {
	return Document{
		id:        id,
		projectID: projectID,
		title:     title,
		content:   content,
		tags:      tags,
		fileURL:   file.URL,
		fileSize:  file.Size,
		mimeType:  file.MimeType,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// ProjectID returns the project the document belongs to.
func (d *Document) ProjectID() int64 { return d.projectID }

// Title returns the document title.
func (d *Document) Title() string { return d.title }

// Content returns the document body.
func (d *Document) Content() string { return d.content }

// Tags returns a copy of the document tags.
func (d *Document) Tags() []string {
	out := make([]string, len(d.tags))
	copy(out, d.tags)
	return out
}

// File returns the attachment metadata (zero when absent).
func (d *Document) File() File {
	return File{URL: d.fileURL, Size: d.fileSize, MimeType: d.mimeType}
}

// CreatedAt returns the creation time.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// UpdatedAt returns the last modification time.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }
