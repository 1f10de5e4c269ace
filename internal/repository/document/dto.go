package document

import (
	"strconv"
	"time"

	domdoc "github.com/ahmedoothman/expanders360-api/internal/domain/document"
)

// jsonDoc is the RedisJSON representation of a research document.
// project_id is stored as a string so it can be indexed as a TAG.
type jsonDoc struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags"`
	FileURL   string   `json:"file_url,omitempty"`
	FileSize  int64    `json:"file_size,omitempty"`
	MimeType  string   `json:"mime_type,omitempty"`
	CreatedAt int64    `json:"created_at"` // unix millis
	UpdatedAt int64    `json:"updated_at"`
}

func toJSONDoc(d *domdoc.Document) jsonDoc {
	f := d.File()
	tags := d.Tags()
	if tags == nil {
		tags = []string{}
	}
	return jsonDoc{
		ID:        d.ID(),
		ProjectID: strconv.FormatInt(d.ProjectID(), 10),
		Title:     d.Title(),
		Content:   d.Content(),
		Tags:      tags,
		FileURL:   f.URL,
		FileSize:  f.Size,
		MimeType:  f.MimeType,
		CreatedAt: d.CreatedAt().UnixMilli(),
		UpdatedAt: d.UpdatedAt().UnixMilli(),
	}
}

func (j jsonDoc) toDomain() domdoc.Document {
	pid, _ := strconv.ParseInt(j.ProjectID, 10, 64)
	return domdoc.Reconstruct(
		j.ID, pid, j.Title, j.Content, j.Tags,
		domdoc.File{URL: j.FileURL, Size: j.FileSize, MimeType: j.MimeType},
		time.UnixMilli(j.CreatedAt).UTC(), time.UnixMilli(j.UpdatedAt).UTC(),
	)
}
