package document

// SearchQuery is a full-text search over title and content.
type SearchQuery struct {
	Text      string
	ProjectID int64 // 0 means any project
	Tags      []string
	Offset    int
	Limit     int
}

// Hit is a search result with its relevance score.
type Hit struct {
	Document Document
	Score    float64
}
