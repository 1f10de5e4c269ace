package db

// TextQuery is the input for a full-text search scored by BM25.
type TextQuery struct {
	IndexName    string
	Query        string
	TextFields   []string // restrict matching to these TEXT fields; empty means all
	Filters      []TagFilter
	Offset       int
	Limit        int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
