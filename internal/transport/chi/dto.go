package chi

import (
	"time"

	domanalytics "github.com/ahmedoothman/expanders360-api/internal/domain/analytics"
	"github.com/ahmedoothman/expanders360-api/internal/domain/batch"
	domdoc "github.com/ahmedoothman/expanders360-api/internal/domain/document"
	dommatch "github.com/ahmedoothman/expanders360-api/internal/domain/match"
)

// ErrorCode is the machine-readable error kind in error responses.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest        ErrorCode = "bad_request"
	ErrorCodeUnauthorized      ErrorCode = "unauthorized"
	ErrorCodeNotFound          ErrorCode = "not_found"
	ErrorCodeValidationFailed  ErrorCode = "validation_failed"
	ErrorCodeRunInProgress     ErrorCode = "run_in_progress"
	ErrorCodeSearchUnavailable ErrorCode = "search_unavailable"
	ErrorCodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

type matchResponse struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	VendorID  int64     `json:"vendor_id"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type matchListResponse struct {
	ProjectID int64           `json:"project_id"`
	Items     []matchResponse `json:"items"`
}

type vendorScoreResponse struct {
	VendorID   int64   `json:"vendor_id"`
	VendorName string  `json:"vendor_name"`
	AvgScore   float64 `json:"avg_score"`
}

type countryReportResponse struct {
	TopVendors    []vendorScoreResponse `json:"top_vendors"`
	DocumentCount int                   `json:"document_count"`
}

type runItemResponse struct {
	ProjectID int64  `json:"project_id"`
	Status    string `json:"status"`
	Matches   int    `json:"matches"`
	Error     string `json:"error,omitempty"`
}

type runResponse struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Results    []runItemResponse `json:"results"`
}

type createDocumentRequest struct {
	ProjectID int64    `json:"project_id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	FileURL   string   `json:"file_url,omitempty"`
	FileSize  int64    `json:"file_size,omitempty"`
	MimeType  string   `json:"mime_type,omitempty"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	ProjectID int64     `json:"project_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	FileURL   string    `json:"file_url,omitempty"`
	FileSize  int64     `json:"file_size,omitempty"`
	MimeType  string    `json:"mime_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type documentListResponse struct {
	Items []documentResponse `json:"items"`
	Total int                `json:"total"`
}

type searchHitResponse struct {
	Document documentResponse `json:"document"`
	Score    float64          `json:"score"`
}

type searchResponse struct {
	Items []searchHitResponse `json:"items"`
	Total int                 `json:"total"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func matchToResponse(m dommatch.Match) matchResponse {
	return matchResponse{
		ID:        m.ID(),
		ProjectID: m.ProjectID(),
		VendorID:  m.VendorID(),
		Score:     m.Score(),
		CreatedAt: m.CreatedAt(),
		UpdatedAt: m.UpdatedAt(),
	}
}

func matchesToResponse(projectID int64, matches []dommatch.Match) matchListResponse {
	items := make([]matchResponse, len(matches))
	for i, m := range matches {
		items[i] = matchToResponse(m)
	}
	return matchListResponse{ProjectID: projectID, Items: items}
}

func reportToResponse(r domanalytics.Report) map[string]countryReportResponse {
	out := make(map[string]countryReportResponse, len(r))
	for country, cr := range r {
		top := make([]vendorScoreResponse, len(cr.TopVendors))
		for i, v := range cr.TopVendors {
			top[i] = vendorScoreResponse{VendorID: v.VendorID, VendorName: v.VendorName, AvgScore: v.AvgScore}
		}
		out[country] = countryReportResponse{TopVendors: top, DocumentCount: cr.DocumentCount}
	}
	return out
}

func runToResponse(r batch.Report) runResponse {
	items := make([]runItemResponse, len(r.Results))
	for i, res := range r.Results {
		item := runItemResponse{ProjectID: res.ProjectID(), Status: string(res.Status()), Matches: res.Matches()}
		if res.Err() != nil {
			item.Error = safeDomainMessage(res.Err())
		}
		items[i] = item
	}
	return runResponse{
		RunID:      r.RunID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Succeeded:  r.Succeeded(),
		Failed:     len(r.Failed()),
		Results:    items,
	}
}

func documentToResponse(d *domdoc.Document) documentResponse {
	f := d.File()
	return documentResponse{
		ID:        d.ID(),
		ProjectID: d.ProjectID(),
		Title:     d.Title(),
		Content:   d.Content(),
		Tags:      d.Tags(),
		FileURL:   f.URL,
		FileSize:  f.Size,
		MimeType:  f.MimeType,
		CreatedAt: d.CreatedAt(),
		UpdatedAt: d.UpdatedAt(),
	}
}
