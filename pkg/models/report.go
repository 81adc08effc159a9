package models

import "time"

const (
	StatusInProgress     = "in-progress"
	StatusSuccess        = "success"
	StatusPartialSuccess = "partial-success"
	StatusError          = "error"
)

// ErrorTypeTimeout marks records force-failed by the reclamation sweeper.
const ErrorTypeTimeout = "timeout"

// Report tracks one one-pager generation job. The API returns a request_id on
// POST /api/v1/reports; the client polls GET /api/v1/reports/{request_id}
// until the status is terminal. RequestID is assigned once at creation and
// never changes; ID is the store-assigned row key.
type Report struct {
	ID        int64   `db:"id"         json:"id"`
	RequestID string  `db:"request_id" json:"request_id"`
	SessionID *string `db:"session_id" json:"session_id,omitempty"`

	CompanyName string `db:"company_name" json:"company_name"`
	WebsiteURL  string `db:"website_url"  json:"website_url"`

	Status      string    `db:"status"       json:"status"`
	GeneratedAt time.Time `db:"generated_at" json:"generated_at"`
	DurationMs  int64     `db:"duration_ms"  json:"duration_ms"`

	FolderTitle     string  `db:"folder_title"      json:"folder_title"`
	BasePath        string  `db:"base_path"         json:"base_path"`
	Container       string  `db:"container"         json:"container"`
	PptxFilename    string  `db:"pptx_filename"     json:"pptx_filename"`
	PptxBlobURL     *string `db:"pptx_blob_url"     json:"pptx_blob_url,omitempty"`
	PptxBlobPath    *string `db:"pptx_blob_path"    json:"pptx_blob_path,omitempty"`
	MetadataBlobURL *string `db:"metadata_blob_url" json:"metadata_blob_url,omitempty"`

	ExcelProvided bool    `db:"excel_provided"  json:"excel_provided"`
	ExcelFilename *string `db:"excel_filename"  json:"excel_filename,omitempty"`
	ExcelSize     *int64  `db:"excel_size"      json:"excel_size,omitempty"`
	ExcelBlobURL  *string `db:"excel_blob_url"  json:"excel_blob_url,omitempty"`
	ExcelBlobPath *string `db:"excel_blob_path" json:"excel_blob_path,omitempty"`

	// Pipeline outcome payload. The tracker merges these on transitions but
	// never interprets them.
	SectionsStatus   map[string]any   `db:"sections_status"   json:"sections_status,omitempty"`
	SectionsResponse map[string]any   `db:"sections_response" json:"sections_response,omitempty"`
	SectionSources   map[string]any   `db:"section_sources"   json:"section_sources,omitempty"`
	ProductImages    []string         `db:"product_images"    json:"product_images,omitempty"`
	Products         []map[string]any `db:"products"          json:"products,omitempty"`
	CompanyLogo      *string          `db:"company_logo"      json:"company_logo,omitempty"`

	UploadOK    bool    `db:"upload_ok"    json:"upload_ok"`
	UploadError *string `db:"upload_error" json:"upload_error,omitempty"`

	Warnings     []string `db:"warnings"      json:"warnings,omitempty"`
	ErrorType    *string  `db:"error_type"    json:"error_type,omitempty"`
	ErrorMessage *string  `db:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the status admits no further transitions.
func (r *Report) Terminal() bool {
	return TerminalStatus(r.Status)
}

// TerminalStatus reports whether s is a terminal status.
func TerminalStatus(s string) bool {
	switch s {
	case StatusSuccess, StatusPartialSuccess, StatusError:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the four known statuses.
func ValidStatus(s string) bool {
	return s == StatusInProgress || TerminalStatus(s)
}
