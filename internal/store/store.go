package store

import (
	"context"
	"errors"
	"time"

	"github.com/Bynd-ai/onepager-console/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// ErrConflict is returned by UpdateReportIfStatus when the record exists but
// its stored status no longer matches the expected status. Callers must treat
// it as "another writer won the race", not as a missing record.
var ErrConflict = errors.New("status precondition failed")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateReport(ctx context.Context, report *models.Report) (*models.Report, error)
	GetReportByID(ctx context.Context, id int64) (*models.Report, error)
	GetReportByRequestID(ctx context.Context, requestID string) (*models.Report, error)
	// FindRecentReport returns the most recent report for the given company
	// and website created at or after since, or ErrNotFound.
	FindRecentReport(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error)
	ListInProgressByCompany(ctx context.Context, companyName string) ([]*models.Report, error)
	ListRecentReports(ctx context.Context, limit int) ([]*models.Report, error)
	// UpdateReport applies the patch unconditionally. Reserved for
	// administrative paths; pipeline transitions go through
	// UpdateReportIfStatus so a late duplicate report cannot overwrite a
	// terminal status.
	UpdateReport(ctx context.Context, id int64, patch ReportPatch) (*models.Report, error)
	// UpdateReportIfStatus applies the patch in a single statement only if
	// the stored status equals expectedStatus at write time. Returns
	// ErrConflict when the predicate fails and ErrNotFound when the row is
	// missing.
	UpdateReportIfStatus(ctx context.Context, id int64, patch ReportPatch, expectedStatus string) (*models.Report, error)
	// ReclaimStale force-fails every in-progress report created before
	// cutoff, setting error/timeout and the given message. Returns the
	// number of reclaimed rows.
	ReclaimStale(ctx context.Context, cutoff time.Time, message string) (int64, error)
	DeleteReport(ctx context.Context, requestID string) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error
}

// ReportPatch holds the optional fields a write may touch. Nil fields are
// left unchanged. Every applied patch also refreshes updated_at.
type ReportPatch struct {
	Status           *string
	DurationMs       *int64
	FolderTitle      *string
	BasePath         *string
	PptxFilename     *string
	PptxBlobURL      *string
	PptxBlobPath     *string
	MetadataBlobURL  *string
	ExcelFilename    *string
	ExcelSize        *int64
	ExcelBlobURL     *string
	ExcelBlobPath    *string
	SectionsStatus   map[string]any
	SectionsResponse map[string]any
	SectionSources   map[string]any
	ProductImages    []string
	Products         []map[string]any
	CompanyLogo      *string
	UploadOK         *bool
	UploadError      *string
	Warnings         []string
	ErrorType        *string
	ErrorMessage     *string
}

// assignment is one column write plus a carry function applied to the
// returned record when the column is deferred (see WithDeferredColumns).
type assignment struct {
	column string
	value  any
	carry  func(*models.Report)
}

func (p ReportPatch) assignments() []assignment {
	var out []assignment
	add := func(column string, value any, carry func(*models.Report)) {
		out = append(out, assignment{column: column, value: value, carry: carry})
	}
	if p.Status != nil {
		add("status", *p.Status, func(r *models.Report) { r.Status = *p.Status })
	}
	if p.DurationMs != nil {
		add("duration_ms", *p.DurationMs, func(r *models.Report) { r.DurationMs = *p.DurationMs })
	}
	if p.FolderTitle != nil {
		add("folder_title", *p.FolderTitle, func(r *models.Report) { r.FolderTitle = *p.FolderTitle })
	}
	if p.BasePath != nil {
		add("base_path", *p.BasePath, func(r *models.Report) { r.BasePath = *p.BasePath })
	}
	if p.PptxFilename != nil {
		add("pptx_filename", *p.PptxFilename, func(r *models.Report) { r.PptxFilename = *p.PptxFilename })
	}
	if p.PptxBlobURL != nil {
		add("pptx_blob_url", *p.PptxBlobURL, func(r *models.Report) { r.PptxBlobURL = p.PptxBlobURL })
	}
	if p.PptxBlobPath != nil {
		add("pptx_blob_path", *p.PptxBlobPath, func(r *models.Report) { r.PptxBlobPath = p.PptxBlobPath })
	}
	if p.MetadataBlobURL != nil {
		add("metadata_blob_url", *p.MetadataBlobURL, func(r *models.Report) { r.MetadataBlobURL = p.MetadataBlobURL })
	}
	if p.ExcelFilename != nil {
		add("excel_filename", *p.ExcelFilename, func(r *models.Report) { r.ExcelFilename = p.ExcelFilename })
	}
	if p.ExcelSize != nil {
		add("excel_size", *p.ExcelSize, func(r *models.Report) { r.ExcelSize = p.ExcelSize })
	}
	if p.ExcelBlobURL != nil {
		add("excel_blob_url", *p.ExcelBlobURL, func(r *models.Report) { r.ExcelBlobURL = p.ExcelBlobURL })
	}
	if p.ExcelBlobPath != nil {
		add("excel_blob_path", *p.ExcelBlobPath, func(r *models.Report) { r.ExcelBlobPath = p.ExcelBlobPath })
	}
	if p.SectionsStatus != nil {
		add("sections_status", p.SectionsStatus, func(r *models.Report) { r.SectionsStatus = p.SectionsStatus })
	}
	if p.SectionsResponse != nil {
		add("sections_response", p.SectionsResponse, func(r *models.Report) { r.SectionsResponse = p.SectionsResponse })
	}
	if p.SectionSources != nil {
		add("section_sources", p.SectionSources, func(r *models.Report) { r.SectionSources = p.SectionSources })
	}
	if p.ProductImages != nil {
		add("product_images", p.ProductImages, func(r *models.Report) { r.ProductImages = p.ProductImages })
	}
	if p.Products != nil {
		add("products", p.Products, func(r *models.Report) { r.Products = p.Products })
	}
	if p.CompanyLogo != nil {
		add("company_logo", *p.CompanyLogo, func(r *models.Report) { r.CompanyLogo = p.CompanyLogo })
	}
	if p.UploadOK != nil {
		add("upload_ok", *p.UploadOK, func(r *models.Report) { r.UploadOK = *p.UploadOK })
	}
	if p.UploadError != nil {
		add("upload_error", *p.UploadError, func(r *models.Report) { r.UploadError = p.UploadError })
	}
	if p.Warnings != nil {
		add("warnings", p.Warnings, func(r *models.Report) { r.Warnings = p.Warnings })
	}
	if p.ErrorType != nil {
		add("error_type", *p.ErrorType, func(r *models.Report) { r.ErrorType = p.ErrorType })
	}
	if p.ErrorMessage != nil {
		add("error_message", *p.ErrorMessage, func(r *models.Report) { r.ErrorMessage = p.ErrorMessage })
	}
	return out
}
