package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bynd-ai/onepager-console/internal/metrics"
	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

// ErrInvalidInput marks requests rejected before any store call.
var ErrInvalidInput = errors.New("invalid input")

// ControllerStore is the subset of the store the lifecycle controller needs.
type ControllerStore interface {
	CreateReport(ctx context.Context, report *models.Report) (*models.Report, error)
	GetReportByRequestID(ctx context.Context, requestID string) (*models.Report, error)
	UpdateReport(ctx context.Context, id int64, patch store.ReportPatch) (*models.Report, error)
	UpdateReportIfStatus(ctx context.Context, id int64, patch store.ReportPatch, expectedStatus string) (*models.Report, error)
}

// Controller owns the report status state machine. `in-progress` is the only
// initial state; `success`, `partial-success` and `error` are terminal. The
// terminal guarantee is enforced by the store's conditional write, not by
// caller discipline.
type Controller struct {
	store ControllerStore
	now   func() time.Time
}

// NewController creates a Controller.
func NewController(s ControllerStore) *Controller {
	return &Controller{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// CreateParams carries the caller-supplied fields for a new report record.
type CreateParams struct {
	RequestID   string
	SessionID   *string
	CompanyName string
	WebsiteURL  string

	FolderTitle string
	BasePath    string
	Container   string

	ExcelProvided bool
	ExcelFilename *string
	ExcelSize     *int64
	ExcelBlobURL  *string
	ExcelBlobPath *string
}

// Create inserts a new record with status forced to in-progress and a zero
// duration. The store must echo back the inserted row; anything else is a
// persistence failure.
func (c *Controller) Create(ctx context.Context, p CreateParams) (*models.Report, error) {
	if p.RequestID == "" {
		return nil, fmt.Errorf("%w: request id is required", ErrInvalidInput)
	}
	record := &models.Report{
		RequestID:     p.RequestID,
		SessionID:     p.SessionID,
		CompanyName:   p.CompanyName,
		WebsiteURL:    p.WebsiteURL,
		Status:        models.StatusInProgress,
		GeneratedAt:   c.now(),
		DurationMs:    0,
		FolderTitle:   p.FolderTitle,
		BasePath:      p.BasePath,
		Container:     p.Container,
		ExcelProvided: p.ExcelProvided,
		ExcelFilename: p.ExcelFilename,
		ExcelSize:     p.ExcelSize,
		ExcelBlobURL:  p.ExcelBlobURL,
		ExcelBlobPath: p.ExcelBlobPath,
	}

	created, err := c.store.CreateReport(ctx, record)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return nil, err
		}
		return nil, fmt.Errorf("persist new request %s: %w", p.RequestID, err)
	}
	slog.Info("created request record",
		"request_id", created.RequestID, "company_name", created.CompanyName, "id", created.ID)
	return created, nil
}

// Transition moves the record to newStatus, merging the patch in the same
// write. When expect is non-nil the write is conditional on the stored status
// still matching; a failed predicate surfaces as store.ErrConflict and the
// caller should re-fetch rather than retry blindly. A terminal expected
// status is itself a conflict: finished records never transition again. The
// unconditional form is reserved for administrative use, since it can
// overwrite a terminal status.
func (c *Controller) Transition(ctx context.Context, requestID, newStatus string, patch store.ReportPatch, expect *string) (*models.Report, error) {
	if !models.ValidStatus(newStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, newStatus)
	}

	current, err := c.store.GetReportByRequestID(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load request %s: %w", requestID, err)
	}

	// Terminal states admit no departure, so a terminal expected status can
	// never name a legal transition. Rejecting it here keeps the predicate
	// from matching a finished record and reopening it.
	if expect != nil && models.TerminalStatus(*expect) {
		metrics.ObserveTransitionConflict()
		slog.Warn("transition rejected, expected status is terminal",
			"request_id", requestID, "expected_status", *expect, "new_status", newStatus)
		return nil, store.ErrConflict
	}

	patch.Status = &newStatus

	var updated *models.Report
	if expect != nil {
		updated, err = c.store.UpdateReportIfStatus(ctx, current.ID, patch, *expect)
	} else {
		updated, err = c.store.UpdateReport(ctx, current.ID, patch)
	}
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			expected := ""
			if expect != nil {
				expected = *expect
			}
			metrics.ObserveTransitionConflict()
			slog.Warn("transition lost the race",
				"request_id", requestID, "expected_status", expected, "new_status", newStatus)
			return nil, err
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update request %s to %s: %w", requestID, newStatus, err)
	}

	metrics.ObserveTransition(newStatus)
	slog.Info("updated request status",
		"request_id", requestID, "status", newStatus)
	return updated, nil
}

// GetByRequestID returns the full record for requestID.
func (c *Controller) GetByRequestID(ctx context.Context, requestID string) (*models.Report, error) {
	return c.store.GetReportByRequestID(ctx, requestID)
}

// StatusProjection is the subset of the record exposed for status polling.
type StatusProjection struct {
	RequestID     string    `json:"request_id"`
	Status        string    `json:"status"`
	CompanyName   string    `json:"company_name"`
	WebsiteURL    string    `json:"website_url"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	DurationMs    int64     `json:"duration_ms"`
	PptxBlobURL   *string   `json:"pptx_blob_url,omitempty"`
	ExcelBlobURL  *string   `json:"excel_blob_url,omitempty"`
	ExcelProvided bool      `json:"excel_provided"`
	ExcelFilename *string   `json:"excel_filename,omitempty"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	Warnings      []string  `json:"warnings,omitempty"`
}

// Status returns the polling projection for requestID.
func (c *Controller) Status(ctx context.Context, requestID string) (*StatusProjection, error) {
	record, err := c.store.GetReportByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return Project(record), nil
}

// Project maps a full record onto its status projection.
func Project(r *models.Report) *StatusProjection {
	return &StatusProjection{
		RequestID:     r.RequestID,
		Status:        r.Status,
		CompanyName:   r.CompanyName,
		WebsiteURL:    r.WebsiteURL,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		DurationMs:    r.DurationMs,
		PptxBlobURL:   r.PptxBlobURL,
		ExcelBlobURL:  r.ExcelBlobURL,
		ExcelProvided: r.ExcelProvided,
		ExcelFilename: r.ExcelFilename,
		ErrorMessage:  r.ErrorMessage,
		Warnings:      r.Warnings,
	}
}
