package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Bynd-ai/onepager-console/internal/api/response"
	"github.com/Bynd-ai/onepager-console/internal/cache"
	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/internal/tracker"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

// Transitioner is the subset of the lifecycle controller the progress
// handler needs.
type Transitioner interface {
	Transition(ctx context.Context, requestID, newStatus string, patch store.ReportPatch, expect *string) (*models.Report, error)
}

// progressRequest carries a status transition plus the result fields the
// pipeline learned along the way. All result fields are optional; absent
// fields keep their stored values.
type progressRequest struct {
	Status         string  `json:"status"`
	ExpectedStatus *string `json:"expected_status"`

	DurationMs       *int64           `json:"duration_ms"`
	PptxFilename     *string          `json:"pptx_filename"`
	PptxBlobURL      *string          `json:"pptx_blob_url"`
	PptxBlobPath     *string          `json:"pptx_blob_path"`
	MetadataBlobURL  *string          `json:"metadata_blob_url"`
	ExcelBlobURL     *string          `json:"excel_blob_url"`
	ExcelBlobPath    *string          `json:"excel_blob_path"`
	SectionsStatus   map[string]any   `json:"sections_status"`
	SectionsResponse map[string]any   `json:"sections_response"`
	SectionSources   map[string]any   `json:"section_sources"`
	ProductImages    []string         `json:"product_images"`
	Products         []map[string]any `json:"products"`
	CompanyLogo      *string          `json:"company_logo"`
	UploadOK         *bool            `json:"upload_ok"`
	UploadError      *string          `json:"upload_error"`
	Warnings         []string         `json:"warnings"`
	ErrorType        *string          `json:"error_type"`
	ErrorMessage     *string          `json:"error_message"`
}

// NewProgressHandler returns an http.HandlerFunc for
// POST /api/v1/reports/{requestID}/progress. Transitions are conditional on
// the stored status still being in-progress unless the caller names another
// expected status; a lost race comes back as 409 and the caller should
// re-fetch instead of retrying.
func NewProgressHandler(ctrl Transitioner, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")
		if requestID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Request ID is required", nil)
			return
		}

		var req progressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Status == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Status is required", nil)
			return
		}

		expect := req.ExpectedStatus
		if expect == nil {
			inProgress := models.StatusInProgress
			expect = &inProgress
		}

		patch := store.ReportPatch{
			DurationMs:       req.DurationMs,
			PptxFilename:     req.PptxFilename,
			PptxBlobURL:      req.PptxBlobURL,
			PptxBlobPath:     req.PptxBlobPath,
			MetadataBlobURL:  req.MetadataBlobURL,
			ExcelBlobURL:     req.ExcelBlobURL,
			ExcelBlobPath:    req.ExcelBlobPath,
			SectionsStatus:   req.SectionsStatus,
			SectionsResponse: req.SectionsResponse,
			SectionSources:   req.SectionSources,
			ProductImages:    req.ProductImages,
			Products:         req.Products,
			CompanyLogo:      req.CompanyLogo,
			UploadOK:         req.UploadOK,
			UploadError:      req.UploadError,
			Warnings:         req.Warnings,
			ErrorType:        req.ErrorType,
			ErrorMessage:     req.ErrorMessage,
		}

		updated, err := ctrl.Transition(r.Context(), requestID, req.Status, patch, expect)
		if err != nil {
			switch {
			case errors.Is(err, tracker.ErrInvalidInput):
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
			case errors.Is(err, store.ErrConflict):
				response.Error(w, http.StatusConflict, "CONFLICT",
					"Request status changed since it was read", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"Failed to update request", nil)
			}
			return
		}

		if c != nil {
			if err := c.Delete(r.Context(), cache.ReportStatusKey(requestID)); err != nil {
				slog.Warn("failed to invalidate status projection", "request_id", requestID, "error", err)
			}
		}

		response.JSON(w, tracker.Project(updated))
	}
}
