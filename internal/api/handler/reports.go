package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Bynd-ai/onepager-console/internal/api/response"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ReportLister is the subset of the store the listing handler needs.
type ReportLister interface {
	ListRecentReports(ctx context.Context, limit int) ([]*models.Report, error)
}

// NewListReportsHandler returns an http.HandlerFunc for GET /api/v1/reports.
// Records come back newest first.
func NewListReportsHandler(lister ReportLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultListLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"Limit must be a positive integer", nil)
				return
			}
			limit = parsed
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}

		records, err := lister.ListRecentReports(r.Context(), limit)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to list requests", nil)
			return
		}

		response.List(w, records, response.ListMeta{Count: len(records), Limit: limit})
	}
}
