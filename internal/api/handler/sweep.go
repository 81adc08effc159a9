package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bynd-ai/onepager-console/internal/api/response"
	"github.com/Bynd-ai/onepager-console/internal/store"
)

// StaleSweeper is the subset of the reclamation sweeper the admin handler
// needs.
type StaleSweeper interface {
	SweepOlderThan(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// ReportDeleter is the subset of the store the admin purge handler needs.
type ReportDeleter interface {
	DeleteReport(ctx context.Context, requestID string) error
}

// NewSweepHandler returns an http.HandlerFunc for POST /api/v1/admin/sweep.
// An empty body runs the sweep with the configured staleness threshold;
// stale_after_hours overrides it for one run.
func NewSweepHandler(sweeper StaleSweeper, defaultStaleAfter time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staleAfter := defaultStaleAfter

		var req struct {
			StaleAfterHours *int `json:"stale_after_hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.StaleAfterHours != nil {
			if *req.StaleAfterHours < 1 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"stale_after_hours must be a positive integer", nil)
				return
			}
			staleAfter = time.Duration(*req.StaleAfterHours) * time.Hour
		}

		reclaimed, err := sweeper.SweepOlderThan(r.Context(), staleAfter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Sweep failed", nil)
			return
		}

		response.JSON(w, map[string]any{
			"reclaimed":         reclaimed,
			"stale_after_hours": int(staleAfter.Hours()),
		})
	}
}

// NewPurgeHandler returns an http.HandlerFunc for
// DELETE /api/v1/admin/reports/{requestID}.
func NewPurgeHandler(deleter ReportDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")
		if requestID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Request ID is required", nil)
			return
		}

		if err := deleter.DeleteReport(r.Context(), requestID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to delete request", nil)
			return
		}

		response.JSON(w, map[string]any{"request_id": requestID, "deleted": true})
	}
}
