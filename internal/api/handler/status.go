package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Bynd-ai/onepager-console/internal/api/response"
	"github.com/Bynd-ai/onepager-console/internal/cache"
	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/internal/tracker"
)

// statusCacheTTL bounds how stale a polled status payload can be. Pollers
// re-request every few seconds, so a short TTL absorbs most of the read load
// without delaying terminal statuses noticeably.
const statusCacheTTL = 5 * time.Second

// StatusProvider is the subset of the lifecycle controller the status
// handler needs.
type StatusProvider interface {
	Status(ctx context.Context, requestID string) (*tracker.StatusProjection, error)
}

// NewStatusHandler returns an http.HandlerFunc for GET /api/v1/reports/{requestID}.
// The cache holds serialized projections only; a miss or a cache failure falls
// through to the database.
func NewStatusHandler(provider StatusProvider, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := chi.URLParam(r, "requestID")
		if requestID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Request ID is required", nil)
			return
		}

		if c != nil {
			if payload, ok, err := c.GetReportStatus(r.Context(), requestID); err == nil && ok {
				var projection tracker.StatusProjection
				if err := json.Unmarshal(payload, &projection); err == nil {
					response.JSON(w, &projection)
					return
				}
			}
		}

		projection, err := provider.Status(r.Context(), requestID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Request not found", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to load request status", nil)
			return
		}

		if c != nil {
			if payload, err := json.Marshal(projection); err == nil {
				if err := c.SetReportStatus(r.Context(), requestID, payload, statusCacheTTL); err != nil {
					slog.Warn("failed to cache status projection", "request_id", requestID, "error", err)
				}
			}
		}

		response.JSON(w, projection)
	}
}
