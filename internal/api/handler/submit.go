package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Bynd-ai/onepager-console/internal/api/response"
	"github.com/Bynd-ai/onepager-console/internal/tracker"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

// Submitter defines the interface the submit handler depends on.
type Submitter interface {
	Submit(ctx context.Context, p tracker.SubmitParams) (*models.Report, bool, error)
}

// submitResponse is returned for both new and attached requests; is_new
// tells the caller which happened.
type submitResponse struct {
	RequestID string `json:"request_id"`
	IsNew     bool   `json:"is_new"`
	Status    string `json:"status"`
}

// NewSubmitHandler returns an http.HandlerFunc for POST /api/v1/reports.
func NewSubmitHandler(svc Submitter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CompanyName   string  `json:"company_name"`
			WebsiteURL    string  `json:"website_url"`
			SessionID     *string `json:"session_id"`
			FolderTitle   string  `json:"folder_title"`
			BasePath      string  `json:"base_path"`
			Container     string  `json:"container"`
			ExcelProvided bool    `json:"excel_provided"`
			ExcelFilename *string `json:"excel_filename"`
			ExcelSize     *int64  `json:"excel_size"`
			ExcelBlobURL  *string `json:"excel_blob_url"`
			ExcelBlobPath *string `json:"excel_blob_path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		record, isNew, err := svc.Submit(r.Context(), tracker.SubmitParams{
			CompanyName:   req.CompanyName,
			WebsiteURL:    req.WebsiteURL,
			SessionID:     req.SessionID,
			FolderTitle:   req.FolderTitle,
			BasePath:      req.BasePath,
			Container:     req.Container,
			ExcelProvided: req.ExcelProvided,
			ExcelFilename: req.ExcelFilename,
			ExcelSize:     req.ExcelSize,
			ExcelBlobURL:  req.ExcelBlobURL,
			ExcelBlobPath: req.ExcelBlobPath,
		})
		if err != nil {
			if errors.Is(err, tracker.ErrInvalidInput) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to submit request", nil)
			return
		}

		body := submitResponse{
			RequestID: record.RequestID,
			IsNew:     isNew,
			Status:    record.Status,
		}
		if isNew {
			response.Accepted(w, body)
			return
		}
		response.JSON(w, body)
	}
}
