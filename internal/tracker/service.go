package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Bynd-ai/onepager-console/internal/metrics"
	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

// Service ties the deduplication policy and the lifecycle controller into the
// submit operation exposed to callers.
type Service struct {
	resolver   *Resolver
	controller *Controller
}

// NewService creates a Service.
func NewService(resolver *Resolver, controller *Controller) *Service {
	return &Service{resolver: resolver, controller: controller}
}

// SubmitParams carries a submit request. CompanyName and WebsiteURL form the
// business key; the rest is passed through to the new record.
type SubmitParams struct {
	CompanyName string
	WebsiteURL  string
	SessionID   *string

	FolderTitle string
	BasePath    string
	Container   string

	ExcelProvided bool
	ExcelFilename *string
	ExcelSize     *int64
	ExcelBlobURL  *string
	ExcelBlobPath *string
}

// Submit resolves deduplication and either returns the existing in-progress
// record (isNew=false) or creates a fresh one (isNew=true). Losing a creation
// race on the request id unique key is retried once with a fresh identity
// before the failure surfaces.
func (s *Service) Submit(ctx context.Context, p SubmitParams) (record *models.Report, isNew bool, err error) {
	if strings.TrimSpace(p.CompanyName) == "" {
		return nil, false, fmt.Errorf("%w: company_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.WebsiteURL) == "" {
		return nil, false, fmt.Errorf("%w: website_url is required", ErrInvalidInput)
	}

	resolution, err := s.resolver.Resolve(ctx, p.CompanyName, p.WebsiteURL)
	if err != nil {
		return nil, false, err
	}
	if resolution.Existing != nil {
		metrics.ObserveSubmit("duplicate")
		return resolution.Existing, false, nil
	}

	created, err := s.create(ctx, p, NewRequestID(p.CompanyName))
	if errors.Is(err, store.ErrDuplicateKey) {
		// Two submits minted the same identity in the same millisecond.
		slog.Warn("request id collision on create, retrying with fresh identity",
			"company_name", p.CompanyName)
		created, err = s.create(ctx, p, NewRequestID(p.CompanyName))
	}
	if err != nil {
		return nil, false, err
	}

	metrics.ObserveSubmit("new")
	return created, true, nil
}

func (s *Service) create(ctx context.Context, p SubmitParams, requestID string) (*models.Report, error) {
	return s.controller.Create(ctx, CreateParams{
		RequestID:     requestID,
		SessionID:     p.SessionID,
		CompanyName:   p.CompanyName,
		WebsiteURL:    p.WebsiteURL,
		FolderTitle:   p.FolderTitle,
		BasePath:      p.BasePath,
		Container:     p.Container,
		ExcelProvided: p.ExcelProvided,
		ExcelFilename: p.ExcelFilename,
		ExcelSize:     p.ExcelSize,
		ExcelBlobURL:  p.ExcelBlobURL,
		ExcelBlobPath: p.ExcelBlobPath,
	})
}
