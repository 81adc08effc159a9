package tracker

import (
	"context"
	"time"

	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

// mockStore implements ResolverStore, ControllerStore and SweeperStore with
// overridable function fields. Unset fields fail loudly via nil deref, which
// is what we want in a unit test.
type mockStore struct {
	findRecentFn     func(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error)
	listInProgressFn func(ctx context.Context, companyName string) ([]*models.Report, error)
	createFn         func(ctx context.Context, report *models.Report) (*models.Report, error)
	getByRequestIDFn func(ctx context.Context, requestID string) (*models.Report, error)
	updateFn         func(ctx context.Context, id int64, patch store.ReportPatch) (*models.Report, error)
	updateIfFn       func(ctx context.Context, id int64, patch store.ReportPatch, expectedStatus string) (*models.Report, error)
	reclaimStaleFn   func(ctx context.Context, cutoff time.Time, message string) (int64, error)
}

func (m *mockStore) FindRecentReport(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
	return m.findRecentFn(ctx, companyName, websiteURL, since)
}

func (m *mockStore) ListInProgressByCompany(ctx context.Context, companyName string) ([]*models.Report, error) {
	return m.listInProgressFn(ctx, companyName)
}

func (m *mockStore) CreateReport(ctx context.Context, report *models.Report) (*models.Report, error) {
	return m.createFn(ctx, report)
}

func (m *mockStore) GetReportByRequestID(ctx context.Context, requestID string) (*models.Report, error) {
	return m.getByRequestIDFn(ctx, requestID)
}

func (m *mockStore) UpdateReport(ctx context.Context, id int64, patch store.ReportPatch) (*models.Report, error) {
	return m.updateFn(ctx, id, patch)
}

func (m *mockStore) UpdateReportIfStatus(ctx context.Context, id int64, patch store.ReportPatch, expectedStatus string) (*models.Report, error) {
	return m.updateIfFn(ctx, id, patch, expectedStatus)
}

func (m *mockStore) ReclaimStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	return m.reclaimStaleFn(ctx, cutoff, message)
}

// noDuplicates configures the resolver-side lookups to find nothing.
func (m *mockStore) noDuplicates() *mockStore {
	m.findRecentFn = func(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
		return nil, store.ErrNotFound
	}
	m.listInProgressFn = func(ctx context.Context, companyName string) ([]*models.Report, error) {
		return nil, nil
	}
	return m
}

// echoCreate configures CreateReport to return its input with an assigned id.
func (m *mockStore) echoCreate() *mockStore {
	m.createFn = func(ctx context.Context, report *models.Report) (*models.Report, error) {
		out := *report
		out.ID = 1
		out.CreatedAt = time.Now().UTC()
		out.UpdatedAt = out.CreatedAt
		return &out, nil
	}
	return m
}

func inProgressReport(requestID, companyName string) *models.Report {
	now := time.Now().UTC()
	return &models.Report{
		ID:          7,
		RequestID:   requestID,
		CompanyName: companyName,
		WebsiteURL:  "https://example.com",
		Status:      models.StatusInProgress,
		GeneratedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
