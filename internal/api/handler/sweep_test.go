package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

type mockSweeper struct {
	fn func(staleAfter time.Duration) (int64, error)
}

func (m *mockSweeper) SweepOlderThan(ctx context.Context, staleAfter time.Duration) (int64, error) {
	return m.fn(staleAfter)
}

type mockDeleter struct {
	fn func(requestID string) error
}

func (m *mockDeleter) DeleteReport(ctx context.Context, requestID string) error {
	return m.fn(requestID)
}

func TestSweepHandler_DefaultThreshold(t *testing.T) {
	var gotStaleAfter time.Duration
	sweeper := &mockSweeper{fn: func(staleAfter time.Duration) (int64, error) {
		gotStaleAfter = staleAfter
		return 2, nil
	}}
	h := NewSweepHandler(sweeper, 24*time.Hour)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/sweep", nil))

	data := parseData(t, rec, http.StatusOK)
	if data["reclaimed"] != float64(2) {
		t.Errorf("unexpected reclaimed %v", data["reclaimed"])
	}
	if gotStaleAfter != 24*time.Hour {
		t.Errorf("expected default threshold, got %s", gotStaleAfter)
	}
}

func TestSweepHandler_OverrideThreshold(t *testing.T) {
	var gotStaleAfter time.Duration
	sweeper := &mockSweeper{fn: func(staleAfter time.Duration) (int64, error) {
		gotStaleAfter = staleAfter
		return 0, nil
	}}
	h := NewSweepHandler(sweeper, 24*time.Hour)

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/sweep", map[string]any{"stale_after_hours": 2}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotStaleAfter != 2*time.Hour {
		t.Errorf("expected 2h threshold, got %s", gotStaleAfter)
	}
}

func TestSweepHandler_RejectsNonPositiveThreshold(t *testing.T) {
	h := NewSweepHandler(&mockSweeper{}, 24*time.Hour)

	rec := httptest.NewRecorder()
	h(rec, jsonReq(t, http.MethodPost, "/api/v1/admin/sweep", map[string]any{"stale_after_hours": 0}))

	code, errCode := parseErr(t, rec)
	if code != http.StatusBadRequest || errCode != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", code, errCode)
	}
}

func TestPurgeHandler_Deletes(t *testing.T) {
	var gotRequestID string
	deleter := &mockDeleter{fn: func(requestID string) error {
		gotRequestID = requestID
		return nil
	}}
	h := NewPurgeHandler(deleter)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/reports/Acme_1_abcd1234", nil)
	h(rec, withChiParam(r, "requestID", "Acme_1_abcd1234"))

	data := parseData(t, rec, http.StatusOK)
	if data["deleted"] != true {
		t.Errorf("unexpected body %v", data)
	}
	if gotRequestID != "Acme_1_abcd1234" {
		t.Errorf("unexpected request id %q", gotRequestID)
	}
}

func TestPurgeHandler_NotFound(t *testing.T) {
	deleter := &mockDeleter{fn: func(requestID string) error {
		return store.ErrNotFound
	}}
	h := NewPurgeHandler(deleter)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/reports/missing", nil)
	h(rec, withChiParam(r, "requestID", "missing"))

	code, errCode := parseErr(t, rec)
	if code != http.StatusNotFound || errCode != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", code, errCode)
	}
}

type mockLister struct {
	fn func(limit int) ([]*models.Report, error)
}

func (m *mockLister) ListRecentReports(ctx context.Context, limit int) ([]*models.Report, error) {
	return m.fn(limit)
}

func TestListReportsHandler_DefaultLimit(t *testing.T) {
	var gotLimit int
	lister := &mockLister{fn: func(limit int) ([]*models.Report, error) {
		gotLimit = limit
		return []*models.Report{testReport("a", models.StatusSuccess)}, nil
	}}
	h := NewListReportsHandler(lister)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != defaultListLimit {
		t.Errorf("expected default limit %d, got %d", defaultListLimit, gotLimit)
	}
}

func TestListReportsHandler_CapsLimit(t *testing.T) {
	var gotLimit int
	lister := &mockLister{fn: func(limit int) ([]*models.Report, error) {
		gotLimit = limit
		return nil, nil
	}}
	h := NewListReportsHandler(lister)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=500", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotLimit != maxListLimit {
		t.Errorf("expected capped limit %d, got %d", maxListLimit, gotLimit)
	}
}

func TestListReportsHandler_RejectsBadLimit(t *testing.T) {
	h := NewListReportsHandler(&mockLister{})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports?limit=banana", nil))

	code, errCode := parseErr(t, rec)
	if code != http.StatusBadRequest || errCode != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", code, errCode)
	}
}
