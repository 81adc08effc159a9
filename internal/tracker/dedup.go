// Package tracker implements the request lifecycle and deduplication manager
// for one-pager report jobs: identity assignment, duplicate resolution,
// status transitions with optimistic concurrency, and reclamation of
// abandoned jobs. The backing store is the single source of truth; the
// tracker holds no in-process state and re-reads before every decision.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

// Resolution is the outcome of a duplicate check: either an existing
// in-progress report the caller must attach to, or permission to create a
// fresh one.
type Resolution struct {
	Existing *models.Report
	IsNew    bool
}

// ResolverStore is the subset of the store the deduplication policy needs.
type ResolverStore interface {
	FindRecentReport(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error)
	ListInProgressByCompany(ctx context.Context, companyName string) ([]*models.Report, error)
}

// Resolver decides whether a submit is new work or a duplicate of an
// in-flight job. It never creates records. Deduplication is best-effort:
// racing checks may both see no duplicate, and the store may end up holding
// two in-progress rows for the same pair.
type Resolver struct {
	store  ResolverStore
	window time.Duration
	now    func() time.Time
}

// NewResolver creates a Resolver with the given duplicate window.
func NewResolver(s ResolverStore, window time.Duration) *Resolver {
	return &Resolver{
		store:  s,
		window: window,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Resolve checks for a recent report with the same business key. A store
// failure propagates as an error: "could not check" is never collapsed into
// "no duplicate".
func (r *Resolver) Resolve(ctx context.Context, companyName, websiteURL string) (Resolution, error) {
	since := r.now().Add(-r.window)

	existing, err := r.store.FindRecentReport(ctx, companyName, websiteURL, since)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// No recent record; fall through to create.
	case err != nil:
		return Resolution{}, fmt.Errorf("check duplicate request: %w", err)
	case existing.Status == models.StatusInProgress:
		slog.Info("attaching to existing in-progress request",
			"company_name", companyName, "request_id", existing.RequestID)
		return Resolution{Existing: existing}, nil
	default:
		// A recently completed report still yields a fresh request: the
		// window only deduplicates concurrent work, not historical work.
		slog.Info("recent completed request found, generating a fresh one",
			"company_name", companyName,
			"request_id", existing.RequestID, "status", existing.Status)
	}

	// Concurrent in-flight jobs for the same company are permitted; observe
	// and log, but do not queue or block.
	inProgress, err := r.store.ListInProgressByCompany(ctx, companyName)
	if err != nil {
		return Resolution{}, fmt.Errorf("list in-progress requests for company: %w", err)
	}
	if n := len(inProgress); n > 0 {
		slog.Warn("company already has in-progress requests",
			"company_name", companyName, "count", n)
	}

	return Resolution{IsNew: true}, nil
}
