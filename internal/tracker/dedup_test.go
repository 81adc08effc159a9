package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bynd-ai/onepager-console/internal/store"
	"github.com/Bynd-ai/onepager-console/pkg/models"
)

func TestResolve_NoRecentRecord(t *testing.T) {
	ms := (&mockStore{}).noDuplicates()
	r := NewResolver(ms, 5*time.Minute)

	res, err := r.Resolve(context.Background(), "Acme", "https://acme.com")
	require.NoError(t, err)
	assert.True(t, res.IsNew)
	assert.Nil(t, res.Existing)
}

func TestResolve_AttachesToInProgress(t *testing.T) {
	existing := inProgressReport("Acme_1700000000000_abcd1234", "Acme")
	ms := &mockStore{
		findRecentFn: func(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
			return existing, nil
		},
	}
	r := NewResolver(ms, 5*time.Minute)

	res, err := r.Resolve(context.Background(), "Acme", "https://acme.com")
	require.NoError(t, err)
	assert.False(t, res.IsNew)
	require.NotNil(t, res.Existing)
	assert.Equal(t, existing.RequestID, res.Existing.RequestID)
}

func TestResolve_TerminalRecordYieldsFreshRequest(t *testing.T) {
	for _, status := range []string{models.StatusSuccess, models.StatusPartialSuccess, models.StatusError} {
		t.Run(status, func(t *testing.T) {
			done := inProgressReport("Acme_1700000000000_abcd1234", "Acme")
			done.Status = status
			ms := &mockStore{
				findRecentFn: func(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
					return done, nil
				},
				listInProgressFn: func(ctx context.Context, companyName string) ([]*models.Report, error) {
					return nil, nil
				},
			}
			r := NewResolver(ms, 5*time.Minute)

			res, err := r.Resolve(context.Background(), "Acme", "https://acme.com")
			require.NoError(t, err)
			assert.True(t, res.IsNew)
			assert.Nil(t, res.Existing)
		})
	}
}

func TestResolve_WindowBoundsLookup(t *testing.T) {
	fixed := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	var gotSince time.Time
	ms := &mockStore{
		findRecentFn: func(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
			gotSince = since
			return nil, store.ErrNotFound
		},
		listInProgressFn: func(ctx context.Context, companyName string) ([]*models.Report, error) {
			return nil, nil
		},
	}
	r := NewResolver(ms, 5*time.Minute)
	r.now = func() time.Time { return fixed }

	_, err := r.Resolve(context.Background(), "Acme", "https://acme.com")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(-5*time.Minute), gotSince)
}

func TestResolve_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("connection refused")
	ms := &mockStore{
		findRecentFn: func(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
			return nil, boom
		},
	}
	r := NewResolver(ms, 5*time.Minute)

	_, err := r.Resolve(context.Background(), "Acme", "https://acme.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestResolve_ConcurrentInProgressDoesNotBlock(t *testing.T) {
	// Other in-flight jobs for the same company are observed, never queued.
	ms := &mockStore{
		findRecentFn: func(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
			return nil, store.ErrNotFound
		},
		listInProgressFn: func(ctx context.Context, companyName string) ([]*models.Report, error) {
			return []*models.Report{
				inProgressReport("Acme_1_aaaaaaaa", "Acme"),
				inProgressReport("Acme_2_bbbbbbbb", "Acme"),
			}, nil
		},
	}
	r := NewResolver(ms, 5*time.Minute)

	res, err := r.Resolve(context.Background(), "Acme", "https://acme.com/other-page")
	require.NoError(t, err)
	assert.True(t, res.IsNew)
}
