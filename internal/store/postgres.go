package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Bynd-ai/onepager-console/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// reportColumns is the canonical select list; scanReport scans in this order.
const reportColumns = `id, request_id, session_id, company_name, website_url, status,
	generated_at, duration_ms, folder_title, base_path, container,
	pptx_filename, pptx_blob_url, pptx_blob_path, metadata_blob_url,
	excel_provided, excel_filename, excel_size, excel_blob_url, excel_blob_path,
	sections_status, sections_response, section_sources, product_images, products,
	company_logo, upload_ok, upload_error, warnings, error_type, error_message,
	created_at, updated_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool

	// deferred columns are excluded from INSERT/UPDATE statements; their
	// values are carried on the returned record instead of persisted. Used
	// for staged schema rollouts where a late-added optional column is not
	// yet writable in every environment.
	deferred map[string]bool
}

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithDeferredColumns excludes the named columns from writes.
func WithDeferredColumns(cols ...string) Option {
	return func(s *PostgresStore) {
		for _, c := range cols {
			s.deferred[c] = true
		}
	}
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	s := &PostgresStore{pool: pool, deferred: map[string]bool{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Reports ---

func insertAssignments(r *models.Report) []assignment {
	return []assignment{
		{"request_id", r.RequestID, func(out *models.Report) { out.RequestID = r.RequestID }},
		{"session_id", r.SessionID, func(out *models.Report) { out.SessionID = r.SessionID }},
		{"company_name", r.CompanyName, func(out *models.Report) { out.CompanyName = r.CompanyName }},
		{"website_url", r.WebsiteURL, func(out *models.Report) { out.WebsiteURL = r.WebsiteURL }},
		{"status", r.Status, func(out *models.Report) { out.Status = r.Status }},
		{"generated_at", r.GeneratedAt, func(out *models.Report) { out.GeneratedAt = r.GeneratedAt }},
		{"duration_ms", r.DurationMs, func(out *models.Report) { out.DurationMs = r.DurationMs }},
		{"folder_title", r.FolderTitle, func(out *models.Report) { out.FolderTitle = r.FolderTitle }},
		{"base_path", r.BasePath, func(out *models.Report) { out.BasePath = r.BasePath }},
		{"container", r.Container, func(out *models.Report) { out.Container = r.Container }},
		{"pptx_filename", r.PptxFilename, func(out *models.Report) { out.PptxFilename = r.PptxFilename }},
		{"pptx_blob_url", r.PptxBlobURL, func(out *models.Report) { out.PptxBlobURL = r.PptxBlobURL }},
		{"pptx_blob_path", r.PptxBlobPath, func(out *models.Report) { out.PptxBlobPath = r.PptxBlobPath }},
		{"metadata_blob_url", r.MetadataBlobURL, func(out *models.Report) { out.MetadataBlobURL = r.MetadataBlobURL }},
		{"excel_provided", r.ExcelProvided, func(out *models.Report) { out.ExcelProvided = r.ExcelProvided }},
		{"excel_filename", r.ExcelFilename, func(out *models.Report) { out.ExcelFilename = r.ExcelFilename }},
		{"excel_size", r.ExcelSize, func(out *models.Report) { out.ExcelSize = r.ExcelSize }},
		{"excel_blob_url", r.ExcelBlobURL, func(out *models.Report) { out.ExcelBlobURL = r.ExcelBlobURL }},
		{"excel_blob_path", r.ExcelBlobPath, func(out *models.Report) { out.ExcelBlobPath = r.ExcelBlobPath }},
		{"sections_status", r.SectionsStatus, func(out *models.Report) { out.SectionsStatus = r.SectionsStatus }},
		{"sections_response", r.SectionsResponse, func(out *models.Report) { out.SectionsResponse = r.SectionsResponse }},
		{"section_sources", r.SectionSources, func(out *models.Report) { out.SectionSources = r.SectionSources }},
		{"product_images", r.ProductImages, func(out *models.Report) { out.ProductImages = r.ProductImages }},
		{"products", r.Products, func(out *models.Report) { out.Products = r.Products }},
		{"company_logo", r.CompanyLogo, func(out *models.Report) { out.CompanyLogo = r.CompanyLogo }},
		{"upload_ok", r.UploadOK, func(out *models.Report) { out.UploadOK = r.UploadOK }},
		{"upload_error", r.UploadError, func(out *models.Report) { out.UploadError = r.UploadError }},
		{"warnings", r.Warnings, func(out *models.Report) { out.Warnings = r.Warnings }},
		{"error_type", r.ErrorType, func(out *models.Report) { out.ErrorType = r.ErrorType }},
		{"error_message", r.ErrorMessage, func(out *models.Report) { out.ErrorMessage = r.ErrorMessage }},
	}
}

func (s *PostgresStore) CreateReport(ctx context.Context, report *models.Report) (*models.Report, error) {
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = now
	}

	cols := []string{"created_at", "updated_at"}
	args := []any{report.CreatedAt, report.UpdatedAt}
	var carried []assignment
	for _, a := range insertAssignments(report) {
		if s.deferred[a.column] {
			carried = append(carried, a)
			continue
		}
		cols = append(cols, a.column)
		args = append(args, a.value)
	}

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(
		`INSERT INTO one_pager_reports (%s) VALUES (%s) RETURNING %s`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), reportColumns)

	created, err := scanReport(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("create report: %w", err)
	}
	for _, a := range carried {
		a.carry(created)
	}
	return created, nil
}

func (s *PostgresStore) GetReportByID(ctx context.Context, id int64) (*models.Report, error) {
	r, err := scanReport(s.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM one_pager_reports WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) GetReportByRequestID(ctx context.Context, requestID string) (*models.Report, error) {
	r, err := scanReport(s.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM one_pager_reports WHERE request_id = $1`, requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report by request id: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) FindRecentReport(ctx context.Context, companyName, websiteURL string, since time.Time) (*models.Report, error) {
	r, err := scanReport(s.pool.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM one_pager_reports
		 WHERE company_name = $1 AND website_url = $2 AND created_at >= $3
		 ORDER BY created_at DESC LIMIT 1`,
		companyName, websiteURL, since))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find recent report: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListInProgressByCompany(ctx context.Context, companyName string) ([]*models.Report, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM one_pager_reports
		 WHERE company_name = $1 AND status = $2
		 ORDER BY created_at DESC`,
		companyName, models.StatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("list in-progress reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (s *PostgresStore) ListRecentReports(ctx context.Context, limit int) ([]*models.Report, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportColumns+` FROM one_pager_reports
		 ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent reports: %w", err)
	}
	defer rows.Close()
	return collectReports(rows)
}

func (s *PostgresStore) UpdateReport(ctx context.Context, id int64, patch ReportPatch) (*models.Report, error) {
	return s.applyPatch(ctx, id, patch, nil)
}

func (s *PostgresStore) UpdateReportIfStatus(ctx context.Context, id int64, patch ReportPatch, expectedStatus string) (*models.Report, error) {
	// A terminal status can never be transitioned away from, so a predicate
	// naming one is refused before it can match the row.
	if models.TerminalStatus(expectedStatus) {
		return nil, ErrConflict
	}
	return s.applyPatch(ctx, id, patch, &expectedStatus)
}

// applyPatch issues the patch as one UPDATE statement. The status predicate,
// when present, rides in the WHERE clause so the compare-and-set happens
// server-side rather than as a client-side read-then-write.
func (s *PostgresStore) applyPatch(ctx context.Context, id int64, patch ReportPatch, expectedStatus *string) (*models.Report, error) {
	sets := []string{"updated_at = $2"}
	args := []any{id, time.Now().UTC()}
	argIdx := 3
	var carried []assignment
	for _, a := range patch.assignments() {
		if s.deferred[a.column] {
			carried = append(carried, a)
			continue
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", a.column, argIdx))
		args = append(args, a.value)
		argIdx++
	}

	where := "id = $1"
	if expectedStatus != nil {
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *expectedStatus)
	}

	query := fmt.Sprintf(`UPDATE one_pager_reports SET %s WHERE %s RETURNING %s`,
		strings.Join(sets, ", "), where, reportColumns)

	updated, err := scanReport(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		if expectedStatus == nil {
			return nil, ErrNotFound
		}
		// Zero rows under a status predicate is ambiguous; probe existence
		// to tell a lost race from a missing record.
		var exists bool
		probeErr := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM one_pager_reports WHERE id = $1)`, id).Scan(&exists)
		if probeErr != nil {
			return nil, fmt.Errorf("probe report after conditional update: %w", probeErr)
		}
		if exists {
			return nil, ErrConflict
		}
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}
	for _, a := range carried {
		a.carry(updated)
	}
	return updated, nil
}

// ReclaimStale runs as query-then-bulk-update. A record that turns terminal
// between the two statements is overwritten; that race is accepted for this
// administrative path.
func (s *PostgresStore) ReclaimStale(ctx context.Context, cutoff time.Time, message string) (int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM one_pager_reports WHERE status = $1 AND created_at < $2`,
		models.StatusInProgress, cutoff)
	if err != nil {
		return 0, fmt.Errorf("query stale reports: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan stale report id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate stale reports: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE one_pager_reports
		 SET status = $1, error_type = $2, error_message = $3, updated_at = $4
		 WHERE id = ANY($5)`,
		models.StatusError, models.ErrorTypeTimeout, message, time.Now().UTC(), ids)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale reports: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) DeleteReport(ctx context.Context, requestID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM one_pager_reports WHERE request_id = $1`, requestID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var r models.Report
	err := row.Scan(
		&r.ID, &r.RequestID, &r.SessionID, &r.CompanyName, &r.WebsiteURL, &r.Status,
		&r.GeneratedAt, &r.DurationMs, &r.FolderTitle, &r.BasePath, &r.Container,
		&r.PptxFilename, &r.PptxBlobURL, &r.PptxBlobPath, &r.MetadataBlobURL,
		&r.ExcelProvided, &r.ExcelFilename, &r.ExcelSize, &r.ExcelBlobURL, &r.ExcelBlobPath,
		&r.SectionsStatus, &r.SectionsResponse, &r.SectionSources, &r.ProductImages, &r.Products,
		&r.CompanyLogo, &r.UploadOK, &r.UploadError, &r.Warnings, &r.ErrorType, &r.ErrorMessage,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func collectReports(rows pgx.Rows) ([]*models.Report, error) {
	var reports []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()
	return collectAPIKeys(rows)
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()
	return collectAPIKeys(rows)
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectAPIKeys(rows pgx.Rows) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
