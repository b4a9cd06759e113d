package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medverify-api/internal/models"
)

const reportColumns = `id, reporter_id, drug_id, batch_number, registration_number, product_name, manufacturer, suspected_issue, description, reporter_contact, purchase_location, status, ip_address, created_at, updated_at`

// ReportRepository persists suspicion reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create inserts a new report row with generated defaults.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = models.ReportStatusPending
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now

	const query = `INSERT INTO reports (id, reporter_id, drug_id, batch_number, registration_number, product_name, manufacturer, suspected_issue, description, reporter_contact, purchase_location, status, ip_address, created_at, updated_at)
VALUES (:id, :reporter_id, :drug_id, :batch_number, :registration_number, :product_name, :manufacturer, :suspected_issue, :description, :reporter_contact, :purchase_location, :status, :ip_address, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// FindByID returns a report by identifier.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE id = $1 LIMIT 1`
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find report by id: %w", err)
	}
	return &report, nil
}

// UpdateStatus persists a triage decision and bumps the updated timestamp.
func (r *ReportRepository) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	const query = `UPDATE reports SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return nil
}

// List returns reports newest first, optionally filtered by status.
func (r *ReportRepository) List(ctx context.Context, status *models.ReportStatus) ([]models.Report, error) {
	var reports []models.Report
	if status != nil {
		const query = `SELECT ` + reportColumns + ` FROM reports WHERE status = $1 ORDER BY created_at DESC`
		if err := r.db.SelectContext(ctx, &reports, query, *status); err != nil {
			return nil, fmt.Errorf("list reports by status: %w", err)
		}
		return reports, nil
	}

	const query = `SELECT ` + reportColumns + ` FROM reports ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ListByReporter returns a user's own reports, newest first.
func (r *ReportRepository) ListByReporter(ctx context.Context, reporterID string) ([]models.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE reporter_id = $1 ORDER BY created_at DESC`
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, reporterID); err != nil {
		return nil, fmt.Errorf("list reports by reporter: %w", err)
	}
	return reports, nil
}
