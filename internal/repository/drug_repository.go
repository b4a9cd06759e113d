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

const drugColumns = `id, registration_number, product_name, manufacturer, dosage_form, strength, status, is_blacklisted, created_at, updated_at`

// DrugRepository persists drug registry entries.
type DrugRepository struct {
	db *sqlx.DB
}

// NewDrugRepository constructs the repository.
func NewDrugRepository(db *sqlx.DB) *DrugRepository {
	return &DrugRepository{db: db}
}

// FindByID returns a drug by identifier.
func (r *DrugRepository) FindByID(ctx context.Context, id string) (*models.Drug, error) {
	const query = `SELECT ` + drugColumns + ` FROM drugs WHERE id = $1 LIMIT 1`
	var drug models.Drug
	if err := r.db.GetContext(ctx, &drug, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find drug by id: %w", err)
	}
	return &drug, nil
}

// FindByRegistrationNumber returns a drug by its registration number.
func (r *DrugRepository) FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Drug, error) {
	const query = `SELECT ` + drugColumns + ` FROM drugs WHERE registration_number = $1 LIMIT 1`
	var drug models.Drug
	if err := r.db.GetContext(ctx, &drug, query, registrationNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find drug by registration number: %w", err)
	}
	return &drug, nil
}

// Create inserts a new drug row with generated defaults. The unique
// constraint on registration_number is the only cross-request safeguard
// against concurrent inserts of the same number; callers inspect the error
// with IsUniqueViolation.
func (r *DrugRepository) Create(ctx context.Context, drug *models.Drug) error {
	if drug.ID == "" {
		drug.ID = uuid.NewString()
	}
	if drug.Status == "" {
		drug.Status = models.DrugStatusGenuine
	}
	now := time.Now().UTC()
	if drug.CreatedAt.IsZero() {
		drug.CreatedAt = now
	}
	drug.UpdatedAt = now

	const query = `INSERT INTO drugs (id, registration_number, product_name, manufacturer, dosage_form, strength, status, is_blacklisted, created_at, updated_at)
VALUES (:id, :registration_number, :product_name, :manufacturer, :dosage_form, :strength, :status, :is_blacklisted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, drug); err != nil {
		return fmt.Errorf("create drug: %w", err)
	}
	return nil
}

// UpdateStatus transitions a drug's authenticity status.
func (r *DrugRepository) UpdateStatus(ctx context.Context, id string, status models.DrugStatus) error {
	const query = `UPDATE drugs SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update drug status: %w", err)
	}
	return nil
}

// List returns drugs ordered by most recent update, optionally filtered by a
// substring search over product name, registration number and manufacturer.
func (r *DrugRepository) List(ctx context.Context, search string) ([]models.Drug, error) {
	var drugs []models.Drug
	if search != "" {
		const query = `SELECT ` + drugColumns + ` FROM drugs
WHERE product_name ILIKE $1 OR registration_number ILIKE $1 OR manufacturer ILIKE $1
ORDER BY updated_at DESC`
		if err := r.db.SelectContext(ctx, &drugs, query, "%"+search+"%"); err != nil {
			return nil, fmt.Errorf("search drugs: %w", err)
		}
		return drugs, nil
	}

	const query = `SELECT ` + drugColumns + ` FROM drugs ORDER BY updated_at DESC`
	if err := r.db.SelectContext(ctx, &drugs, query); err != nil {
		return nil, fmt.Errorf("list drugs: %w", err)
	}
	return drugs, nil
}
