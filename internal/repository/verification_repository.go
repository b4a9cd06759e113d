package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/medverify-api/internal/models"
)

const verificationColumns = `id, drug_id, batch_id, user_id, status, ip_address, location, created_at`

// VerificationRepository persists the immutable verification audit trail.
// There are no update or delete operations on purpose.
type VerificationRepository struct {
	db *sqlx.DB
}

// NewVerificationRepository constructs the repository.
func NewVerificationRepository(db *sqlx.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// Create inserts a new verification row with generated defaults.
func (r *VerificationRepository) Create(ctx context.Context, verification *models.Verification) error {
	if verification.ID == "" {
		verification.ID = uuid.NewString()
	}
	if verification.CreatedAt.IsZero() {
		verification.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO verifications (id, drug_id, batch_id, user_id, status, ip_address, location, created_at)
VALUES (:id, :drug_id, :batch_id, :user_id, :status, :ip_address, :location, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, verification); err != nil {
		return fmt.Errorf("create verification: %w", err)
	}
	return nil
}

// ListRecent returns the latest verifications, newest first.
func (r *VerificationRepository) ListRecent(ctx context.Context, limit int) ([]models.Verification, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT ` + verificationColumns + ` FROM verifications ORDER BY created_at DESC LIMIT $1`
	var verifications []models.Verification
	if err := r.db.SelectContext(ctx, &verifications, query, limit); err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	return verifications, nil
}

// ListByUser returns a user's own verifications, newest first.
func (r *VerificationRepository) ListByUser(ctx context.Context, userID string) ([]models.Verification, error) {
	const query = `SELECT ` + verificationColumns + ` FROM verifications WHERE user_id = $1 ORDER BY created_at DESC`
	var verifications []models.Verification
	if err := r.db.SelectContext(ctx, &verifications, query, userID); err != nil {
		return nil, fmt.Errorf("list verifications by user: %w", err)
	}
	return verifications, nil
}
