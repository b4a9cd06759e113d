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

// BatchRepository persists manufacturing batches.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// FindByDrugAndNumber returns the batch identified by (drugID, batchNumber).
func (r *BatchRepository) FindByDrugAndNumber(ctx context.Context, drugID, batchNumber string) (*models.Batch, error) {
	const query = `SELECT id, drug_id, batch_number, manufacture_date, expiry_date, created_at FROM batches WHERE drug_id = $1 AND batch_number = $2 LIMIT 1`
	var batch models.Batch
	if err := r.db.GetContext(ctx, &batch, query, drugID, batchNumber); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find batch: %w", err)
	}
	return &batch, nil
}

// Create inserts a new batch row with generated defaults.
func (r *BatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO batches (id, drug_id, batch_number, manufacture_date, expiry_date, created_at)
VALUES (:id, :drug_id, :batch_number, :manufacture_date, :expiry_date, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create batch: %w", err)
	}
	return nil
}
