package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medverify-api/internal/models"
	"github.com/noah-isme/medverify-api/internal/repository"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
)

type registryDrugRepository interface {
	FindByID(ctx context.Context, id string) (*models.Drug, error)
	Create(ctx context.Context, drug *models.Drug) error
	List(ctx context.Context, search string) ([]models.Drug, error)
}

type registryBatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
}

// CreateDrugRequest registers a new drug in the registry.
type CreateDrugRequest struct {
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
	ProductName        string `json:"productName" validate:"required"`
	Manufacturer       string `json:"manufacturer" validate:"required"`
	DosageForm         string `json:"dosageForm" validate:"required"`
	Strength           string `json:"strength"`
}

// CreateBatchRequest registers a production batch under an existing drug.
type CreateBatchRequest struct {
	DrugID          string `json:"drugId" validate:"required"`
	BatchNumber     string `json:"batchNumber" validate:"required"`
	ManufactureDate string `json:"manufactureDate" validate:"required"`
	ExpiryDate      string `json:"expiryDate" validate:"required"`
}

// RegistryService maintains the official drug and batch registry.
type RegistryService struct {
	drugs     registryDrugRepository
	batches   registryBatchRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewRegistryService constructs the service.
func NewRegistryService(drugs registryDrugRepository, batches registryBatchRepository, v *validator.Validate, logger *zap.Logger) *RegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if v == nil {
		v = validator.New()
	}
	return &RegistryService{drugs: drugs, batches: batches, validator: v, logger: logger}
}

// CreateDrug registers a drug. Registration numbers are unique; a duplicate
// surfaces as a client error, not an internal one.
func (s *RegistryService) CreateDrug(ctx context.Context, req CreateDrugRequest) (*models.Drug, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drug data")
	}

	drug := &models.Drug{
		RegistrationNumber: req.RegistrationNumber,
		ProductName:        req.ProductName,
		Manufacturer:       req.Manufacturer,
		DosageForm:         req.DosageForm,
		Strength:           req.Strength,
		Status:             models.DrugStatusGenuine,
	}

	if err := s.drugs.Create(ctx, drug); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Drug with this registration number already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create drug")
	}

	return drug, nil
}

// CreateBatch registers a batch under a drug. The drug must exist and batch
// numbers are unique per drug.
func (s *RegistryService) CreateBatch(ctx context.Context, req CreateBatchRequest) (*models.Batch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch data")
	}

	if _, err := s.drugs.FindByID(ctx, req.DrugID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "drug not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load drug")
	}

	batch := &models.Batch{
		DrugID:          req.DrugID,
		BatchNumber:     req.BatchNumber,
		ManufactureDate: req.ManufactureDate,
		ExpiryDate:      req.ExpiryDate,
	}

	if err := s.batches.Create(ctx, batch); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "Batch already exists for this drug")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}

	return batch, nil
}

// ListDrugs returns registry entries, optionally filtered by a search term
// matched against registration number, product name and manufacturer.
func (s *RegistryService) ListDrugs(ctx context.Context, search string) ([]models.Drug, error) {
	drugs, err := s.drugs.List(ctx, search)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drugs")
	}
	return drugs, nil
}
