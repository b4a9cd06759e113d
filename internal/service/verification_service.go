package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/medverify-api/internal/models"
	"github.com/noah-isme/medverify-api/internal/notifier"
	"github.com/noah-isme/medverify-api/internal/repository"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
)

// Warning messages returned with verification results.
const (
	MessageUnregistered = "This drug is not registered in our database and may be counterfeit"
	MessageBlacklisted  = "This product has been blacklisted and should not be used"
)

type verificationDrugRepository interface {
	FindByID(ctx context.Context, id string) (*models.Drug, error)
	FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Drug, error)
	Create(ctx context.Context, drug *models.Drug) error
	UpdateStatus(ctx context.Context, id string, status models.DrugStatus) error
}

type verificationBatchRepository interface {
	FindByDrugAndNumber(ctx context.Context, drugID, batchNumber string) (*models.Batch, error)
}

type verificationAuditRepository interface {
	Create(ctx context.Context, verification *models.Verification) error
	ListRecent(ctx context.Context, limit int) ([]models.Verification, error)
	ListByUser(ctx context.Context, userID string) ([]models.Verification, error)
}

type activityCache interface {
	SetLatest(ctx context.Context, activity *models.RecentActivity) error
	Latest(ctx context.Context) (*models.RecentActivity, error)
}

type verificationMetrics interface {
	IncVerification(status string)
}

// VerifyRequest is the public verification payload.
type VerifyRequest struct {
	RegistrationNumber string `json:"registrationNumber" validate:"required"`
	BatchNumber        string `json:"batchNumber"`
	Location           string `json:"location"`
}

// RequestMeta carries per-request context the engine records on the audit
// trail. UserID is nil for anonymous callers.
type RequestMeta struct {
	UserID *string
	IP     string
}

// VerificationResult is the outcome of a single verification request.
//
// Ephemeral is set when the store was unavailable during the unknown-number
// path and the verification was not persisted; such results carry a locally
// generated identifier and cannot be retrieved later.
type VerificationResult struct {
	Counterfeit        bool                 `json:"counterfeit,omitempty"`
	RegistrationNumber string               `json:"registrationNumber,omitempty"`
	Drug               *models.Drug         `json:"drug,omitempty"`
	Batch              *models.Batch        `json:"batch,omitempty"`
	Verification       *models.Verification `json:"verification"`
	Message            string               `json:"message,omitempty"`
	Ephemeral          bool                 `json:"-"`
}

// VerificationService decides drug authenticity, maintains the audit trail
// and notifies connected administrators. It calls the store and the notifier
// explicitly; the two are never coupled behind the scenes.
type VerificationService struct {
	drugs         verificationDrugRepository
	batches       verificationBatchRepository
	verifications verificationAuditRepository
	activity      activityCache
	broadcaster   notifier.Broadcaster
	metrics       verificationMetrics
	validator     *validator.Validate
	logger        *zap.Logger
}

// VerificationDependencies bundles collaborators for the service.
type VerificationDependencies struct {
	DrugRepo         verificationDrugRepository
	BatchRepo        verificationBatchRepository
	VerificationRepo verificationAuditRepository
	ActivityCache    activityCache
	Broadcaster      notifier.Broadcaster
	Metrics          verificationMetrics
	Validator        *validator.Validate
	Logger           *zap.Logger
}

// NewVerificationService constructs the service.
func NewVerificationService(deps VerificationDependencies) *VerificationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &VerificationService{
		drugs:         deps.DrugRepo,
		batches:       deps.BatchRepo,
		verifications: deps.VerificationRepo,
		activity:      deps.ActivityCache,
		broadcaster:   deps.Broadcaster,
		metrics:       deps.Metrics,
		validator:     deps.Validator,
		logger:        deps.Logger,
	}
}

// SetBroadcaster attaches the notifier after construction. The hub's seed
// event comes from this service, so the two are wired in two steps at
// startup.
func (s *VerificationService) SetBroadcaster(b notifier.Broadcaster) {
	s.broadcaster = b
}

// Verify checks a registration number (and optional batch number) against
// the registry, records an immutable verification and returns the verdict.
func (s *VerificationService) Verify(ctx context.Context, req VerifyRequest, meta RequestMeta) (*VerificationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "registration number is required")
	}

	drug, err := s.drugs.FindByRegistrationNumber(ctx, req.RegistrationNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.verifyUnknown(ctx, req, meta)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "server error during verification")
	}

	return s.verifyKnown(ctx, drug, req, meta)
}

// verifyUnknown handles a registration number with no registry entry: the
// number is auto-registered as a blacklisted counterfeit so repeat
// submissions are tracked like any known counterfeit. When the store is
// unavailable the caller still gets a usable verdict through an ephemeral,
// non-persisted result.
func (s *VerificationService) verifyUnknown(ctx context.Context, req VerifyRequest, meta RequestMeta) (*VerificationResult, error) {
	drug := &models.Drug{
		RegistrationNumber: req.RegistrationNumber,
		ProductName:        models.UnregisteredProductName,
		Manufacturer:       models.UnregisteredManufacturer,
		DosageForm:         models.UnregisteredDosageForm,
		Status:             models.DrugStatusCounterfeit,
		IsBlacklisted:      true,
	}

	if err := s.drugs.Create(ctx, drug); err != nil {
		if repository.IsUniqueViolation(err) {
			// Lost a race against a concurrent verification of the same
			// number: the winner's row is authoritative.
			if existing, lookupErr := s.drugs.FindByRegistrationNumber(ctx, req.RegistrationNumber); lookupErr == nil {
				return s.verifyKnown(ctx, existing, req, meta)
			}
		}
		s.logger.Warn("auto-registration failed, returning ephemeral result",
			zap.String("registration_number", req.RegistrationNumber), zap.Error(err))
		return s.ephemeralResult(req), nil
	}

	verification := &models.Verification{
		DrugID:    &drug.ID,
		UserID:    meta.UserID,
		Status:    models.DrugStatusCounterfeit,
		IPAddress: meta.IP,
		Location:  req.Location,
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		s.logger.Warn("verification insert failed, returning ephemeral result",
			zap.String("registration_number", req.RegistrationNumber), zap.Error(err))
		return s.ephemeralResult(req), nil
	}

	s.afterVerification(ctx, drug, verification, "")

	return &VerificationResult{
		Counterfeit:        true,
		RegistrationNumber: req.RegistrationNumber,
		Drug:               drug,
		Verification:       verification,
		Message:            MessageUnregistered,
	}, nil
}

func (s *VerificationService) verifyKnown(ctx context.Context, drug *models.Drug, req VerifyRequest, meta RequestMeta) (*VerificationResult, error) {
	var batch *models.Batch
	if req.BatchNumber != "" {
		found, err := s.batches.FindByDrugAndNumber(ctx, drug.ID, req.BatchNumber)
		switch {
		case err == nil:
			batch = found
		case errors.Is(err, sql.ErrNoRows):
			// A genuine product presented with an unrecognized batch number
			// is suspicious, possibly a relabeled counterfeit. Escalate for
			// review instead of silently passing it.
			if drug.Status == models.DrugStatusGenuine {
				if err := s.drugs.UpdateStatus(ctx, drug.ID, models.DrugStatusFlagged); err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "server error during verification")
				}
				refreshed, err := s.drugs.FindByRegistrationNumber(ctx, drug.RegistrationNumber)
				if err != nil {
					return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "server error during verification")
				}
				drug = refreshed
			}
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "server error during verification")
		}
	}

	verification := &models.Verification{
		DrugID:    &drug.ID,
		UserID:    meta.UserID,
		Status:    drug.Status,
		IPAddress: meta.IP,
		Location:  req.Location,
	}
	if batch != nil {
		verification.BatchID = &batch.ID
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "server error during verification")
	}

	s.afterVerification(ctx, drug, verification, req.BatchNumber)

	result := &VerificationResult{
		Drug:         drug,
		Batch:        batch,
		Verification: verification,
	}
	if drug.IsBlacklisted {
		result.Message = MessageBlacklisted
	}
	return result, nil
}

// Lookup resolves a registration number directly and records a verification
// at the drug's current status.
func (s *VerificationService) Lookup(ctx context.Context, registrationNumber string, meta RequestMeta) (*VerificationResult, error) {
	drug, err := s.drugs.FindByRegistrationNumber(ctx, registrationNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "drug not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "server error during verification")
	}

	verification := &models.Verification{
		DrugID:    &drug.ID,
		UserID:    meta.UserID,
		Status:    drug.Status,
		IPAddress: meta.IP,
	}
	if err := s.verifications.Create(ctx, verification); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "server error during verification")
	}

	s.afterVerification(ctx, drug, verification, "")

	result := &VerificationResult{Drug: drug, Verification: verification}
	if drug.IsBlacklisted {
		result.Message = MessageBlacklisted
	}
	return result, nil
}

// ListRecent returns the newest verifications for the admin dashboard.
func (s *VerificationService) ListRecent(ctx context.Context, limit int) ([]models.Verification, error) {
	verifications, err := s.verifications.ListRecent(ctx, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list verifications")
	}
	return verifications, nil
}

// ListMine returns the caller's own verifications, newest first.
func (s *VerificationService) ListMine(ctx context.Context, userID string) ([]models.Verification, error) {
	verifications, err := s.verifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list verifications")
	}
	return verifications, nil
}

// RecentActivityEvent builds the seed event for a newly connected admin
// session from the cached latest verification, falling back to the canned
// sample when the cache is empty.
func (s *VerificationService) RecentActivityEvent(ctx context.Context) notifier.Event {
	if s.activity != nil {
		if latest, err := s.activity.Latest(ctx); err == nil {
			return notifier.Event{
				Type:               notifier.EventTypeVerification,
				Title:              "Recent Drug Verification",
				Message:            "A user verified " + latest.ProductName + " with registration number " + latest.RegistrationNumber,
				Timestamp:          latest.VerifiedAt,
				Status:             string(latest.Status),
				RegistrationNumber: latest.RegistrationNumber,
				ProductName:        latest.ProductName,
			}
		}
	}
	return notifier.SampleEvent()
}

// afterVerification runs the post-commit side effects: the admin broadcast,
// the recent-activity cache and the outcome counter. None of them may fail
// the request.
func (s *VerificationService) afterVerification(ctx context.Context, drug *models.Drug, verification *models.Verification, batchNumber string) {
	if s.broadcaster != nil {
		s.broadcaster.Broadcast(notifier.NewVerificationEvent(drug, verification, batchNumber))
	}
	if s.metrics != nil {
		s.metrics.IncVerification(string(verification.Status))
	}
	if s.activity != nil {
		activity := &models.RecentActivity{
			RegistrationNumber: drug.RegistrationNumber,
			ProductName:        drug.ProductName,
			Status:             verification.Status,
			VerifiedAt:         verification.CreatedAt,
		}
		if err := s.activity.SetLatest(ctx, activity); err != nil {
			s.logger.Warn("failed to cache recent activity", zap.Error(err))
		}
	}
}

func (s *VerificationService) ephemeralResult(req VerifyRequest) *VerificationResult {
	verification := &models.Verification{
		ID:        uuid.NewString(),
		Status:    models.DrugStatusCounterfeit,
		CreatedAt: time.Now().UTC(),
	}

	return &VerificationResult{
		Counterfeit:        true,
		RegistrationNumber: req.RegistrationNumber,
		Verification:       verification,
		Message:            MessageUnregistered,
		Ephemeral:          true,
	}
}
