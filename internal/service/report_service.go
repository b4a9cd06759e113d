package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/medverify-api/internal/models"
	"github.com/noah-isme/medverify-api/internal/notifier"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
)

type reportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	FindByID(ctx context.Context, id string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error
	List(ctx context.Context, status *models.ReportStatus) ([]models.Report, error)
	ListByReporter(ctx context.Context, reporterID string) ([]models.Report, error)
}

type reportDrugRepository interface {
	FindByID(ctx context.Context, id string) (*models.Drug, error)
	FindByRegistrationNumber(ctx context.Context, registrationNumber string) (*models.Drug, error)
	UpdateStatus(ctx context.Context, id string, status models.DrugStatus) error
}

type reportAuditRepository interface {
	Create(ctx context.Context, verification *models.Verification) error
}

type reportMetrics interface {
	IncReportSubmitted()
}

// SubmitReportRequest is the public report payload. The reason/details keys
// mirror the submission form field names.
type SubmitReportRequest struct {
	ProductName        string `json:"productName" validate:"required"`
	Manufacturer       string `json:"manufacturer"`
	RegistrationNumber string `json:"registrationNumber"`
	BatchNumber        string `json:"batchNumber"`
	SuspectedIssue     string `json:"reason"`
	Description        string `json:"details"`
	PurchaseLocation   string `json:"purchaseLocation" validate:"required"`
	ReporterContact    string `json:"reporterContact"`
}

// UpdateReportStatusRequest is the admin triage payload.
type UpdateReportStatusRequest struct {
	Status   models.ReportStatus `json:"status" validate:"required"`
	FlagDrug bool                `json:"flagDrug"`
}

// ReportService accepts suspicion reports, links them to the registry when
// possible and processes administrator triage decisions.
type ReportService struct {
	reports       reportRepository
	drugs         reportDrugRepository
	verifications reportAuditRepository
	broadcaster   notifier.Broadcaster
	metrics       reportMetrics
	validator     *validator.Validate
	logger        *zap.Logger
}

// ReportDependencies bundles collaborators for the service.
type ReportDependencies struct {
	ReportRepo       reportRepository
	DrugRepo         reportDrugRepository
	VerificationRepo reportAuditRepository
	Broadcaster      notifier.Broadcaster
	Metrics          reportMetrics
	Validator        *validator.Validate
	Logger           *zap.Logger
}

// NewReportService constructs the service.
func NewReportService(deps ReportDependencies) *ReportService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &ReportService{
		reports:       deps.ReportRepo,
		drugs:         deps.DrugRepo,
		verifications: deps.VerificationRepo,
		broadcaster:   deps.Broadcaster,
		metrics:       deps.Metrics,
		validator:     deps.Validator,
		logger:        deps.Logger,
	}
}

// Submit files a new report. Reports with a resolvable registration number
// are linked to the registry entry; unresolved numbers keep the free text
// for manual follow-up. Anonymous submissions are allowed.
func (s *ReportService) Submit(ctx context.Context, req SubmitReportRequest, meta RequestMeta) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report data")
	}

	if req.SuspectedIssue == "" {
		req.SuspectedIssue = models.DefaultSuspectedIssue
	}
	if req.Description == "" {
		req.Description = models.DefaultReportDescription
	}

	report := &models.Report{
		ReporterID:       meta.UserID,
		ProductName:      optional(req.ProductName),
		Manufacturer:     optional(req.Manufacturer),
		BatchNumber:      optional(req.BatchNumber),
		SuspectedIssue:   req.SuspectedIssue,
		Description:      req.Description,
		ReporterContact:  optional(req.ReporterContact),
		PurchaseLocation: optional(req.PurchaseLocation),
		Status:           models.ReportStatusPending,
		IPAddress:        meta.IP,
	}

	var linkedDrug *models.Drug
	if req.RegistrationNumber != "" {
		report.RegistrationNumber = optional(req.RegistrationNumber)
		drug, err := s.drugs.FindByRegistrationNumber(ctx, req.RegistrationNumber)
		switch {
		case err == nil:
			linkedDrug = drug
			report.DrugID = &drug.ID
		case errors.Is(err, sql.ErrNoRows):
			// unlinked; the free-text number stays on the report
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit report")
		}
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit report")
	}

	if s.broadcaster != nil {
		s.broadcaster.Broadcast(notifier.NewReportCreatedEvent(report, linkedDrug))
	}
	if s.metrics != nil {
		s.metrics.IncReportSubmitted()
	}

	return report, nil
}

// UpdateStatus applies an administrator triage decision. When FlagDrug is
// set and the report is linked, the drug is flagged regardless of its prior
// status and a synthetic verification attributed to the acting administrator
// is recorded best-effort so the action shows up in the audit trail.
func (s *ReportService) UpdateStatus(ctx context.Context, reportID string, req UpdateReportStatusRequest, actor RequestMeta) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil || !models.ValidReportStatus(req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid report status")
	}

	report, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}

	oldStatus := report.Status
	if err := s.reports.UpdateStatus(ctx, reportID, req.Status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}

	updated, err := s.reports.FindByID(ctx, reportID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload report")
	}

	if req.FlagDrug && report.DrugID != nil {
		if err := s.flagDrug(ctx, *report.DrugID, actor); err != nil {
			return nil, err
		}
	}

	if oldStatus != updated.Status && s.broadcaster != nil {
		s.broadcaster.Broadcast(notifier.NewReportStatusChangedEvent(updated, oldStatus, updated.Status))
	}

	return updated, nil
}

// flagDrug sets the linked drug to flagged. The synthetic audit verification
// is best-effort: its failure is logged and swallowed, never surfaced.
func (s *ReportService) flagDrug(ctx context.Context, drugID string, actor RequestMeta) error {
	drug, err := s.drugs.FindByID(ctx, drugID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load linked drug")
	}

	if err := s.drugs.UpdateStatus(ctx, drug.ID, models.DrugStatusFlagged); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to flag drug")
	}

	if actor.UserID != nil {
		verification := &models.Verification{
			DrugID:    &drug.ID,
			UserID:    actor.UserID,
			Status:    models.DrugStatusFlagged,
			IPAddress: actor.IP,
		}
		if err := s.verifications.Create(ctx, verification); err != nil {
			s.logger.Warn("failed to record flag verification",
				zap.String("drug_id", drug.ID), zap.Error(err))
		}
	}

	return nil
}

// List returns reports for triage, optionally filtered by status.
func (s *ReportService) List(ctx context.Context, status string) ([]models.Report, error) {
	var filter *models.ReportStatus
	if status != "" {
		st := models.ReportStatus(status)
		if !models.ValidReportStatus(st) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid report status filter")
		}
		filter = &st
	}

	reports, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

// ListMine returns the caller's own reports, newest first.
func (s *ReportService) ListMine(ctx context.Context, userID string) ([]models.Report, error) {
	reports, err := s.reports.ListByReporter(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
