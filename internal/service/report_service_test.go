package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/medverify-api/internal/models"
	"github.com/noah-isme/medverify-api/internal/notifier"
	appErrors "github.com/noah-isme/medverify-api/pkg/errors"
)

type reportRepoStub struct {
	reports map[string]*models.Report
}

func newReportRepoStub() *reportRepoStub {
	return &reportRepoStub{reports: map[string]*models.Report{}}
}

func (r *reportRepoStub) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	r.reports[report.ID] = report
	return nil
}

func (r *reportRepoStub) FindByID(ctx context.Context, id string) (*models.Report, error) {
	report, ok := r.reports[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *report
	return &copy, nil
}

func (r *reportRepoStub) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) error {
	report, ok := r.reports[id]
	if !ok {
		return sql.ErrNoRows
	}
	report.Status = status
	return nil
}

func (r *reportRepoStub) List(ctx context.Context, status *models.ReportStatus) ([]models.Report, error) {
	var out []models.Report
	for _, report := range r.reports {
		if status != nil && report.Status != *status {
			continue
		}
		out = append(out, *report)
	}
	return out, nil
}

func (r *reportRepoStub) ListByReporter(ctx context.Context, reporterID string) ([]models.Report, error) {
	var out []models.Report
	for _, report := range r.reports {
		if report.ReporterID != nil && *report.ReporterID == reporterID {
			out = append(out, *report)
		}
	}
	return out, nil
}

func newTestReportService(reports *reportRepoStub, drugs *drugRepoStub, verifications *verificationRepoStub, broadcaster *broadcasterStub) *ReportService {
	return NewReportService(ReportDependencies{
		ReportRepo:       reports,
		DrugRepo:         drugs,
		VerificationRepo: verifications,
		Broadcaster:      broadcaster,
	})
}

func TestSubmitReportAppliesDefaults(t *testing.T) {
	reports := newReportRepoStub()
	broadcaster := &broadcasterStub{}
	svc := newTestReportService(reports, newDrugRepoStub(), &verificationRepoStub{}, broadcaster)

	report, err := svc.Submit(context.Background(), SubmitReportRequest{
		ProductName:      "Paracetamol",
		PurchaseLocation: "Corner pharmacy",
	}, RequestMeta{IP: "10.0.0.9"})
	require.NoError(t, err)

	assert.Equal(t, models.DefaultSuspectedIssue, report.SuspectedIssue)
	assert.Equal(t, models.DefaultReportDescription, report.Description)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.Nil(t, report.ReporterID)
	assert.Equal(t, "10.0.0.9", report.IPAddress)

	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, notifier.EventTypeReport, broadcaster.events[0].Type)
	assert.Equal(t, "New Drug Report Submitted", broadcaster.events[0].Title)
}

func TestSubmitReportLinksKnownRegistrationNumber(t *testing.T) {
	drugs := newDrugRepoStub()
	drug := drugs.add(&models.Drug{RegistrationNumber: "A11-0591", ProductName: "Paracetamol", Status: models.DrugStatusGenuine})

	reports := newReportRepoStub()
	svc := newTestReportService(reports, drugs, &verificationRepoStub{}, &broadcasterStub{})

	report, err := svc.Submit(context.Background(), SubmitReportRequest{
		ProductName:        "Paracetamol",
		RegistrationNumber: "A11-0591",
		PurchaseLocation:   "Corner pharmacy",
	}, RequestMeta{})
	require.NoError(t, err)

	require.NotNil(t, report.DrugID)
	assert.Equal(t, drug.ID, *report.DrugID)
}

func TestSubmitReportKeepsUnresolvedNumberAsFreeText(t *testing.T) {
	reports := newReportRepoStub()
	svc := newTestReportService(reports, newDrugRepoStub(), &verificationRepoStub{}, &broadcasterStub{})

	report, err := svc.Submit(context.Background(), SubmitReportRequest{
		ProductName:        "Mystery pills",
		RegistrationNumber: "ZZ-404",
		PurchaseLocation:   "Market stall",
	}, RequestMeta{})
	require.NoError(t, err)

	assert.Nil(t, report.DrugID)
	require.NotNil(t, report.RegistrationNumber)
	assert.Equal(t, "ZZ-404", *report.RegistrationNumber)
}

func TestSubmitReportRequiresProductNameAndLocation(t *testing.T) {
	svc := newTestReportService(newReportRepoStub(), newDrugRepoStub(), &verificationRepoStub{}, &broadcasterStub{})

	_, err := svc.Submit(context.Background(), SubmitReportRequest{ProductName: "Paracetamol"}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestUpdateStatusUnknownReportNotFound(t *testing.T) {
	svc := newTestReportService(newReportRepoStub(), newDrugRepoStub(), &verificationRepoStub{}, &broadcasterStub{})

	_, err := svc.UpdateStatus(context.Background(), uuid.NewString(), UpdateReportStatusRequest{Status: models.ReportStatusResolved}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Status, appErrors.FromError(err).Status)
}

func TestUpdateStatusRejectsUnknownState(t *testing.T) {
	svc := newTestReportService(newReportRepoStub(), newDrugRepoStub(), &verificationRepoStub{}, &broadcasterStub{})

	_, err := svc.UpdateStatus(context.Background(), uuid.NewString(), UpdateReportStatusRequest{Status: "escalated"}, RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Status, appErrors.FromError(err).Status)
}

func TestUpdateStatusEmitsEventOnlyOnChange(t *testing.T) {
	reports := newReportRepoStub()
	report := &models.Report{Status: models.ReportStatusPending}
	require.NoError(t, reports.Create(context.Background(), report))

	broadcaster := &broadcasterStub{}
	svc := newTestReportService(reports, newDrugRepoStub(), &verificationRepoStub{}, broadcaster)

	_, err := svc.UpdateStatus(context.Background(), report.ID, UpdateReportStatusRequest{Status: models.ReportStatusInvestigating}, RequestMeta{})
	require.NoError(t, err)
	require.Len(t, broadcaster.events, 1)
	assert.Equal(t, "Report Status Updated", broadcaster.events[0].Title)

	// same status again: no new event
	_, err = svc.UpdateStatus(context.Background(), report.ID, UpdateReportStatusRequest{Status: models.ReportStatusInvestigating}, RequestMeta{})
	require.NoError(t, err)
	assert.Len(t, broadcaster.events, 1)
}

func TestUpdateStatusFlagCascade(t *testing.T) {
	drugs := newDrugRepoStub()
	drug := drugs.add(&models.Drug{RegistrationNumber: "A11-0591", ProductName: "Paracetamol", Status: models.DrugStatusGenuine})

	reports := newReportRepoStub()
	report := &models.Report{Status: models.ReportStatusPending, DrugID: &drug.ID}
	require.NoError(t, reports.Create(context.Background(), report))

	verifications := &verificationRepoStub{}
	svc := newTestReportService(reports, drugs, verifications, &broadcasterStub{})

	adminID := uuid.NewString()
	_, err := svc.UpdateStatus(context.Background(), report.ID, UpdateReportStatusRequest{
		Status:   models.ReportStatusInvestigating,
		FlagDrug: true,
	}, RequestMeta{UserID: &adminID, IP: "10.0.0.2"})
	require.NoError(t, err)

	flagged, err := drugs.FindByID(context.Background(), drug.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DrugStatusFlagged, flagged.Status)

	require.Len(t, verifications.created, 1)
	assert.Equal(t, models.DrugStatusFlagged, verifications.created[0].Status)
	require.NotNil(t, verifications.created[0].UserID)
	assert.Equal(t, adminID, *verifications.created[0].UserID)
}

func TestUpdateStatusFlagCascadeSwallowsAuditFailure(t *testing.T) {
	drugs := newDrugRepoStub()
	drug := drugs.add(&models.Drug{RegistrationNumber: "A11-0591", ProductName: "Paracetamol", Status: models.DrugStatusCounterfeit})

	reports := newReportRepoStub()
	report := &models.Report{Status: models.ReportStatusPending, DrugID: &drug.ID}
	require.NoError(t, reports.Create(context.Background(), report))

	verifications := &verificationRepoStub{createErr: sql.ErrConnDone}
	svc := newTestReportService(reports, drugs, verifications, &broadcasterStub{})

	adminID := uuid.NewString()
	updated, err := svc.UpdateStatus(context.Background(), report.ID, UpdateReportStatusRequest{
		Status:   models.ReportStatusResolved,
		FlagDrug: true,
	}, RequestMeta{UserID: &adminID})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusResolved, updated.Status)

	// cascade still flags the drug even from a non-genuine prior status
	flagged, err := drugs.FindByID(context.Background(), drug.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DrugStatusFlagged, flagged.Status)
}

func TestListReportsFiltersByStatus(t *testing.T) {
	reports := newReportRepoStub()
	require.NoError(t, reports.Create(context.Background(), &models.Report{Status: models.ReportStatusPending}))
	require.NoError(t, reports.Create(context.Background(), &models.Report{Status: models.ReportStatusResolved}))

	svc := newTestReportService(reports, newDrugRepoStub(), &verificationRepoStub{}, &broadcasterStub{})

	pending, err := svc.List(context.Background(), "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(context.Background(), "bogus")
	require.Error(t, err)
}
