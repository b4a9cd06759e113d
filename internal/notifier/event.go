package notifier

import (
	"fmt"
	"time"

	"github.com/noah-isme/medverify-api/internal/models"
)

// EventType tags the wire format consumed by the admin dashboard.
type EventType string

const (
	EventTypeVerification EventType = "verification"
	EventTypeReport       EventType = "report"
)

// Event is a transient domain notification pushed to connected admin
// sessions. It carries enough denormalized detail to be rendered without a
// follow-up query; it is never persisted and never replayed.
type Event struct {
	Type               EventType `json:"type"`
	Title              string    `json:"title"`
	Message            string    `json:"message"`
	Timestamp          time.Time `json:"timestamp"`
	Status             string    `json:"status,omitempty"`
	RegistrationNumber string    `json:"registrationNumber,omitempty"`
	ProductName        string    `json:"productName,omitempty"`
	BatchNumber        string    `json:"batchNumber,omitempty"`
}

// NewVerificationEvent describes a freshly persisted verification.
func NewVerificationEvent(drug *models.Drug, verification *models.Verification, batchNumber string) Event {
	return Event{
		Type:               EventTypeVerification,
		Title:              "New Drug Verification",
		Message:            fmt.Sprintf("Registration number %s (%s) was verified", drug.RegistrationNumber, drug.ProductName),
		Timestamp:          time.Now().UTC(),
		Status:             string(verification.Status),
		RegistrationNumber: drug.RegistrationNumber,
		ProductName:        drug.ProductName,
		BatchNumber:        batchNumber,
	}
}

// NewReportCreatedEvent describes a newly submitted suspicion report. The
// drug is nil when the report could not be linked to a registry entry.
func NewReportCreatedEvent(report *models.Report, drug *models.Drug) Event {
	message := "A user reported suspicious activity"
	if drug != nil {
		message += fmt.Sprintf(" for %s (registration number %s)", drug.ProductName, drug.RegistrationNumber)
	}

	evt := Event{
		Type:      EventTypeReport,
		Title:     "New Drug Report Submitted",
		Message:   message,
		Timestamp: time.Now().UTC(),
		Status:    string(models.ReportStatusPending),
	}
	if report.RegistrationNumber != nil {
		evt.RegistrationNumber = *report.RegistrationNumber
	}
	if report.ProductName != nil {
		evt.ProductName = *report.ProductName
	}
	if report.BatchNumber != nil {
		evt.BatchNumber = *report.BatchNumber
	}
	return evt
}

// NewReportStatusChangedEvent describes an administrator triage decision.
func NewReportStatusChangedEvent(report *models.Report, oldStatus, newStatus models.ReportStatus) Event {
	evt := Event{
		Type:      EventTypeReport,
		Title:     "Report Status Updated",
		Message:   fmt.Sprintf("Report #%s status changed from %q to %q", report.ID, oldStatus, newStatus),
		Timestamp: time.Now().UTC(),
		Status:    string(newStatus),
	}
	if report.RegistrationNumber != nil {
		evt.RegistrationNumber = *report.RegistrationNumber
	}
	if report.ProductName != nil {
		evt.ProductName = *report.ProductName
	}
	return evt
}

// SampleEvent is the fallback "recent activity" seed shown to a newly
// connected administrator when no real activity is cached, so the dashboard
// never starts empty.
func SampleEvent() Event {
	return Event{
		Type:               EventTypeVerification,
		Title:              "Recent Drug Verification",
		Message:            "A user verified Paracetamol with registration number A11-0591",
		Timestamp:          time.Now().UTC().Add(-15 * time.Minute),
		Status:             string(models.DrugStatusGenuine),
		RegistrationNumber: "A11-0591",
		ProductName:        "Paracetamol",
	}
}
