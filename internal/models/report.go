package models

import "time"

// ReportStatus is the lifecycle state of a suspicion report. Transitions are
// administrator-driven and unrestricted: any state may move to any other.
type ReportStatus string

const (
	ReportStatusPending       ReportStatus = "pending"
	ReportStatusInvestigating ReportStatus = "investigating"
	ReportStatusResolved      ReportStatus = "resolved"
	ReportStatusRejected      ReportStatus = "rejected"
)

// ValidReportStatus reports whether s is a known lifecycle state.
func ValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportStatusPending, ReportStatusInvestigating, ReportStatusResolved, ReportStatusRejected:
		return true
	}
	return false
}

// Defaults applied when a reporter leaves optional detail blank. Reports are
// never rejected for missing optional detail.
const (
	DefaultSuspectedIssue    = "other"
	DefaultReportDescription = "No additional details provided"
)

// Report is a mutable case record filed by a user or anonymously. The
// free-text registration/batch fields are kept even when the report could not
// be linked to a registry entry, for manual investigator follow-up.
type Report struct {
	ID                 string       `db:"id" json:"id"`
	ReporterID         *string      `db:"reporter_id" json:"reporter_id,omitempty"`
	DrugID             *string      `db:"drug_id" json:"drug_id,omitempty"`
	BatchNumber        *string      `db:"batch_number" json:"batch_number,omitempty"`
	RegistrationNumber *string      `db:"registration_number" json:"registration_number,omitempty"`
	ProductName        *string      `db:"product_name" json:"product_name,omitempty"`
	Manufacturer       *string      `db:"manufacturer" json:"manufacturer,omitempty"`
	SuspectedIssue     string       `db:"suspected_issue" json:"suspected_issue"`
	Description        string       `db:"description" json:"description"`
	ReporterContact    *string      `db:"reporter_contact" json:"reporter_contact,omitempty"`
	PurchaseLocation   *string      `db:"purchase_location" json:"purchase_location,omitempty"`
	Status             ReportStatus `db:"status" json:"status"`
	IPAddress          string       `db:"ip_address" json:"ip_address,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
}
