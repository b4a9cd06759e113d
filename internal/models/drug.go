package models

import "time"

// DrugStatus represents the authenticity state of a registered drug.
type DrugStatus string

const (
	DrugStatusGenuine     DrugStatus = "genuine"
	DrugStatusCounterfeit DrugStatus = "counterfeit"
	DrugStatusFlagged     DrugStatus = "flagged"
)

// Placeholder values recorded when an unknown registration number is
// auto-registered during verification.
const (
	UnregisteredProductName  = "Unregistered Drug"
	UnregisteredManufacturer = "Unknown"
	UnregisteredDosageForm   = "Unknown"
)

// Drug represents a registry entry identified by its registration number.
type Drug struct {
	ID                 string     `db:"id" json:"id"`
	RegistrationNumber string     `db:"registration_number" json:"registration_number"`
	ProductName        string     `db:"product_name" json:"product_name"`
	Manufacturer       string     `db:"manufacturer" json:"manufacturer"`
	DosageForm         string     `db:"dosage_form" json:"dosage_form"`
	Strength           string     `db:"strength" json:"strength"`
	Status             DrugStatus `db:"status" json:"status"`
	IsBlacklisted      bool       `db:"is_blacklisted" json:"is_blacklisted"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}
