package models

import "time"

// Batch represents a manufacturing lot of a drug. Batch numbers are unique
// per drug, not globally.
type Batch struct {
	ID              string    `db:"id" json:"id"`
	DrugID          string    `db:"drug_id" json:"drug_id"`
	BatchNumber     string    `db:"batch_number" json:"batch_number"`
	ManufactureDate string    `db:"manufacture_date" json:"manufacture_date"`
	ExpiryDate      string    `db:"expiry_date" json:"expiry_date"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}
