package models

import "time"

// Verification is an immutable audit record of a single verification request.
// Rows are only ever inserted, never updated or deleted.
//
// A verification returned from the degraded unknown-number path carries a
// locally generated ID and is not persisted; such results cannot be retrieved
// later.
type Verification struct {
	ID        string     `db:"id" json:"id"`
	DrugID    *string    `db:"drug_id" json:"drug_id,omitempty"`
	BatchID   *string    `db:"batch_id" json:"batch_id,omitempty"`
	UserID    *string    `db:"user_id" json:"user_id,omitempty"`
	Status    DrugStatus `db:"status" json:"status"`
	IPAddress string     `db:"ip_address" json:"ip_address,omitempty"`
	Location  string     `db:"location" json:"location,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
