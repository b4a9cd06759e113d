package models

import "time"

// RecentActivity is a denormalized snapshot of the latest verification,
// cached so a newly connected administrator can be shown real activity
// instead of a canned sample.
type RecentActivity struct {
	RegistrationNumber string     `json:"registration_number"`
	ProductName        string     `json:"product_name"`
	Status             DrugStatus `json:"status"`
	VerifiedAt         time.Time  `json:"verified_at"`
}
