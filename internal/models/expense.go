package models

import "time"

// Expense is a standalone business expense row as entered by the user.
// Category is free-form text; the export core maps it to a Schedule C line.
type Expense struct {
	ID                string     `json:"id"`
	OwnerID           string     `json:"owner_id"`
	Date              time.Time  `json:"date"`
	Category          string     `json:"category"`
	Description       string     `json:"description"`
	Amount            float64    `json:"amount"`
	DeductiblePercent *float64   `json:"deductible_percent,omitempty"` // per-row override, e.g. stored meals %
	ReceiptURL        string     `json:"receipt_url"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// MileageTrip is one business trip logged under the standard mileage method.
// Deduction, when present, is a value precomputed at entry time with the
// rate that was current then; the builder preserves it instead of
// recomputing with today's table.
type MileageTrip struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Date        time.Time `json:"date"`
	Miles       float64   `json:"miles"`
	Purpose     string    `json:"purpose"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Deduction   *float64  `json:"deduction,omitempty"`
}
