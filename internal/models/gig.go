package models

import "time"

// Gig represents a single paid (or pending) engagement for a self-employed
// worker: a show, a shift, a freelance job. Amounts are in the reporting
// currency and not yet rounded; rounding happens once, inside the builder.
type Gig struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Date        time.Time  `json:"date"`
	Title       string     `json:"title"`
	Venue       string     `json:"venue"`
	City        string     `json:"city"`
	Notes       string     `json:"notes"`
	PayerID     string     `json:"payer_id"`
	PayerName   string     `json:"payer_name"`
	BaseAmount  float64    `json:"base_amount"`
	Tips        float64    `json:"tips"`
	PerDiem     float64    `json:"per_diem"`
	OtherIncome float64    `json:"other_income"`
	Fees        float64    `json:"fees"`
	Paid        bool       `json:"paid"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	Currency    string     `json:"currency"`
}

// Payer is the counterparty a gig was performed for. Name and tax ID are
// optional in practice, which is why the validator warns on their absence
// for paid gigs (1099 reconciliation needs them).
type Payer struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	TaxID   string `json:"tax_id"`
	Email   string `json:"email"`
}
