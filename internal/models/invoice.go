package models

import "time"

// Invoice statuses as stored. Only "paid" invoices have payments behind them.
const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusVoid    = "void"
	InvoiceStatusOverdue = "overdue"
)

// Invoice is a client invoice issued by the owner.
type Invoice struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Number     string     `json:"number"`
	ClientName string     `json:"client_name"`
	IssuedAt   time.Time  `json:"issued_at"`
	DueAt      *time.Time `json:"due_at,omitempty"`
	Amount     float64    `json:"amount"`
	Currency   string     `json:"currency"`
	Status     string     `json:"status"`
}

// InvoicePayment is a payment received against an invoice. Payments are net
// amounts by construction; no processor fee is tracked on them.
type InvoicePayment struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	InvoiceID     string    `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	ClientName    string    `json:"client_name"`
	ReceivedAt    time.Time `json:"received_at"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	Method        string    `json:"method"`
}

// SubcontractorPayout is money the owner paid out to a subcontractor.
// Payouts of $600 or more in a year typically require a 1099-NEC, which is
// why the payee tax ID matters downstream.
type SubcontractorPayout struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Date       time.Time `json:"date"`
	PayeeName  string    `json:"payee_name"`
	PayeeTaxID string    `json:"payee_tax_id"`
	Amount     float64   `json:"amount"`
	Purpose    string    `json:"purpose"`
}
