package models

import "time"

// Export statuses. A completed export always has a package; a failed one
// only has the error recorded by the service.
const (
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// Export is a persisted export run: the canonical package serialized as
// JSON plus the validation result that accompanied it. Renderers read the
// stored package so re-downloads never recompute totals.
type Export struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	TaxYear        int       `json:"tax_year"`
	Status         string    `json:"status"`
	IsValid        bool      `json:"is_valid"`
	PackageJSON    []byte    `json:"-"`
	ValidationJSON []byte    `json:"-"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
