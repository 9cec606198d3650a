package taxexport

import (
	"fmt"

	"github.com/gigledger/taxexport/internal/models"
	"github.com/gigledger/taxexport/pkg/utils"
)

// Issue codes produced by the pre-pass.
const (
	IssueMissingCategory  = "MISSING_CATEGORY"
	IssueNegativeAmount   = "NEGATIVE_AMOUNT"
	IssueInvalidDate      = "INVALID_DATE"
	IssueMissingPayer     = "MISSING_PAYER"
	IssueMissingPayerTax  = "MISSING_PAYER_TAX_ID"
	IssueMissingMealsPct  = "MISSING_MEALS_PERCENT"
	IssueMissingTripField = "MISSING_TRIP_FIELD"
	IssueMalformedTaxID   = "MALFORMED_TAX_ID"
)

// ValidationIssue is one finding against one raw row.
type ValidationIssue struct {
	Code    string `json:"code"`
	RowType string `json:"row_type"`
	RowID   string `json:"row_id"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResult is the advisory output of the pre-pass. Blocking errors
// gate only the strict tax-software formats (TXF); CSV and Excel remain
// available since a human reviews those before filing.
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationIssue `json:"errors"`
	Warnings []ValidationIssue `json:"warnings"`
	Summary  string            `json:"summary"`
}

// Validator runs row-level checks ahead of (or alongside) the builder. It
// never mutates rows and never blocks package construction.
type Validator struct {
	cfg ExportConfig
}

// NewValidator creates a validator with the same config the builder uses.
func NewValidator(cfg ExportConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate inspects every raw row and collects blocking errors and advisory
// warnings. Rows are visited in input order; the result is deterministic for
// a fixed snapshot.
func (v *Validator) Validate(rows RawRows) *ValidationResult {
	result := &ValidationResult{}

	for _, gig := range rows.Gigs {
		if gig.BaseAmount < 0 || gig.Tips < 0 || gig.Fees < 0 {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueNegativeAmount,
				RowType: "gig",
				RowID:   gig.ID,
				Field:   "amount",
				Message: "gig amounts must not be negative",
			})
		}
		if gig.Date.IsZero() {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueInvalidDate,
				RowType: "gig",
				RowID:   gig.ID,
				Field:   "date",
				Message: "gig has no date",
			})
		}
		if gig.Paid {
			if gig.PayerName == "" && gig.PayerID == "" {
				result.Warnings = append(result.Warnings, ValidationIssue{
					Code:    IssueMissingPayer,
					RowType: "gig",
					RowID:   gig.ID,
					Field:   "payer_name",
					Message: "paid gig has no payer; 1099 reconciliation will list it under an unknown payer",
				})
			} else if payerTaxID(rows.Payers, gig.PayerID) == "" {
				result.Warnings = append(result.Warnings, ValidationIssue{
					Code:    IssueMissingPayerTax,
					RowType: "gig",
					RowID:   gig.ID,
					Field:   "payer_tax_id",
					Message: "payer has no tax ID on record",
				})
			}
		}
	}

	for _, e := range rows.Expenses {
		if e.Category == "" {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueMissingCategory,
				RowType: "expense",
				RowID:   e.ID,
				Field:   "category",
				Message: "expense has no category and cannot be mapped to a tax line",
			})
		}
		if e.Amount < 0 {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueNegativeAmount,
				RowType: "expense",
				RowID:   e.ID,
				Field:   "amount",
				Message: "expense amount must not be negative",
			})
		}
		if e.Date.IsZero() {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueInvalidDate,
				RowType: "expense",
				RowID:   e.ID,
				Field:   "date",
				Message: "expense has no date",
			})
		}
		if ParseCategory(e.Category) == CategoryMeals && e.DeductiblePercent == nil {
			result.Warnings = append(result.Warnings, ValidationIssue{
				Code:    IssueMissingMealsPct,
				RowType: "expense",
				RowID:   e.ID,
				Field:   "deductible_percent",
				Message: fmt.Sprintf("meals expense has no deduction percentage; %.0f%% will be applied", v.cfg.DefaultMealsPercent*100),
			})
		}
	}

	for _, trip := range rows.MileageTrips {
		if trip.Miles < 0 {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueNegativeAmount,
				RowType: "mileage",
				RowID:   trip.ID,
				Field:   "miles",
				Message: "mileage must not be negative",
			})
		}
		if trip.Date.IsZero() {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueInvalidDate,
				RowType: "mileage",
				RowID:   trip.ID,
				Field:   "date",
				Message: "mileage trip has no date",
			})
		}
		for _, check := range []struct {
			field string
			value string
		}{
			{"purpose", trip.Purpose},
			{"origin", trip.Origin},
			{"destination", trip.Destination},
		} {
			field, value := check.field, check.value
			if value == "" {
				result.Warnings = append(result.Warnings, ValidationIssue{
					Code:    IssueMissingTripField,
					RowType: "mileage",
					RowID:   trip.ID,
					Field:   field,
					Message: fmt.Sprintf("mileage trip is missing %s; audit support will be weaker", field),
				})
			}
		}
	}

	for _, p := range rows.SubcontractorPayouts {
		if p.Amount < 0 {
			result.Errors = append(result.Errors, ValidationIssue{
				Code:    IssueNegativeAmount,
				RowType: "subcontractor_payout",
				RowID:   p.ID,
				Field:   "amount",
				Message: "payout amount must not be negative",
			})
		}
		if p.PayeeTaxID != "" {
			if err := utils.ValidateTaxID(p.PayeeTaxID); err != nil {
				result.Warnings = append(result.Warnings, ValidationIssue{
					Code:    IssueMalformedTaxID,
					RowType: "subcontractor_payout",
					RowID:   p.ID,
					Field:   "payee_tax_id",
					Message: "payee tax ID is not EIN or SSN formatted; a 1099-NEC filed with it will need correction",
				})
			}
		}
	}

	result.IsValid = len(result.Errors) == 0
	result.Summary = fmt.Sprintf("%d blocking error(s), %d warning(s)", len(result.Errors), len(result.Warnings))
	return result
}

func payerTaxID(payers []models.Payer, payerID string) string {
	for _, p := range payers {
		if p.ID == payerID {
			return p.TaxID
		}
	}
	return ""
}
