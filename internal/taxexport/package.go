package taxexport

import "time"

// TaxExportPackage is the single canonical artifact every output format is
// rendered from. It is immutable once built: renderers read fields, they
// never recompute rounding, mapping, or totals.
type TaxExportPackage struct {
	Metadata PackageMetadata `json:"metadata"`

	ScheduleC          ScheduleC           `json:"schedule_c"`
	ScheduleCLineItems []ScheduleCLineItem `json:"schedule_c_line_items"`

	IncomeRows             []IncomeRow             `json:"income_rows"`
	ExpenseRows            []ExpenseRow            `json:"expense_rows"`
	MileageRows            []MileageRow            `json:"mileage_rows"`
	InvoiceRows            []InvoiceRow            `json:"invoice_rows"`
	SubcontractorPayoutRows []SubcontractorPayoutRow `json:"subcontractor_payout_rows"`

	PayerSummaryRows []PayerSummaryRow `json:"payer_summary_rows"`
	MileageSummary   MileageSummary    `json:"mileage_summary"`
	ReceiptsManifest []ReceiptRef      `json:"receipts_manifest"`
}

// PackageMetadata records how and when the package was built.
type PackageMetadata struct {
	TaxYear           int       `json:"tax_year"`
	DateStart         time.Time `json:"date_start"`
	DateEnd           time.Time `json:"date_end"`
	CreatedAt         time.Time `json:"created_at"`
	Timezone          string    `json:"timezone"`
	Basis             string    `json:"basis"`
	Currency          string    `json:"currency"`
	RoundingMode      string    `json:"rounding_mode"`
	RoundingPrecision int       `json:"rounding_precision"`
	SchemaVersion     string    `json:"schema_version"`
}

// ScheduleC holds the reconciling top-level totals. The invariant
// NetProfit == round(GrossReceipts - ReturnsAllowances - COGS - sum(ExpenseTotalsByRef) + OtherIncome)
// holds for every built package.
type ScheduleC struct {
	GrossReceipts          float64             `json:"gross_receipts"`
	ReturnsAllowances      float64             `json:"returns_allowances"`
	COGS                   float64             `json:"cogs"`
	OtherIncome            float64             `json:"other_income"`
	ExpenseTotalsByRef     map[string]float64  `json:"expense_totals_by_ref_number"`
	OtherExpensesBreakdown []OtherExpenseEntry `json:"other_expenses_breakdown"`
	NetProfit              float64             `json:"net_profit"`
	Warnings               []string            `json:"warnings"`
}

// ExpensesTotal sums the per-ref deductible totals. Each bucket is already
// rounded, so the sum needs no further rounding.
func (s ScheduleC) ExpensesTotal() float64 {
	total := 0.0
	for _, amount := range s.ExpenseTotalsByRef {
		total += amount
	}
	return RoundCents(total)
}

// OtherExpenseEntry is one itemized bucket inside the Other Expenses line,
// keyed "<app label>: <original category>". Buckets are mutually exclusive
// and sum to ExpenseTotalsByRef[RefOther].
type OtherExpenseEntry struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ScheduleCLineItem is one manual-entry-ready line. RawSignedAmount carries
// the sign used in the net-profit formula; AmountForEntry is always positive
// because tax software expects positive numbers on expense lines.
type ScheduleCLineItem struct {
	RefNumber       string  `json:"ref_number"`
	LineName        string  `json:"line_name"`
	Description     string  `json:"description"`
	RawSignedAmount float64 `json:"raw_signed_amount"`
	AmountForEntry  float64 `json:"amount_for_entry"`
	Notes           string  `json:"notes"`
}

// Income row sources.
const (
	IncomeSourceGig            = "gig"
	IncomeSourceInvoicePayment = "invoice_payment"
)

// IncomeRow is one paid income event. Unpaid gigs never produce a row.
type IncomeRow struct {
	SourceID    string    `json:"source_id"`
	Source      string    `json:"source"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	PayerID     string    `json:"payer_id"`
	PayerName   string    `json:"payer_name"`
	Gross       float64   `json:"gross"`
	Tips        float64   `json:"tips"`
	Fees        float64   `json:"fees"`
	Net         float64   `json:"net"`
	Currency    string    `json:"currency"`
}

// Asset review reasons, mutually exclusive with equipment taking priority.
const (
	AssetReviewReasonEquipment   = "Equipment/gear category: possible depreciable asset"
	AssetReviewReasonLargeAmount = "Amount at or above capitalization threshold: review for depreciation"
)

// ExpenseRow is one expense with its resolved tax line and deductible amount.
type ExpenseRow struct {
	SourceID             string    `json:"source_id"`
	Date                 time.Time `json:"date"`
	Category             string    `json:"category"`
	RefNumber            string    `json:"ref_number"`
	LineName             string    `json:"line_name"`
	Description          string    `json:"description"`
	Amount               float64   `json:"amount"`
	DeductiblePercent    float64   `json:"deductible_percent"`
	DeductibleAmount     float64   `json:"deductible_amount"`
	PotentialAssetReview bool      `json:"potential_asset_review"`
	AssetReviewReason    string    `json:"asset_review_reason,omitempty"`
	ReceiptURL           string    `json:"receipt_url,omitempty"`
}

// MileageRow is one trip under the standard mileage method. Always an
// estimate: the actual-expense method is not supported.
type MileageRow struct {
	SourceID    string    `json:"source_id"`
	Date        time.Time `json:"date"`
	Miles       float64   `json:"miles"`
	Rate        float64   `json:"rate"`
	Deduction   float64   `json:"deduction"`
	Purpose     string    `json:"purpose"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	IsEstimate  bool      `json:"is_estimate"`
}

// InvoiceRow is detail for one issued invoice.
type InvoiceRow struct {
	SourceID   string    `json:"source_id"`
	Number     string    `json:"number"`
	ClientName string    `json:"client_name"`
	IssuedAt   time.Time `json:"issued_at"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Status     string    `json:"status"`
}

// SubcontractorPayoutRow is detail for one payout, with the 1099-NEC
// threshold flag precomputed for downstream renderers.
type SubcontractorPayoutRow struct {
	SourceID    string    `json:"source_id"`
	Date        time.Time `json:"date"`
	PayeeName   string    `json:"payee_name"`
	PayeeTaxID  string    `json:"payee_tax_id,omitempty"`
	Amount      float64   `json:"amount"`
	Purpose     string    `json:"purpose"`
	May1099Need bool      `json:"may_need_1099"`
}

// PayerSummaryRow is a per-payer rollup of gig income, used for 1099
// reconciliation. Invoice payments carry no payer and are excluded.
type PayerSummaryRow struct {
	PayerID       string    `json:"payer_id"`
	PayerName     string    `json:"payer_name"`
	PaymentsCount int       `json:"payments_count"`
	Gross         float64   `json:"gross"`
	Fees          float64   `json:"fees"`
	Net           float64   `json:"net"`
	FirstDate     time.Time `json:"first_date"`
	LastDate      time.Time `json:"last_date"`
	Notes         string    `json:"notes,omitempty"`
}

// MileageSummary rolls up the standard-mileage deduction.
type MileageSummary struct {
	TaxYear                int     `json:"tax_year"`
	TotalBusinessMiles     float64 `json:"total_business_miles"`
	StandardRateUsed       float64 `json:"standard_rate_used"`
	MileageDeductionAmount float64 `json:"mileage_deduction_amount"`
	EntriesCount           int     `json:"entries_count"`
	IsEstimateAny          bool    `json:"is_estimate_any"`
	Notes                  string  `json:"notes,omitempty"`
}

// ReceiptRef points at a stored receipt for audit support.
type ReceiptRef struct {
	TransactionID string `json:"transaction_id"`
	ReceiptURL    string `json:"receipt_url"`
	Kind          string `json:"kind"`
}
