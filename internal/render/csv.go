package render

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/taxexport"
)

// CSVRenderer writes the per-collection CSV bundle. Every number comes
// straight off the package; no total is recomputed here.
type CSVRenderer struct {
	logger *zap.Logger
}

// NewCSVRenderer creates a CSV renderer.
func NewCSVRenderer(logger *zap.Logger) *CSVRenderer {
	return &CSVRenderer{logger: logger}
}

// RenderBundle produces the full CSV file set keyed by file name.
func (r *CSVRenderer) RenderBundle(pkg *taxexport.TaxExportPackage) (map[string][]byte, error) {
	files := map[string]func(*taxexport.TaxExportPackage) ([][]string, error){
		"schedule_c.csv":    scheduleCRecords,
		"income.csv":        incomeRecords,
		"expenses.csv":      expenseRecords,
		"mileage.csv":       mileageRecords,
		"invoices.csv":      invoiceRecords,
		"payouts.csv":       payoutRecords,
		"payer_summary.csv": payerSummaryRecords,
	}

	bundle := make(map[string][]byte, len(files))
	for name, build := range files {
		records, err := build(pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", name, err)
		}
		data, err := writeCSV(records)
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		bundle[name] = data
	}

	r.logger.Debug("CSV bundle rendered",
		zap.Int("tax_year", pkg.Metadata.TaxYear),
		zap.Int("files", len(bundle)))
	return bundle, nil
}

func writeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func money(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func scheduleCRecords(pkg *taxexport.TaxExportPackage) ([][]string, error) {
	records := [][]string{{"ref_number", "line_name", "description", "raw_signed_amount", "amount_for_entry", "notes"}}
	for _, item := range pkg.ScheduleCLineItems {
		records = append(records, []string{
			item.RefNumber,
			item.LineName,
			item.Description,
			money(item.RawSignedAmount),
			money(item.AmountForEntry),
			item.Notes,
		})
	}
	records = append(records, []string{"", "Net profit", "", money(pkg.ScheduleC.NetProfit), money(pkg.ScheduleC.NetProfit), ""})
	return records, nil
}

func incomeRecords(pkg *taxexport.TaxExportPackage) ([][]string, error) {
	records := [][]string{{"date", "source", "description", "payer", "gross", "tips", "fees", "net", "currency"}}
	for _, row := range pkg.IncomeRows {
		records = append(records, []string{
			day(row.Date),
			row.Source,
			row.Description,
			row.PayerName,
			money(row.Gross),
			money(row.Tips),
			money(row.Fees),
			money(row.Net),
			row.Currency,
		})
	}
	return records, nil
}

func expenseRecords(pkg *taxexport.TaxExportPackage) ([][]string, error) {
	records := [][]string{{"date", "category", "ref_number", "line_name", "description", "amount", "deductible_percent", "deductible_amount", "asset_review", "asset_review_reason", "receipt_url"}}
	for _, row := range pkg.ExpenseRows {
		records = append(records, []string{
			day(row.Date),
			row.Category,
			row.RefNumber,
			row.LineName,
			row.Description,
			money(row.Amount),
			strconv.FormatFloat(row.DeductiblePercent, 'f', -1, 64),
			money(row.DeductibleAmount),
			strconv.FormatBool(row.PotentialAssetReview),
			row.AssetReviewReason,
			row.ReceiptURL,
		})
	}
	return records, nil
}

func mileageRecords(pkg *taxexport.TaxExportPackage) ([][]string, error) {
	records := [][]string{{"date", "miles", "rate", "deduction", "purpose", "origin", "destination", "is_estimate"}}
	for _, row := range pkg.MileageRows {
		records = append(records, []string{
			day(row.Date),
			strconv.FormatFloat(row.Miles, 'f', -1, 64),
			strconv.FormatFloat(row.Rate, 'f', -1, 64),
			money(row.Deduction),
			row.Purpose,
			row.Origin,
			row.Destination,
			strconv.FormatBool(row.IsEstimate),
		})
	}
	s := pkg.MileageSummary
	records = append(records, []string{
		"total",
		strconv.FormatFloat(s.TotalBusinessMiles, 'f', -1, 64),
		strconv.FormatFloat(s.StandardRateUsed, 'f', -1, 64),
		money(s.MileageDeductionAmount),
		s.Notes, "", "",
		strconv.FormatBool(s.IsEstimateAny),
	})
	return records, nil
}

func invoiceRecords(pkg *taxexport.TaxExportPackage) ([][]string, error) {
	records := [][]string{{"number", "client", "issued_at", "amount", "currency", "status"}}
	for _, row := range pkg.InvoiceRows {
		records = append(records, []string{
			row.Number,
			row.ClientName,
			day(row.IssuedAt),
			money(row.Amount),
			row.Currency,
			row.Status,
		})
	}
	return records, nil
}

func payoutRecords(pkg *taxexport.TaxExportPackage) ([][]string, error) {
	records := [][]string{{"date", "payee", "payee_tax_id", "amount", "purpose", "may_need_1099"}}
	for _, row := range pkg.SubcontractorPayoutRows {
		records = append(records, []string{
			day(row.Date),
			row.PayeeName,
			row.PayeeTaxID,
			money(row.Amount),
			row.Purpose,
			strconv.FormatBool(row.May1099Need),
		})
	}
	return records, nil
}

func payerSummaryRecords(pkg *taxexport.TaxExportPackage) ([][]string, error) {
	records := [][]string{{"payer", "payments_count", "gross", "fees", "net", "first_date", "last_date", "notes"}}
	for _, row := range pkg.PayerSummaryRows {
		records = append(records, []string{
			row.PayerName,
			strconv.Itoa(row.PaymentsCount),
			money(row.Gross),
			money(row.Fees),
			money(row.Net),
			day(row.FirstDate),
			day(row.LastDate),
			row.Notes,
		})
	}
	return records, nil
}
