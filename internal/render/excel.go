package render

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/taxexport"
)

// ExcelRenderer produces the review workbook: one sheet per row collection
// plus the Schedule C summary. Like every renderer it reads package fields
// only and never recomputes a total.
type ExcelRenderer struct {
	logger *zap.Logger
}

// NewExcelRenderer creates an Excel renderer.
func NewExcelRenderer(logger *zap.Logger) *ExcelRenderer {
	return &ExcelRenderer{logger: logger}
}

// Render writes the workbook and returns its bytes.
func (r *ExcelRenderer) Render(pkg *taxexport.TaxExportPackage) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := r.writeScheduleC(f, pkg); err != nil {
		return nil, fmt.Errorf("failed to write Schedule C sheet: %w", err)
	}
	if err := r.writeIncome(f, pkg); err != nil {
		return nil, fmt.Errorf("failed to write income sheet: %w", err)
	}
	if err := r.writeExpenses(f, pkg); err != nil {
		return nil, fmt.Errorf("failed to write expenses sheet: %w", err)
	}
	if err := r.writeMileage(f, pkg); err != nil {
		return nil, fmt.Errorf("failed to write mileage sheet: %w", err)
	}
	if err := r.writePayers(f, pkg); err != nil {
		return nil, fmt.Errorf("failed to write payer sheet: %w", err)
	}

	// The default sheet excelize creates is replaced by Schedule C.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		r.logger.Warn("Failed to delete default sheet", zap.Error(err))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}

	r.logger.Debug("Excel workbook rendered",
		zap.Int("tax_year", pkg.Metadata.TaxYear),
		zap.Int("bytes", buf.Len()))
	return buf.Bytes(), nil
}

func (r *ExcelRenderer) writeScheduleC(f *excelize.File, pkg *taxexport.TaxExportPackage) error {
	const sheet = "Schedule C"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	r.setCell(f, sheet, "A1", fmt.Sprintf("Schedule C summary — tax year %d", pkg.Metadata.TaxYear))
	r.setCell(f, sheet, "A2", fmt.Sprintf("Basis: %s, currency: %s, schema %s",
		pkg.Metadata.Basis, pkg.Metadata.Currency, pkg.Metadata.SchemaVersion))

	headers := []string{"Line", "Name", "Description", "Amount for entry", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		r.setCell(f, sheet, cell, h)
	}

	rowIdx := 5
	for _, item := range pkg.ScheduleCLineItems {
		values := []interface{}{item.RefNumber, item.LineName, item.Description, item.AmountForEntry, item.Notes}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			r.setCell(f, sheet, cell, v)
		}
		rowIdx++
	}

	rowIdx++
	r.setCell(f, sheet, fmt.Sprintf("B%d", rowIdx), "Net profit")
	r.setCell(f, sheet, fmt.Sprintf("D%d", rowIdx), pkg.ScheduleC.NetProfit)

	for _, warning := range pkg.ScheduleC.Warnings {
		rowIdx++
		r.setCell(f, sheet, fmt.Sprintf("A%d", rowIdx), "Note: "+warning)
	}
	return nil
}

func (r *ExcelRenderer) writeIncome(f *excelize.File, pkg *taxexport.TaxExportPackage) error {
	const sheet = "Income"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Date", "Source", "Description", "Payer", "Gross", "Tips", "Fees", "Net"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		r.setCell(f, sheet, cell, h)
	}
	for i, row := range pkg.IncomeRows {
		values := []interface{}{day(row.Date), row.Source, row.Description, row.PayerName, row.Gross, row.Tips, row.Fees, row.Net}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			r.setCell(f, sheet, cell, v)
		}
	}
	return nil
}

func (r *ExcelRenderer) writeExpenses(f *excelize.File, pkg *taxexport.TaxExportPackage) error {
	const sheet = "Expenses"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Date", "Category", "Line", "Description", "Amount", "Deductible %", "Deductible", "Asset review"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		r.setCell(f, sheet, cell, h)
	}
	for i, row := range pkg.ExpenseRows {
		review := ""
		if row.PotentialAssetReview {
			review = row.AssetReviewReason
		}
		values := []interface{}{day(row.Date), row.Category, row.RefNumber, row.Description, row.Amount, row.DeductiblePercent, row.DeductibleAmount, review}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			r.setCell(f, sheet, cell, v)
		}
	}
	return nil
}

func (r *ExcelRenderer) writeMileage(f *excelize.File, pkg *taxexport.TaxExportPackage) error {
	const sheet = "Mileage"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Date", "Miles", "Rate", "Deduction", "Purpose", "Origin", "Destination"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		r.setCell(f, sheet, cell, h)
	}
	rowIdx := 2
	for _, row := range pkg.MileageRows {
		values := []interface{}{day(row.Date), row.Miles, row.Rate, row.Deduction, row.Purpose, row.Origin, row.Destination}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			r.setCell(f, sheet, cell, v)
		}
		rowIdx++
	}
	s := pkg.MileageSummary
	r.setCell(f, sheet, fmt.Sprintf("A%d", rowIdx+1), "Total")
	r.setCell(f, sheet, fmt.Sprintf("B%d", rowIdx+1), s.TotalBusinessMiles)
	r.setCell(f, sheet, fmt.Sprintf("D%d", rowIdx+1), s.MileageDeductionAmount)
	if s.Notes != "" {
		r.setCell(f, sheet, fmt.Sprintf("E%d", rowIdx+1), s.Notes)
	}
	return nil
}

func (r *ExcelRenderer) writePayers(f *excelize.File, pkg *taxexport.TaxExportPackage) error {
	const sheet = "Payer Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Payer", "Payments", "Gross", "Fees", "Net", "First", "Last", "Notes"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		r.setCell(f, sheet, cell, h)
	}
	for i, row := range pkg.PayerSummaryRows {
		values := []interface{}{row.PayerName, row.PaymentsCount, row.Gross, row.Fees, row.Net, day(row.FirstDate), day(row.LastDate), row.Notes}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			r.setCell(f, sheet, cell, v)
		}
	}
	return nil
}

func (r *ExcelRenderer) setCell(f *excelize.File, sheet, cell string, value interface{}) {
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		r.logger.Warn("Failed to set cell value",
			zap.String("sheet", sheet),
			zap.String("cell", cell),
			zap.Error(err))
	}
}
