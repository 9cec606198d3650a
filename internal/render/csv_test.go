package render

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/taxexport"
)

func testPackage() *taxexport.TaxExportPackage {
	return &taxexport.TaxExportPackage{
		Metadata: taxexport.PackageMetadata{
			TaxYear:       2024,
			Basis:         "cash",
			Currency:      "USD",
			CreatedAt:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			SchemaVersion: "2024.1",
		},
		ScheduleC: taxexport.ScheduleC{
			GrossReceipts:     1500.00,
			ReturnsAllowances: 25.00,
			ExpenseTotalsByRef: map[string]float64{
				taxexport.RefSupplies: 120.00,
				taxexport.RefOther:    75.00,
			},
			OtherExpensesBreakdown: []taxexport.OtherExpenseEntry{
				{Name: "GigLedger: Llama grooming", Amount: 75.00},
			},
			NetProfit: 1280.00,
			Warnings:  []string{"Mileage deduction assumes the standard mileage rate."},
		},
		ScheduleCLineItems: []taxexport.ScheduleCLineItem{
			{RefNumber: "1", LineName: "Gross receipts or sales", Description: "Gross receipts or sales", RawSignedAmount: 1500.00, AmountForEntry: 1500.00},
			{RefNumber: "22", LineName: "Supplies", Description: "Supplies", RawSignedAmount: -120.00, AmountForEntry: 120.00},
			{RefNumber: "27a", LineName: "Other expenses", Description: "GigLedger: Llama grooming", RawSignedAmount: -75.00, AmountForEntry: 75.00, Notes: "Part of Other expenses (line 27a)"},
		},
		IncomeRows: []taxexport.IncomeRow{
			{SourceID: "gig-1", Source: taxexport.IncomeSourceGig, Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Description: "Private party set", PayerName: "Blue Note LLC", Gross: 580.00, Tips: 80.00, Fees: 25.00, Net: 555.00, Currency: "USD"},
		},
		ExpenseRows: []taxexport.ExpenseRow{
			{SourceID: "exp-1", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Category: "supplies", RefNumber: "22", LineName: "Supplies", Description: "Cables", Amount: 120.00, DeductiblePercent: 1, DeductibleAmount: 120.00},
		},
		MileageRows: []taxexport.MileageRow{
			{SourceID: "mil-1", Date: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), Miles: 100, Rate: 0.67, Deduction: 67.00, IsEstimate: true},
		},
		PayerSummaryRows: []taxexport.PayerSummaryRow{
			{PayerName: "Blue Note LLC", PaymentsCount: 1, Gross: 580.00, Fees: 25.00, Net: 555.00},
		},
		MileageSummary: taxexport.MileageSummary{
			TaxYear: 2024, TotalBusinessMiles: 100, StandardRateUsed: 0.67,
			MileageDeductionAmount: 67.00, EntriesCount: 1, IsEstimateAny: true,
		},
	}
}

func TestCSVRenderer_RenderBundle(t *testing.T) {
	logger := zap.NewNop()
	renderer := NewCSVRenderer(logger)

	bundle, err := renderer.RenderBundle(testPackage())
	require.NoError(t, err)

	t.Run("contains every file", func(t *testing.T) {
		for _, name := range []string{
			"schedule_c.csv", "income.csv", "expenses.csv", "mileage.csv",
			"invoices.csv", "payouts.csv", "payer_summary.csv",
		} {
			assert.Contains(t, bundle, name)
		}
	})

	t.Run("schedule C carries package amounts verbatim", func(t *testing.T) {
		records, err := csv.NewReader(bytes.NewReader(bundle["schedule_c.csv"])).ReadAll()
		require.NoError(t, err)

		// header + 3 line items + net profit
		require.Len(t, records, 5)
		assert.Equal(t, []string{"ref_number", "line_name", "description", "raw_signed_amount", "amount_for_entry", "notes"}, records[0])
		assert.Equal(t, "1500.00", records[1][3])
		assert.Equal(t, "-120.00", records[2][3])
		assert.Equal(t, "120.00", records[2][4])
		assert.Equal(t, "1280.00", records[4][3])
	})

	t.Run("income rows round-trip", func(t *testing.T) {
		records, err := csv.NewReader(bytes.NewReader(bundle["income.csv"])).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "2024-02-10", records[1][0])
		assert.Equal(t, "Private party set", records[1][2])
		assert.Equal(t, "580.00", records[1][4])
	})

	t.Run("mileage sheet ends with the summary row", func(t *testing.T) {
		records, err := csv.NewReader(bytes.NewReader(bundle["mileage.csv"])).ReadAll()
		require.NoError(t, err)
		last := records[len(records)-1]
		assert.Equal(t, "total", last[0])
		assert.Equal(t, "67.00", last[3])
	})

	t.Run("empty collections still produce headers", func(t *testing.T) {
		records, err := csv.NewReader(bytes.NewReader(bundle["invoices.csv"])).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 1)
	})
}
