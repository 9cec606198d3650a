package taxexport

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigledger/taxexport/internal/models"
)

func fixedClockBuilder(cfg ExportConfig) *Builder {
	b := NewBuilder(cfg)
	b.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return b
}

func testOptions() BuildOptions {
	return BuildOptions{
		TaxYear:     2024,
		Timezone:    "America/Chicago",
		Basis:       "cash",
		IncludeTips: true,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testRows() RawRows {
	mealsOverride := 0.5
	precomputed := 20.10
	return RawRows{
		Gigs: []models.Gig{
			{
				ID: "gig-1", OwnerID: "owner-1", Date: date(2024, 2, 10),
				Title: "Private party set", PayerID: "payer-1", PayerName: "Blue Note LLC",
				BaseAmount: 500, Tips: 80, Fees: 25, Paid: true, Currency: "USD",
			},
			{
				ID: "gig-2", OwnerID: "owner-1", Date: date(2024, 5, 3),
				Venue: "Rooftop Lounge", PayerID: "payer-1", PayerName: "Blue Note LLC",
				BaseAmount: 300, PerDiem: 40, Fees: 15, Paid: true, Currency: "USD",
			},
			{
				ID: "gig-3", OwnerID: "owner-1", Date: date(2024, 6, 20),
				City: "Austin", BaseAmount: 250, Paid: true,
			},
			{
				ID: "gig-unpaid", OwnerID: "owner-1", Date: date(2024, 7, 1),
				Title: "Cancelled festival", BaseAmount: 9999, Paid: false, Currency: "USD",
			},
		},
		Expenses: []models.Expense{
			{ID: "exp-1", OwnerID: "owner-1", Date: date(2024, 3, 1), Category: "Supplies", Description: "Cables", Amount: 120},
			{ID: "exp-2", OwnerID: "owner-1", Date: date(2024, 3, 15), Category: "Meals & Entertainment", Description: "Client dinner", Amount: 200, DeductiblePercent: &mealsOverride},
			{ID: "exp-3", OwnerID: "owner-1", Date: date(2024, 4, 2), Category: "Llama grooming", Description: "Novelty act", Amount: 75, ReceiptURL: "https://r.example/llama.pdf"},
			{ID: "exp-4", OwnerID: "owner-1", Date: date(2024, 8, 9), Category: "Software", Description: "DAW subscription", Amount: 180},
		},
		MileageTrips: []models.MileageTrip{
			{ID: "mil-1", OwnerID: "owner-1", Date: date(2024, 2, 10), Miles: 100, Purpose: "Gig travel", Origin: "Home", Destination: "Venue"},
			{ID: "mil-2", OwnerID: "owner-1", Date: date(2024, 5, 3), Miles: 30, Deduction: &precomputed},
		},
		Invoices: []models.Invoice{
			{ID: "inv-1", OwnerID: "owner-1", Number: "2024-001", ClientName: "Acme Corp", IssuedAt: date(2024, 1, 15), Amount: 1200, Currency: "USD", Status: models.InvoiceStatusPaid},
		},
		InvoicePayments: []models.InvoicePayment{
			{ID: "pay-1", OwnerID: "owner-1", InvoiceID: "inv-1", InvoiceNumber: "2024-001", ClientName: "Acme Corp", ReceivedAt: date(2024, 2, 1), Amount: 1200, Currency: "USD"},
		},
		SubcontractorPayouts: []models.SubcontractorPayout{
			{ID: "sub-1", OwnerID: "owner-1", Date: date(2024, 6, 1), PayeeName: "Dana Keys", Amount: 400, Purpose: "Session keys"},
			{ID: "sub-2", OwnerID: "owner-1", Date: date(2024, 9, 1), PayeeName: "Dana Keys", Amount: 350, Purpose: "Session keys"},
		},
		Payers: []models.Payer{
			{ID: "payer-1", OwnerID: "owner-1", Name: "Blue Note LLC", TaxID: "12-3456789"},
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	cfg := DefaultExportConfig()

	t.Run("builds a reconciling package", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		sc := pkg.ScheduleC
		// gig-1: 500+80 = 580; gig-2: 300+40 = 340; gig-3: 250; payment: 1200
		assert.Equal(t, 2370.00, sc.GrossReceipts)
		// fees not taken as deduction by default
		assert.Equal(t, 40.00, sc.ReturnsAllowances)

		expensesTotal := sc.ExpensesTotal()
		assert.Equal(t, sc.NetProfit, RoundCents(sc.GrossReceipts-sc.ReturnsAllowances-sc.COGS-expensesTotal+sc.OtherIncome))
	})

	t.Run("is deterministic", func(t *testing.T) {
		b := fixedClockBuilder(cfg)

		first, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)
		second, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		firstJSON, err := json.Marshal(first)
		require.NoError(t, err)
		secondJSON, err := json.Marshal(second)
		require.NoError(t, err)
		assert.Equal(t, firstJSON, secondJSON)
	})

	t.Run("excludes unpaid gigs entirely", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		for _, row := range pkg.IncomeRows {
			assert.NotEqual(t, "gig-unpaid", row.SourceID)
		}
		assert.Len(t, pkg.IncomeRows, 4) // 3 paid gigs + 1 invoice payment
	})

	t.Run("resolves income descriptions by priority", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		byID := make(map[string]IncomeRow)
		for _, row := range pkg.IncomeRows {
			byID[row.SourceID] = row
		}
		assert.Equal(t, "Private party set", byID["gig-1"].Description)
		assert.Equal(t, "Rooftop Lounge", byID["gig-2"].Description)
		assert.Equal(t, "Gig in Austin", byID["gig-3"].Description)
		assert.Equal(t, "Invoice 2024-001 — Acme Corp", byID["pay-1"].Description)
	})

	t.Run("invoice payments carry no fees", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		for _, row := range pkg.IncomeRows {
			if row.Source == IncomeSourceInvoicePayment {
				assert.Equal(t, 0.0, row.Fees)
				assert.Equal(t, row.Gross, row.Net)
			}
		}
	})

	t.Run("tips are excluded when the option is off", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		opts := testOptions()
		opts.IncludeTips = false

		pkg, err := b.Build(testRows(), opts)
		require.NoError(t, err)
		// 500 + 340 + 250 + 1200, without the 80 in tips
		assert.Equal(t, 2290.00, pkg.ScheduleC.GrossReceipts)
	})

	t.Run("meals default limitation applies and warns", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		rows := RawRows{
			Expenses: []models.Expense{
				{ID: "meal-1", Date: date(2024, 3, 1), Category: "Meals & Entertainment", Amount: 200},
			},
		}

		pkg, err := b.Build(rows, testOptions())
		require.NoError(t, err)
		require.Len(t, pkg.ExpenseRows, 1)
		assert.Equal(t, 100.00, pkg.ExpenseRows[0].DeductibleAmount)
		assert.Equal(t, 0.5, pkg.ExpenseRows[0].DeductiblePercent)

		found := false
		for _, w := range pkg.ScheduleC.Warnings {
			if strings.Contains(w, "Meals") && strings.Contains(w, "50%") {
				found = true
			}
		}
		assert.True(t, found, "expected a meals limitation warning, got %v", pkg.ScheduleC.Warnings)
	})

	t.Run("mileage default rate for 2024", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		rows := RawRows{
			MileageTrips: []models.MileageTrip{
				{ID: "mil-1", Date: date(2024, 2, 1), Miles: 100},
			},
		}

		pkg, err := b.Build(rows, testOptions())
		require.NoError(t, err)
		require.Len(t, pkg.MileageRows, 1)
		assert.Equal(t, 67.00, pkg.MileageRows[0].Deduction)
		assert.True(t, pkg.MileageRows[0].IsEstimate)
		assert.Equal(t, 67.00, pkg.ScheduleC.ExpenseTotalsByRef[RefCarTruck])
		assert.True(t, pkg.MileageSummary.IsEstimateAny)
		assert.NotEmpty(t, pkg.ScheduleC.Warnings)
	})

	t.Run("precomputed mileage deductions are preserved", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		byID := make(map[string]MileageRow)
		for _, row := range pkg.MileageRows {
			byID[row.SourceID] = row
		}
		assert.Equal(t, 20.10, byID["mil-2"].Deduction)
		assert.Equal(t, 67.00, byID["mil-1"].Deduction)
		assert.Equal(t, 87.10, pkg.MileageSummary.MileageDeductionAmount)
		assert.Equal(t, 130.0, pkg.MileageSummary.TotalBusinessMiles)
	})

	t.Run("currency gate aborts the whole build", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		rows := testRows()
		rows.InvoicePayments = append(rows.InvoicePayments, models.InvoicePayment{
			ID: "pay-eur", InvoiceID: "inv-1", ReceivedAt: date(2024, 3, 1), Amount: 100, Currency: "EUR",
		})

		pkg, err := b.Build(rows, testOptions())
		assert.Nil(t, pkg)
		require.Error(t, err)
		assert.Equal(t, CodeNonUSDCurrency, CodeOf(err))
		assert.ErrorIs(t, err, ErrNonUSDCurrency)
	})

	t.Run("non-cash basis is rejected", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		opts := testOptions()
		opts.Basis = "accrual"

		pkg, err := b.Build(testRows(), opts)
		assert.Nil(t, pkg)
		require.Error(t, err)
		assert.Equal(t, CodeUnsupported, CodeOf(err))
	})

	t.Run("fee treatment is exclusive", func(t *testing.T) {
		b := fixedClockBuilder(cfg)

		asReturns, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)
		assert.Equal(t, 40.00, asReturns.ScheduleC.ReturnsAllowances)
		assert.Equal(t, 0.0, asReturns.ScheduleC.ExpenseTotalsByRef[RefCommissionsFees])

		opts := testOptions()
		opts.IncludeFeesAsDeduction = true
		asDeduction, err := b.Build(testRows(), opts)
		require.NoError(t, err)
		assert.Equal(t, 0.0, asDeduction.ScheduleC.ReturnsAllowances)
		assert.Equal(t, 40.00, asDeduction.ScheduleC.ExpenseTotalsByRef[RefCommissionsFees])

		// Net profit is identical either way.
		assert.Equal(t, asReturns.ScheduleC.NetProfit, asDeduction.ScheduleC.NetProfit)
	})

	t.Run("asset review flags", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		rows := RawRows{
			Expenses: []models.Expense{
				{ID: "gear", Date: date(2024, 1, 5), Category: "Equipment/Gear", Amount: 45},
				{ID: "big", Date: date(2024, 1, 6), Category: "Supplies", Amount: 3000},
				{ID: "small", Date: date(2024, 1, 7), Category: "Supplies", Amount: 100},
			},
		}

		pkg, err := b.Build(rows, testOptions())
		require.NoError(t, err)

		byID := make(map[string]ExpenseRow)
		for _, row := range pkg.ExpenseRows {
			byID[row.SourceID] = row
		}
		assert.True(t, byID["gear"].PotentialAssetReview)
		assert.Equal(t, AssetReviewReasonEquipment, byID["gear"].AssetReviewReason)
		assert.True(t, byID["big"].PotentialAssetReview)
		assert.Equal(t, AssetReviewReasonLargeAmount, byID["big"].AssetReviewReason)
		assert.False(t, byID["small"].PotentialAssetReview)
		assert.Empty(t, byID["small"].AssetReviewReason)
	})

	t.Run("other expenses breakdown reconciles with its total", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		sc := pkg.ScheduleC
		require.NotEmpty(t, sc.OtherExpensesBreakdown)

		var sum float64
		for _, entry := range sc.OtherExpensesBreakdown {
			sum += entry.Amount
		}
		assert.Equal(t, sc.ExpenseTotalsByRef[RefOther], RoundCents(sum))

		names := make(map[string]bool)
		for _, entry := range sc.OtherExpensesBreakdown {
			names[entry.Name] = true
		}
		assert.True(t, names["GigLedger: Llama grooming"])
		assert.True(t, names["GigLedger: Software & subscriptions"])
	})

	t.Run("payer summaries roll up gig income", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		require.Len(t, pkg.PayerSummaryRows, 2)

		blueNote := pkg.PayerSummaryRows[0]
		assert.Equal(t, "Blue Note LLC", blueNote.PayerName)
		assert.Equal(t, 2, blueNote.PaymentsCount)
		assert.Equal(t, 920.00, blueNote.Gross)
		assert.Equal(t, 40.00, blueNote.Fees)
		assert.Equal(t, 880.00, blueNote.Net)
		assert.Equal(t, date(2024, 2, 10), blueNote.FirstDate)
		assert.Equal(t, date(2024, 5, 3), blueNote.LastDate)

		unknown := pkg.PayerSummaryRows[1]
		assert.Equal(t, "Unknown payer", unknown.PayerName)
		assert.Equal(t, 1, unknown.PaymentsCount)
		assert.NotEmpty(t, unknown.Notes)
	})

	t.Run("line items carry entry-ready signs", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		require.NotEmpty(t, pkg.ScheduleCLineItems)
		assert.Equal(t, RefGrossReceipts, pkg.ScheduleCLineItems[0].RefNumber)
		assert.Equal(t, pkg.ScheduleC.GrossReceipts, pkg.ScheduleCLineItems[0].RawSignedAmount)

		breakdownLines := 0
		for _, item := range pkg.ScheduleCLineItems {
			assert.True(t, item.AmountForEntry > 0, "line %s/%s must have a positive entry amount", item.RefNumber, item.Description)
			if item.Notes != "" {
				breakdownLines++
				assert.Contains(t, item.Notes, "Part of Other expenses")
				assert.True(t, item.RawSignedAmount < 0)
			}
		}
		assert.Equal(t, len(pkg.ScheduleC.OtherExpensesBreakdown), breakdownLines)
	})

	t.Run("expense line items are negative raw, positive entry", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		for _, item := range pkg.ScheduleCLineItems {
			switch item.RefNumber {
			case RefGrossReceipts, RefReturnsAllowances, RefCOGS, RefOtherIncome:
				assert.True(t, item.RawSignedAmount > 0)
			default:
				assert.True(t, item.RawSignedAmount < 0, "expense line %s", item.RefNumber)
			}
		}
	})

	t.Run("receipts manifest lists expense receipts", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		require.Len(t, pkg.ReceiptsManifest, 1)
		assert.Equal(t, "exp-3", pkg.ReceiptsManifest[0].TransactionID)
		assert.Equal(t, "expense", pkg.ReceiptsManifest[0].Kind)
	})

	t.Run("subcontractor payouts carry the 1099 flag", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		require.Len(t, pkg.SubcontractorPayoutRows, 2)
		// Dana Keys totals 750 for the year, above the 600 threshold.
		for _, row := range pkg.SubcontractorPayoutRows {
			assert.True(t, row.May1099Need)
		}
	})

	t.Run("metadata records rounding and basis", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		pkg, err := b.Build(testRows(), testOptions())
		require.NoError(t, err)

		md := pkg.Metadata
		assert.Equal(t, 2024, md.TaxYear)
		assert.Equal(t, "cash", md.Basis)
		assert.Equal(t, "USD", md.Currency)
		assert.Equal(t, RoundingMode, md.RoundingMode)
		assert.Equal(t, 2, md.RoundingPrecision)
		assert.Equal(t, "America/Chicago", md.Timezone)
		assert.Equal(t, date(2024, 1, 1), md.DateStart)
	})

	t.Run("future tax year falls back to latest mileage rate", func(t *testing.T) {
		b := fixedClockBuilder(cfg)
		opts := testOptions()
		opts.TaxYear = 2030
		rows := RawRows{
			MileageTrips: []models.MileageTrip{{ID: "mil-1", Date: date(2030, 2, 1), Miles: 10}},
		}

		pkg, err := b.Build(rows, opts)
		require.NoError(t, err)
		assert.Equal(t, 0.70, pkg.MileageSummary.StandardRateUsed)
		assert.Contains(t, pkg.MileageSummary.Notes, "most recent known rate")
	})
}
