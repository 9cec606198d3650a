package taxexport

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gigledger/taxexport/internal/models"
)

// RawRows is the fixed snapshot of rows the builder aggregates. The fetch
// that produces it (scoped to one owner and one date range) is the caller's
// concern; the builder assumes it has already completed.
type RawRows struct {
	Gigs                 []models.Gig
	Expenses             []models.Expense
	MileageTrips         []models.MileageTrip
	Invoices             []models.Invoice
	InvoicePayments      []models.InvoicePayment
	SubcontractorPayouts []models.SubcontractorPayout
	Payers               []models.Payer
}

// BuildOptions selects the year, window, and the two per-request toggles.
// Callers needing a different year or toggle combination request a new
// package; a built package is never mutated.
type BuildOptions struct {
	TaxYear                int
	DateStart              time.Time
	DateEnd                time.Time
	Timezone               string
	Basis                  string
	IncludeTips            bool
	IncludeFeesAsDeduction bool
}

// payout threshold above which a 1099-NEC is typically required per payee.
const payout1099Threshold = 600

// Builder assembles a TaxExportPackage from raw rows. Build is a pure
// function over its inputs: no shared state, safe for concurrent use.
type Builder struct {
	cfg    ExportConfig
	mapper *CategoryMapper
	now    func() time.Time
}

// NewBuilder creates a builder with the given constant tables.
func NewBuilder(cfg ExportConfig) *Builder {
	return &Builder{
		cfg:    cfg,
		mapper: NewCategoryMapper(cfg.DefaultMealsPercent),
		now:    time.Now,
	}
}

// Build aggregates rows into a single internally-consistent package.
// Any currency or basis violation aborts the whole build; there is no
// partial package, because a degraded package would misstate tax totals.
func (b *Builder) Build(rows RawRows, opts BuildOptions) (*TaxExportPackage, error) {
	if opts.Basis != "" && opts.Basis != b.cfg.Basis {
		return nil, NewExportError(CodeUnsupported, ErrUnsupportedBasis,
			"accounting basis %q is not supported, only %q", opts.Basis, b.cfg.Basis)
	}

	if err := b.checkCurrencies(rows); err != nil {
		return nil, err
	}

	pkg := &TaxExportPackage{
		Metadata: b.buildMetadata(opts),
	}

	sc := ScheduleC{
		ExpenseTotalsByRef: make(map[string]float64),
	}

	// Income from paid gigs. Unpaid gigs are excluded entirely, not zeroed.
	gigs := sortedGigs(rows.Gigs)
	var grossReceipts, gigFees float64
	for _, gig := range gigs {
		if !gig.Paid {
			continue
		}
		row := b.buildGigIncomeRow(gig, opts)
		pkg.IncomeRows = append(pkg.IncomeRows, row)
		grossReceipts += row.Gross
		gigFees += row.Fees
	}

	// Income from invoice payments. Payments are net by construction, so no
	// fee is assumed.
	payments := sortedPayments(rows.InvoicePayments)
	for _, p := range payments {
		row := IncomeRow{
			SourceID:    p.ID,
			Source:      IncomeSourceInvoicePayment,
			Date:        p.ReceivedAt,
			Description: paymentDescription(p),
			Gross:       RoundCents(p.Amount),
			Net:         RoundCents(p.Amount),
			Currency:    b.currencyOf(p.Currency),
		}
		pkg.IncomeRows = append(pkg.IncomeRows, row)
		grossReceipts += row.Gross
	}

	// Expenses: map each category to its tax line, apply the deductible
	// fraction, and flag depreciation candidates.
	expenses := sortedExpenses(rows.Expenses)
	otherBuckets := make(map[string]float64)
	refTotals := make(map[string]float64)
	mealsLimited := false
	for _, e := range expenses {
		row, mapping := b.buildExpenseRow(e)
		pkg.ExpenseRows = append(pkg.ExpenseRows, row)

		if row.RefNumber == RefOther {
			key := FormatOtherBucketKey(b.cfg.AppLabel, mapping.OtherDescription)
			otherBuckets[key] += row.DeductibleAmount
		} else {
			refTotals[row.RefNumber] += row.DeductibleAmount
		}

		if row.Category == string(CategoryMeals) && row.DeductiblePercent != 1.0 {
			mealsLimited = true
		}

		if e.ReceiptURL != "" {
			pkg.ReceiptsManifest = append(pkg.ReceiptsManifest, ReceiptRef{
				TransactionID: e.ID,
				ReceiptURL:    e.ReceiptURL,
				Kind:          "expense",
			})
		}
	}

	// Mileage under the standard mileage method.
	trips := sortedTrips(rows.MileageTrips)
	rate, rateExact := b.cfg.MileageRates.RateForYear(opts.TaxYear)
	var totalMiles, mileageTotal float64
	for _, trip := range trips {
		row := buildMileageRow(trip, rate)
		pkg.MileageRows = append(pkg.MileageRows, row)
		totalMiles += row.Miles
		mileageTotal += row.Deduction
	}
	mileageTotal = RoundCents(mileageTotal)

	if mileageTotal != 0 {
		refTotals[RefCarTruck] += mileageTotal
		sc.Warnings = append(sc.Warnings, fmt.Sprintf(
			"Mileage deduction of %.2f assumes the standard mileage rate (%.3f/mile for %d); actual vehicle expenses are not included.",
			mileageTotal, rate, opts.TaxYear))
	}
	if mealsLimited {
		sc.Warnings = append(sc.Warnings, fmt.Sprintf(
			"Meals expenses were limited to %.0f%% deductibility; verify any rows that qualify for a higher percentage.",
			b.cfg.DefaultMealsPercent*100))
	}

	// Fee treatment is exclusive: either fees become a dedicated deduction
	// line, or they populate returns and allowances. Never both.
	gigFees = RoundCents(gigFees)
	if opts.IncludeFeesAsDeduction {
		if gigFees != 0 {
			refTotals[RefCommissionsFees] += gigFees
		}
		sc.ReturnsAllowances = 0
	} else {
		sc.ReturnsAllowances = gigFees
	}

	// Freeze per-ref totals. The Other Expenses total is derived from its
	// breakdown entries so the two reconcile exactly.
	for ref, amount := range refTotals {
		rounded := RoundCents(amount)
		if rounded != 0 {
			sc.ExpenseTotalsByRef[ref] = rounded
		}
	}
	sc.OtherExpensesBreakdown = buildOtherBreakdown(otherBuckets)
	if len(sc.OtherExpensesBreakdown) > 0 {
		var otherTotal float64
		for _, entry := range sc.OtherExpensesBreakdown {
			otherTotal += entry.Amount
		}
		sc.ExpenseTotalsByRef[RefOther] = RoundCents(otherTotal)
	}

	sc.GrossReceipts = RoundCents(grossReceipts)
	sc.COGS = 0
	sc.OtherIncome = 0

	expensesTotal := sc.ExpensesTotal()
	sc.NetProfit = RoundCents(sc.GrossReceipts - sc.ReturnsAllowances - sc.COGS - expensesTotal + sc.OtherIncome)

	pkg.ScheduleC = sc
	pkg.PayerSummaryRows = buildPayerSummaries(pkg.IncomeRows, rows.Payers)
	pkg.MileageSummary = buildMileageSummary(opts.TaxYear, rate, rateExact, totalMiles, mileageTotal, len(pkg.MileageRows))
	pkg.InvoiceRows = buildInvoiceRows(rows.Invoices)
	pkg.SubcontractorPayoutRows = buildPayoutRows(rows.SubcontractorPayouts)
	pkg.ScheduleCLineItems = buildLineItems(sc)

	return pkg, nil
}

// checkCurrencies scans every currency-bearing row before any aggregation.
// A single mismatch fails the whole build.
func (b *Builder) checkCurrencies(rows RawRows) error {
	for _, gig := range rows.Gigs {
		if !b.currencyOK(gig.Currency) {
			return NewExportError(CodeNonUSDCurrency, ErrNonUSDCurrency,
				"gig %s has currency %q, expected %q", gig.ID, gig.Currency, b.cfg.Currency)
		}
	}
	for _, inv := range rows.Invoices {
		if !b.currencyOK(inv.Currency) {
			return NewExportError(CodeNonUSDCurrency, ErrNonUSDCurrency,
				"invoice %s has currency %q, expected %q", inv.ID, inv.Currency, b.cfg.Currency)
		}
	}
	for _, p := range rows.InvoicePayments {
		if !b.currencyOK(p.Currency) {
			return NewExportError(CodeNonUSDCurrency, ErrNonUSDCurrency,
				"invoice payment %s has currency %q, expected %q", p.ID, p.Currency, b.cfg.Currency)
		}
	}
	return nil
}

func (b *Builder) currencyOK(currency string) bool {
	return currency == "" || strings.EqualFold(currency, b.cfg.Currency)
}

func (b *Builder) currencyOf(currency string) string {
	if currency == "" {
		return b.cfg.Currency
	}
	return strings.ToUpper(currency)
}

func (b *Builder) buildMetadata(opts BuildOptions) PackageMetadata {
	tz := opts.Timezone
	if tz == "" {
		tz = "UTC"
	}
	start := opts.DateStart
	end := opts.DateEnd
	if start.IsZero() {
		start = time.Date(opts.TaxYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if end.IsZero() {
		end = time.Date(opts.TaxYear, time.December, 31, 23, 59, 59, 0, time.UTC)
	}
	return PackageMetadata{
		TaxYear:           opts.TaxYear,
		DateStart:         start,
		DateEnd:           end,
		CreatedAt:         b.now().UTC(),
		Timezone:          tz,
		Basis:             b.cfg.Basis,
		Currency:          b.cfg.Currency,
		RoundingMode:      RoundingMode,
		RoundingPrecision: RoundingPrecision,
		SchemaVersion:     b.cfg.SchemaVersion,
	}
}

func (b *Builder) buildGigIncomeRow(gig models.Gig, opts BuildOptions) IncomeRow {
	tips := 0.0
	if opts.IncludeTips {
		tips = gig.Tips
	}
	gross := RoundCents(gig.BaseAmount + tips + gig.PerDiem + gig.OtherIncome)
	fees := RoundCents(gig.Fees)

	return IncomeRow{
		SourceID: gig.ID,
		Source:   IncomeSourceGig,
		Date:     gig.Date,
		Description: ResolveDescription(DescriptionSource{
			Title: gig.Title,
			Venue: gig.Venue,
			Notes: gig.Notes,
			City:  gig.City,
		}, b.cfg.NotesTruncateLen),
		PayerID:   gig.PayerID,
		PayerName: gig.PayerName,
		Gross:     gross,
		Tips:      RoundCents(tips),
		Fees:      fees,
		Net:       RoundCents(gross - fees),
		Currency:  b.currencyOf(gig.Currency),
	}
}

func (b *Builder) buildExpenseRow(e models.Expense) (ExpenseRow, CategoryMapping) {
	mapping := b.mapper.Map(e.Category, e.DeductiblePercent)

	row := ExpenseRow{
		SourceID:          e.ID,
		Date:              e.Date,
		Category:          string(mapping.Category),
		RefNumber:         mapping.RefNumber,
		LineName:          mapping.LineName,
		Description:       e.Description,
		Amount:            RoundCents(e.Amount),
		DeductiblePercent: mapping.DeductiblePercent,
		DeductibleAmount:  RoundCents(e.Amount * mapping.DeductiblePercent),
	}

	// Equipment category takes priority over the large-amount rule; the two
	// reasons are mutually exclusive.
	switch {
	case mapping.Category == CategoryEquipmentGear:
		row.PotentialAssetReview = true
		row.AssetReviewReason = AssetReviewReasonEquipment
	case e.Amount >= b.cfg.AssetReviewThreshold:
		row.PotentialAssetReview = true
		row.AssetReviewReason = AssetReviewReasonLargeAmount
	}

	row.ReceiptURL = e.ReceiptURL
	return row, mapping
}

func buildMileageRow(trip models.MileageTrip, rate float64) MileageRow {
	deduction := 0.0
	if trip.Deduction != nil {
		deduction = RoundCents(*trip.Deduction)
	} else {
		deduction = RoundCents(trip.Miles * rate)
	}
	return MileageRow{
		SourceID:    trip.ID,
		Date:        trip.Date,
		Miles:       trip.Miles,
		Rate:        rate,
		Deduction:   deduction,
		Purpose:     trip.Purpose,
		Origin:      trip.Origin,
		Destination: trip.Destination,
		IsEstimate:  true,
	}
}

func paymentDescription(p models.InvoicePayment) string {
	switch {
	case p.InvoiceNumber != "" && p.ClientName != "":
		return fmt.Sprintf("Invoice %s — %s", p.InvoiceNumber, p.ClientName)
	case p.InvoiceNumber != "":
		return fmt.Sprintf("Invoice %s payment", p.InvoiceNumber)
	case p.ClientName != "":
		return fmt.Sprintf("Invoice payment from %s", p.ClientName)
	}
	return "Invoice payment"
}

func buildOtherBreakdown(buckets map[string]float64) []OtherExpenseEntry {
	if len(buckets) == 0 {
		return nil
	}
	names := make([]string, 0, len(buckets))
	for name := range buckets {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]OtherExpenseEntry, 0, len(names))
	for _, name := range names {
		amount := RoundCents(buckets[name])
		if amount == 0 {
			continue
		}
		entries = append(entries, OtherExpenseEntry{Name: name, Amount: amount})
	}
	return entries
}

const unknownPayerKey = "unknown"

func buildPayerSummaries(incomeRows []IncomeRow, payers []models.Payer) []PayerSummaryRow {
	payerNames := make(map[string]string, len(payers))
	for _, p := range payers {
		payerNames[p.ID] = p.Name
	}

	summaries := make(map[string]*PayerSummaryRow)
	for _, row := range incomeRows {
		if row.Source != IncomeSourceGig {
			continue
		}
		key := row.PayerID
		if key == "" {
			key = unknownPayerKey
		}

		s, ok := summaries[key]
		if !ok {
			s = &PayerSummaryRow{
				PayerID:   row.PayerID,
				PayerName: row.PayerName,
				FirstDate: row.Date,
				LastDate:  row.Date,
			}
			if name, found := payerNames[row.PayerID]; found && name != "" {
				s.PayerName = name
			}
			if key == unknownPayerKey {
				s.PayerName = "Unknown payer"
				s.Notes = "No payer on record for these payments; 1099 totals cannot be reconciled against a payer."
			}
			summaries[key] = s
		}

		s.PaymentsCount++
		s.Gross = RoundCents(s.Gross + row.Gross)
		s.Fees = RoundCents(s.Fees + row.Fees)
		s.Net = RoundCents(s.Net + row.Net)
		if row.Date.Before(s.FirstDate) {
			s.FirstDate = row.Date
		}
		if row.Date.After(s.LastDate) {
			s.LastDate = row.Date
		}
	}

	result := make([]PayerSummaryRow, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].PayerName != result[j].PayerName {
			return result[i].PayerName < result[j].PayerName
		}
		return result[i].PayerID < result[j].PayerID
	})
	return result
}

func buildMileageSummary(taxYear int, rate float64, rateExact bool, totalMiles, deduction float64, entries int) MileageSummary {
	s := MileageSummary{
		TaxYear:                taxYear,
		TotalBusinessMiles:     totalMiles,
		StandardRateUsed:       rate,
		MileageDeductionAmount: deduction,
		EntriesCount:           entries,
		IsEstimateAny:          entries > 0,
	}
	if entries > 0 {
		if rateExact {
			s.Notes = "Standard mileage method; per-vehicle actual expenses are not tracked."
		} else {
			s.Notes = fmt.Sprintf("No published rate for %d; the most recent known rate (%.3f/mile) was applied.", taxYear, rate)
		}
	}
	return s
}

func buildInvoiceRows(invoices []models.Invoice) []InvoiceRow {
	sorted := make([]models.Invoice, len(invoices))
	copy(sorted, invoices)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].IssuedAt.Equal(sorted[j].IssuedAt) {
			return sorted[i].IssuedAt.Before(sorted[j].IssuedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	rows := make([]InvoiceRow, 0, len(sorted))
	for _, inv := range sorted {
		rows = append(rows, InvoiceRow{
			SourceID:   inv.ID,
			Number:     inv.Number,
			ClientName: inv.ClientName,
			IssuedAt:   inv.IssuedAt,
			Amount:     RoundCents(inv.Amount),
			Currency:   strings.ToUpper(inv.Currency),
			Status:     inv.Status,
		})
	}
	return rows
}

func buildPayoutRows(payouts []models.SubcontractorPayout) []SubcontractorPayoutRow {
	sorted := make([]models.SubcontractorPayout, len(payouts))
	copy(sorted, payouts)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	perPayee := make(map[string]float64)
	for _, p := range sorted {
		perPayee[p.PayeeName] += p.Amount
	}

	rows := make([]SubcontractorPayoutRow, 0, len(sorted))
	for _, p := range sorted {
		rows = append(rows, SubcontractorPayoutRow{
			SourceID:    p.ID,
			Date:        p.Date,
			PayeeName:   p.PayeeName,
			PayeeTaxID:  p.PayeeTaxID,
			Amount:      RoundCents(p.Amount),
			Purpose:     p.Purpose,
			May1099Need: perPayee[p.PayeeName] >= payout1099Threshold,
		})
	}
	return rows
}

// buildLineItems emits manual-entry-ready lines in a fixed order: income
// lines first, then expense lines by ref number, then the itemized
// other-expenses entries tagged as parts of line 27a. Expense lines carry a
// negative raw amount but a positive entry amount.
func buildLineItems(sc ScheduleC) []ScheduleCLineItem {
	var items []ScheduleCLineItem

	topLevel := []struct {
		ref    string
		amount float64
	}{
		{RefGrossReceipts, sc.GrossReceipts},
		{RefReturnsAllowances, sc.ReturnsAllowances},
		{RefCOGS, sc.COGS},
		{RefOtherIncome, sc.OtherIncome},
	}
	for _, line := range topLevel {
		if line.amount == 0 {
			continue
		}
		items = append(items, ScheduleCLineItem{
			RefNumber:       line.ref,
			LineName:        LineName(line.ref),
			Description:     LineName(line.ref),
			RawSignedAmount: line.amount,
			AmountForEntry:  line.amount,
		})
	}

	refs := make([]string, 0, len(sc.ExpenseTotalsByRef))
	for ref := range sc.ExpenseTotalsByRef {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refLess(refs[i], refs[j]) })

	for _, ref := range refs {
		amount := sc.ExpenseTotalsByRef[ref]
		if amount == 0 {
			continue
		}
		items = append(items, ScheduleCLineItem{
			RefNumber:       ref,
			LineName:        LineName(ref),
			Description:     LineName(ref),
			RawSignedAmount: -amount,
			AmountForEntry:  amount,
		})
	}

	for _, entry := range sc.OtherExpensesBreakdown {
		items = append(items, ScheduleCLineItem{
			RefNumber:       RefOther,
			LineName:        LineName(RefOther),
			Description:     entry.Name,
			RawSignedAmount: -entry.Amount,
			AmountForEntry:  entry.Amount,
			Notes:           fmt.Sprintf("Part of %s (line %s)", LineName(RefOther), RefOther),
		})
	}

	return items
}

// refLess orders Schedule C refs numerically, with letter suffixes after the
// bare number ("16a" < "16b", "9" < "10").
func refLess(a, b string) bool {
	na, sa := splitRef(a)
	nb, sb := splitRef(b)
	if na != nb {
		return na < nb
	}
	return sa < sb
}

func splitRef(ref string) (int, string) {
	i := 0
	for i < len(ref) && ref[i] >= '0' && ref[i] <= '9' {
		i++
	}
	n, _ := strconv.Atoi(ref[:i])
	return n, ref[i:]
}

func sortedGigs(gigs []models.Gig) []models.Gig {
	sorted := make([]models.Gig, len(gigs))
	copy(sorted, gigs)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func sortedPayments(payments []models.InvoicePayment) []models.InvoicePayment {
	sorted := make([]models.InvoicePayment, len(payments))
	copy(sorted, payments)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].ReceivedAt.Equal(sorted[j].ReceivedAt) {
			return sorted[i].ReceivedAt.Before(sorted[j].ReceivedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func sortedExpenses(expenses []models.Expense) []models.Expense {
	sorted := make([]models.Expense, len(expenses))
	copy(sorted, expenses)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}

func sortedTrips(trips []models.MileageTrip) []models.MileageTrip {
	sorted := make([]models.MileageTrip, len(trips))
	copy(sorted, trips)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})
	return sorted
}
