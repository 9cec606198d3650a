// Command taxexport builds tax export packages from a JSON row dump without
// running the HTTP service. Useful for one-off exports and for inspecting
// what the engine produces for a given set of rows.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/render"
	"github.com/gigledger/taxexport/internal/taxexport"
	"github.com/gigledger/taxexport/pkg/utils"
)

var (
	rowsPath        string
	taxYear         int
	timezone        string
	basis           string
	noTips          bool
	feesAsDeduction bool
	outDir          string
	logLevel        string
)

var rootCmd = &cobra.Command{
	Use:   "taxexport",
	Short: "Build Schedule C tax export packages from raw gig ledger rows",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a package and write its artifacts to a directory",
	RunE:  runBuild,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Run the validation pre-pass and report issues",
	RunE:  runValidate,
}

func main() {
	rootCmd.PersistentFlags().StringVar(&rowsPath, "rows", "rows.json", "path to the JSON row dump")
	rootCmd.PersistentFlags().IntVar(&taxYear, "year", 0, "tax year to export")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	buildCmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for the year window (default UTC)")
	buildCmd.Flags().StringVar(&basis, "basis", "", "accounting basis (only cash is supported)")
	buildCmd.Flags().BoolVar(&noTips, "no-tips", false, "exclude tips from gross receipts")
	buildCmd.Flags().BoolVar(&feesAsDeduction, "fees-as-deduction", false, "report platform fees as a commissions deduction instead of returns")
	buildCmd.Flags().StringVar(&outDir, "out", "export", "output directory for artifacts")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadRows() (*taxexport.RawRows, error) {
	data, err := os.ReadFile(rowsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows file: %w", err)
	}

	var rows taxexport.RawRows
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows file: %w", err)
	}
	return &rows, nil
}

// yearWindow computes the [start, end) window for the tax year in the
// requested timezone, matching what the service derives per request.
func yearWindow(year int, tz string) (time.Time, time.Time, error) {
	loc := time.UTC
	if tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("unknown timezone %q: %w", tz, err)
		}
		loc = parsed
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0), nil
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// filterRows keeps only the rows inside the window, the way the row
// repositories scope their queries for the service.
func filterRows(rows *taxexport.RawRows, start, end time.Time) *taxexport.RawRows {
	out := &taxexport.RawRows{Payers: rows.Payers}
	for _, g := range rows.Gigs {
		if inWindow(g.Date, start, end) {
			out.Gigs = append(out.Gigs, g)
		}
	}
	for _, e := range rows.Expenses {
		if inWindow(e.Date, start, end) {
			out.Expenses = append(out.Expenses, e)
		}
	}
	for _, trip := range rows.MileageTrips {
		if inWindow(trip.Date, start, end) {
			out.MileageTrips = append(out.MileageTrips, trip)
		}
	}
	for _, inv := range rows.Invoices {
		if inWindow(inv.IssuedAt, start, end) {
			out.Invoices = append(out.Invoices, inv)
		}
	}
	for _, p := range rows.InvoicePayments {
		if inWindow(p.ReceivedAt, start, end) {
			out.InvoicePayments = append(out.InvoicePayments, p)
		}
	}
	for _, p := range rows.SubcontractorPayouts {
		if inWindow(p.Date, start, end) {
			out.SubcontractorPayouts = append(out.SubcontractorPayouts, p)
		}
	}
	return out
}

func newLogger() (*zap.Logger, error) {
	return utils.NewLogger(utils.LoggerConfig{
		Level:      logLevel,
		OutputPath: "stderr",
		Format:     "console",
	})
}

func runValidate(cmd *cobra.Command, args []string) error {
	rows, err := loadRows()
	if err != nil {
		return err
	}

	if taxYear != 0 {
		start, end, err := yearWindow(taxYear, timezone)
		if err != nil {
			return err
		}
		rows = filterRows(rows, start, end)
	}

	cfg := taxexport.DefaultExportConfig()
	result := taxexport.NewValidator(cfg).Validate(*rows)

	for _, issue := range result.Errors {
		fmt.Printf("ERROR   %-22s %s/%s: %s\n", issue.Code, issue.RowType, issue.RowID, issue.Message)
	}
	for _, issue := range result.Warnings {
		fmt.Printf("WARNING %-22s %s/%s: %s\n", issue.Code, issue.RowType, issue.RowID, issue.Message)
	}
	fmt.Println(result.Summary)

	if !result.IsValid {
		os.Exit(2)
	}
	return nil
}

func runBuild(cmd *cobra.Command, args []string) error {
	if taxYear == 0 {
		return fmt.Errorf("--year is required")
	}

	allRows, err := loadRows()
	if err != nil {
		return err
	}

	start, end, err := yearWindow(taxYear, timezone)
	if err != nil {
		return err
	}
	rows := filterRows(allRows, start, end)

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg := taxexport.DefaultExportConfig()
	validation := taxexport.NewValidator(cfg).Validate(*rows)

	opts := taxexport.BuildOptions{
		TaxYear:                taxYear,
		DateStart:              start,
		DateEnd:                end,
		Timezone:               timezone,
		Basis:                  basis,
		IncludeTips:            !noTips,
		IncludeFeesAsDeduction: feesAsDeduction,
	}
	pkg, err := taxexport.NewBuilder(cfg).Build(*rows, opts)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	pkgJSON, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize package: %w", err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "package.json"), pkgJSON, 0644); err != nil {
		return err
	}

	bundle, err := render.NewCSVRenderer(logger).RenderBundle(pkg)
	if err != nil {
		return fmt.Errorf("failed to render CSV bundle: %w", err)
	}
	for name, data := range bundle {
		if err := os.WriteFile(filepath.Join(outDir, name), data, 0644); err != nil {
			return err
		}
	}

	workbook, err := render.NewExcelRenderer(logger).Render(pkg)
	if err != nil {
		return fmt.Errorf("failed to render workbook: %w", err)
	}
	xlsxName := fmt.Sprintf("tax_export_%d.xlsx", taxYear)
	if err := os.WriteFile(filepath.Join(outDir, xlsxName), workbook, 0644); err != nil {
		return err
	}

	// TXF only ships clean; a file with known-bad rows would import garbage
	// into tax software.
	if validation.IsValid {
		txf, err := render.NewTXFRenderer(logger).Render(pkg)
		if err != nil {
			return fmt.Errorf("failed to render TXF: %w", err)
		}
		txfName := fmt.Sprintf("tax_export_%d.txf", taxYear)
		if err := os.WriteFile(filepath.Join(outDir, txfName), txf, 0644); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(os.Stderr, "Skipping TXF: %s\n", validation.Summary)
	}

	fmt.Printf("Export written to %s\n", outDir)
	fmt.Printf("  Gross receipts: %.2f\n", pkg.ScheduleC.GrossReceipts)
	fmt.Printf("  Total expenses: %.2f\n", pkg.ScheduleC.ExpensesTotal())
	fmt.Printf("  Net profit:     %.2f\n", pkg.ScheduleC.NetProfit)
	for _, w := range pkg.ScheduleC.Warnings {
		fmt.Printf("  Warning: %s\n", w)
	}

	return nil
}
