package export

import (
	"archive/zip"
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/models"
	"github.com/gigledger/taxexport/internal/taxexport"
	"github.com/gigledger/taxexport/pkg/utils"
)

// Row sources the service pulls from. The sqlite repositories satisfy these;
// tests substitute in-memory fakes.
type GigSource interface {
	ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.Gig, error)
}

type ExpenseSource interface {
	ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.Expense, error)
}

type MileageSource interface {
	ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.MileageTrip, error)
}

type InvoiceSource interface {
	ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.Invoice, error)
}

type PaymentSource interface {
	ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.InvoicePayment, error)
}

type PayoutSource interface {
	ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.SubcontractorPayout, error)
}

type PayerSource interface {
	ListByOwner(ownerID string) ([]models.Payer, error)
}

// ExportStore persists export runs.
type ExportStore interface {
	Create(tx *sql.Tx, export *models.Export) error
	GetByID(id string) (*models.Export, error)
	ListByOwner(ownerID string) ([]models.Export, error)
}

// Renderer turns a package into one downloadable artifact.
type Renderer interface {
	Render(pkg *taxexport.TaxExportPackage) ([]byte, error)
}

// BundleRenderer produces a named set of files from one package.
type BundleRenderer interface {
	RenderBundle(pkg *taxexport.TaxExportPackage) (map[string][]byte, error)
}

// Sources groups the per-table row sources behind the service.
type Sources struct {
	Gigs     GigSource
	Expenses ExpenseSource
	Mileage  MileageSource
	Invoices InvoiceSource
	Payments PaymentSource
	Payouts  PayoutSource
	Payers   PayerSource
}

// BuildRequest is one export run request.
type BuildRequest struct {
	OwnerID                string `json:"owner_id"`
	TaxYear                int    `json:"tax_year"`
	Timezone               string `json:"timezone"`
	Basis                  string `json:"basis"`
	IncludeTips            bool   `json:"include_tips"`
	IncludeFeesAsDeduction bool   `json:"include_fees_as_deduction"`
}

// BuildResult carries the persisted run plus the package and validation
// outcome the caller renders or inspects.
type BuildResult struct {
	ExportID   string                      `json:"export_id"`
	Package    *taxexport.TaxExportPackage `json:"package"`
	Validation *taxexport.ValidationResult `json:"validation"`
}

// Artifact formats servable from a stored export.
const (
	FormatCSV   = "csv"
	FormatExcel = "excel"
	FormatTXF   = "txf"
)

// Artifact is a rendered, downloadable file.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service runs exports end to end: load rows, validate, build the package,
// persist the run, and render artifacts from stored packages on demand.
type Service struct {
	sources   Sources
	exports   ExportStore
	builder   *taxexport.Builder
	validator *taxexport.Validator
	csv       BundleRenderer
	excel     Renderer
	txf       Renderer
	logger    *zap.Logger
}

// NewService creates the export service.
func NewService(
	sources Sources,
	exports ExportStore,
	builder *taxexport.Builder,
	validator *taxexport.Validator,
	csv BundleRenderer,
	excel Renderer,
	txf Renderer,
	logger *zap.Logger,
) *Service {
	return &Service{
		sources:   sources,
		exports:   exports,
		builder:   builder,
		validator: validator,
		csv:       csv,
		excel:     excel,
		txf:       txf,
		logger:    logger,
	}
}

// BuildExport loads the owner's rows for the tax year, validates them,
// builds the canonical package, and persists the run.
func (s *Service) BuildExport(req BuildRequest) (*BuildResult, error) {
	if req.OwnerID == "" {
		return nil, taxexport.NewExportError(taxexport.CodeNotAuthorized, taxexport.ErrNotAuthorized,
			"export requires an authenticated owner")
	}
	if err := utils.ValidateTaxYear(req.TaxYear); err != nil {
		return nil, taxexport.NewExportError(taxexport.CodeUnsupported, err,
			"tax year %d is out of range", req.TaxYear)
	}

	loc := time.UTC
	if req.Timezone != "" {
		parsed, err := time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, taxexport.NewExportError(taxexport.CodeUnsupported, err,
				"unknown timezone %q", req.Timezone)
		}
		loc = parsed
	}

	start := time.Date(req.TaxYear, time.January, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(1, 0, 0)

	rows, err := s.loadRows(req.OwnerID, start, end)
	if err != nil {
		return nil, err
	}

	validation := s.validator.Validate(*rows)

	pkg, err := s.builder.Build(*rows, taxexport.BuildOptions{
		TaxYear:                req.TaxYear,
		DateStart:              start,
		DateEnd:                end,
		Timezone:               req.Timezone,
		Basis:                  req.Basis,
		IncludeTips:            req.IncludeTips,
		IncludeFeesAsDeduction: req.IncludeFeesAsDeduction,
	})
	if err != nil {
		s.recordFailure(req, err)
		return nil, err
	}

	record, err := s.recordSuccess(req, pkg, validation)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Export built",
		zap.String("export_id", record.ID),
		zap.String("owner_id", req.OwnerID),
		zap.Int("tax_year", req.TaxYear),
		zap.Bool("is_valid", validation.IsValid),
		zap.Int("warnings", len(validation.Warnings)))

	return &BuildResult{
		ExportID:   record.ID,
		Package:    pkg,
		Validation: validation,
	}, nil
}

// Get returns a stored export for its owner.
func (s *Service) Get(ownerID, exportID string) (*models.Export, error) {
	record, err := s.exports.GetByID(exportID)
	if err != nil {
		return nil, taxexport.NewExportError(taxexport.CodeDataLoadFailed, taxexport.ErrDataLoadFailed,
			"failed to load export %s", exportID)
	}
	if record == nil || record.OwnerID != ownerID {
		// Absent and not-owned look identical to the caller on purpose.
		return nil, taxexport.NewExportError(taxexport.CodeNotAuthorized, taxexport.ErrNotAuthorized,
			"export %s is not available", exportID)
	}
	return record, nil
}

// ListByOwner returns an owner's export runs, newest first.
func (s *Service) ListByOwner(ownerID string) ([]models.Export, error) {
	if ownerID == "" {
		return nil, taxexport.NewExportError(taxexport.CodeNotAuthorized, taxexport.ErrNotAuthorized,
			"listing exports requires an authenticated owner")
	}
	records, err := s.exports.ListByOwner(ownerID)
	if err != nil {
		return nil, taxexport.NewExportError(taxexport.CodeDataLoadFailed, taxexport.ErrDataLoadFailed,
			"failed to list exports")
	}
	return records, nil
}

// RenderArtifact renders one artifact format from a stored export. TXF is
// the strict format and is refused while blocking validation errors remain;
// CSV and Excel stay available as working copies.
func (s *Service) RenderArtifact(ownerID, exportID, format string) (*Artifact, error) {
	record, err := s.Get(ownerID, exportID)
	if err != nil {
		return nil, err
	}
	if record.Status != models.ExportStatusCompleted {
		return nil, taxexport.NewExportError(taxexport.CodeUnsupported, nil,
			"export %s did not complete", exportID)
	}

	var pkg taxexport.TaxExportPackage
	if err := json.Unmarshal(record.PackageJSON, &pkg); err != nil {
		return nil, taxexport.NewExportError(taxexport.CodeDataLoadFailed, taxexport.ErrDataLoadFailed,
			"stored package for export %s is unreadable", exportID)
	}

	base := fmt.Sprintf("tax_export_%d", record.TaxYear)

	switch format {
	case FormatCSV:
		bundle, err := s.csv.RenderBundle(&pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to render CSV bundle: %w", err)
		}
		data, err := zipBundle(bundle)
		if err != nil {
			return nil, fmt.Errorf("failed to zip CSV bundle: %w", err)
		}
		return &Artifact{
			Filename:    base + "_csv.zip",
			ContentType: "application/zip",
			Data:        data,
		}, nil

	case FormatExcel:
		data, err := s.excel.Render(&pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to render workbook: %w", err)
		}
		return &Artifact{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil

	case FormatTXF:
		if !record.IsValid {
			return nil, taxexport.NewExportError(taxexport.CodeUnsupported, nil,
				"TXF requires an export with no blocking validation errors")
		}
		data, err := s.txf.Render(&pkg)
		if err != nil {
			return nil, fmt.Errorf("failed to render TXF: %w", err)
		}
		return &Artifact{
			Filename:    base + ".txf",
			ContentType: "application/octet-stream",
			Data:        data,
		}, nil

	default:
		return nil, taxexport.NewExportError(taxexport.CodeUnsupported, nil,
			"unknown artifact format %q", format)
	}
}

func (s *Service) loadRows(ownerID string, start, end time.Time) (*taxexport.RawRows, error) {
	fail := func(table string, err error) error {
		s.logger.Error("Failed to load rows for export",
			zap.String("table", table),
			zap.String("owner_id", ownerID),
			zap.Error(err))
		return taxexport.NewExportError(taxexport.CodeDataLoadFailed, taxexport.ErrDataLoadFailed,
			"failed to load %s", table)
	}

	gigs, err := s.sources.Gigs.ListByOwnerAndRange(ownerID, start, end)
	if err != nil {
		return nil, fail("gigs", err)
	}
	expenses, err := s.sources.Expenses.ListByOwnerAndRange(ownerID, start, end)
	if err != nil {
		return nil, fail("expenses", err)
	}
	trips, err := s.sources.Mileage.ListByOwnerAndRange(ownerID, start, end)
	if err != nil {
		return nil, fail("mileage_trips", err)
	}
	invoices, err := s.sources.Invoices.ListByOwnerAndRange(ownerID, start, end)
	if err != nil {
		return nil, fail("invoices", err)
	}
	payments, err := s.sources.Payments.ListByOwnerAndRange(ownerID, start, end)
	if err != nil {
		return nil, fail("invoice_payments", err)
	}
	payouts, err := s.sources.Payouts.ListByOwnerAndRange(ownerID, start, end)
	if err != nil {
		return nil, fail("subcontractor_payouts", err)
	}
	payers, err := s.sources.Payers.ListByOwner(ownerID)
	if err != nil {
		return nil, fail("payers", err)
	}

	return &taxexport.RawRows{
		Gigs:                 gigs,
		Expenses:             expenses,
		MileageTrips:         trips,
		Invoices:             invoices,
		InvoicePayments:      payments,
		SubcontractorPayouts: payouts,
		Payers:               payers,
	}, nil
}

func (s *Service) recordSuccess(req BuildRequest, pkg *taxexport.TaxExportPackage, validation *taxexport.ValidationResult) (*models.Export, error) {
	pkgJSON, err := json.Marshal(pkg)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize package: %w", err)
	}
	valJSON, err := json.Marshal(validation)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize validation result: %w", err)
	}

	record := &models.Export{
		ID:             uuid.NewString(),
		OwnerID:        req.OwnerID,
		TaxYear:        req.TaxYear,
		Status:         models.ExportStatusCompleted,
		IsValid:        validation.IsValid,
		PackageJSON:    pkgJSON,
		ValidationJSON: valJSON,
		CreatedAt:      pkg.Metadata.CreatedAt,
	}

	if err := s.exports.Create(nil, record); err != nil {
		return nil, fmt.Errorf("failed to persist export: %w", err)
	}
	return record, nil
}

// recordFailure keeps an audit row for builds rejected by the core, so the
// owner can see why a run produced nothing. Persistence failures here are
// logged and swallowed; the build error is the one the caller needs.
func (s *Service) recordFailure(req BuildRequest, buildErr error) {
	record := &models.Export{
		ID:           uuid.NewString(),
		OwnerID:      req.OwnerID,
		TaxYear:      req.TaxYear,
		Status:       models.ExportStatusFailed,
		ErrorMessage: buildErr.Error(),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.exports.Create(nil, record); err != nil {
		s.logger.Error("Failed to record failed export", zap.Error(err))
	}
}

// zipBundle writes the bundle files into a zip archive in name order, so
// identical bundles produce identical archives.
func zipBundle(bundle map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(bundle))
	for name := range bundle {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(bundle[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
