package taxexport

// ExportConfig carries the versioned constant tables the builder depends on.
// Passing them in (rather than reading module-level literals) lets tests and
// future filing seasons swap tables without touching the algorithm.
type ExportConfig struct {
	// AppLabel prefixes other-expenses breakdown keys ("<label>: <category>").
	AppLabel string

	// Currency is the single supported reporting currency.
	Currency string

	// Basis is the single supported accounting basis.
	Basis string

	// DefaultMealsPercent is the deductible fraction applied to meals rows
	// that carry no per-row override (0..1).
	DefaultMealsPercent float64

	// AssetReviewThreshold flags any single expense at or above this amount
	// as a depreciation candidate.
	AssetReviewThreshold float64

	// NotesTruncateLen bounds free-text notes used as income descriptions.
	NotesTruncateLen int

	// MileageRates is the year -> rate table for the standard mileage method.
	MileageRates MileageRateTable

	// SchemaVersion is stamped into package metadata.
	SchemaVersion string
}

// DefaultExportConfig returns the compiled-in configuration.
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		AppLabel:             "GigLedger",
		Currency:             "USD",
		Basis:                "cash",
		DefaultMealsPercent:  0.5,
		AssetReviewThreshold: 2500,
		NotesTruncateLen:     60,
		MileageRates:         DefaultMileageRates(),
		SchemaVersion:        "2024.1",
	}
}
