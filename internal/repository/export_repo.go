package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/models"
)

// ExportRepository persists export runs and their rendered packages.
type ExportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExportRepository creates a new export repository
func NewExportRepository(db *sql.DB, logger *zap.Logger) *ExportRepository {
	return &ExportRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an export record, inside tx when one is given.
func (r *ExportRepository) Create(tx *sql.Tx, export *models.Export) error {
	query := `
		INSERT INTO exports (
			id, owner_id, tax_year, status, is_valid,
			package_json, validation_json, error_message, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	args := []interface{}{
		export.ID,
		export.OwnerID,
		export.TaxYear,
		export.Status,
		export.IsValid,
		export.PackageJSON,
		export.ValidationJSON,
		export.ErrorMessage,
		export.CreatedAt,
	}

	var err error
	if tx != nil {
		_, err = tx.Exec(query, args...)
	} else {
		_, err = r.db.Exec(query, args...)
	}
	if err != nil {
		r.logger.Error("Failed to create export", zap.Error(err))
		return fmt.Errorf("failed to create export: %w", err)
	}

	return nil
}

// GetByID retrieves an export by ID. Returns (nil, nil) when absent.
func (r *ExportRepository) GetByID(id string) (*models.Export, error) {
	query := `
		SELECT id, owner_id, tax_year, status, is_valid,
			package_json, validation_json, error_message, created_at
		FROM exports
		WHERE id = ?
	`

	var export models.Export
	err := r.db.QueryRow(query, id).Scan(
		&export.ID,
		&export.OwnerID,
		&export.TaxYear,
		&export.Status,
		&export.IsValid,
		&export.PackageJSON,
		&export.ValidationJSON,
		&export.ErrorMessage,
		&export.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get export", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get export: %w", err)
	}

	return &export, nil
}

// ListByOwner retrieves an owner's exports, newest first.
func (r *ExportRepository) ListByOwner(ownerID string) ([]models.Export, error) {
	query := `
		SELECT id, owner_id, tax_year, status, is_valid,
			package_json, validation_json, error_message, created_at
		FROM exports
		WHERE owner_id = ?
		ORDER BY created_at DESC, id
	`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list exports", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list exports: %w", err)
	}
	defer rows.Close()

	var exports []models.Export
	for rows.Next() {
		var export models.Export
		err := rows.Scan(
			&export.ID,
			&export.OwnerID,
			&export.TaxYear,
			&export.Status,
			&export.IsValid,
			&export.PackageJSON,
			&export.ValidationJSON,
			&export.ErrorMessage,
			&export.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export: %w", err)
		}
		exports = append(exports, export)
	}

	return exports, rows.Err()
}
