package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/models"
)

// GigRepository handles gig database operations
type GigRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewGigRepository creates a new gig repository
func NewGigRepository(db *sql.DB, logger *zap.Logger) *GigRepository {
	return &GigRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a gig row
func (r *GigRepository) Create(gig *models.Gig) error {
	query := `
		INSERT INTO gigs (
			id, owner_id, date, title, venue, city, notes, payer_id, payer_name,
			base_amount, tips, per_diem, other_income, fees, paid, paid_at, currency
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		gig.ID,
		gig.OwnerID,
		gig.Date,
		gig.Title,
		gig.Venue,
		gig.City,
		gig.Notes,
		gig.PayerID,
		gig.PayerName,
		gig.BaseAmount,
		gig.Tips,
		gig.PerDiem,
		gig.OtherIncome,
		gig.Fees,
		gig.Paid,
		gig.PaidAt,
		gig.Currency,
	)
	if err != nil {
		r.logger.Error("Failed to create gig", zap.Error(err))
		return fmt.Errorf("failed to create gig: %w", err)
	}

	return nil
}

// ListByOwnerAndRange retrieves an owner's gigs with a date inside
// [start, end).
func (r *GigRepository) ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.Gig, error) {
	query := `
		SELECT id, owner_id, date, title, venue, city, notes, payer_id, payer_name,
			base_amount, tips, per_diem, other_income, fees, paid, paid_at, currency
		FROM gigs
		WHERE owner_id = ? AND date >= ? AND date < ?
		ORDER BY date, id
	`

	rows, err := r.db.Query(query, ownerID, start, end)
	if err != nil {
		r.logger.Error("Failed to list gigs", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list gigs: %w", err)
	}
	defer rows.Close()

	var gigs []models.Gig
	for rows.Next() {
		var gig models.Gig
		var paidAt sql.NullTime

		err := rows.Scan(
			&gig.ID,
			&gig.OwnerID,
			&gig.Date,
			&gig.Title,
			&gig.Venue,
			&gig.City,
			&gig.Notes,
			&gig.PayerID,
			&gig.PayerName,
			&gig.BaseAmount,
			&gig.Tips,
			&gig.PerDiem,
			&gig.OtherIncome,
			&gig.Fees,
			&gig.Paid,
			&paidAt,
			&gig.Currency,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gig: %w", err)
		}

		if paidAt.Valid {
			gig.PaidAt = &paidAt.Time
		}

		gigs = append(gigs, gig)
	}

	return gigs, rows.Err()
}

// PayerRepository handles payer database operations
type PayerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPayerRepository creates a new payer repository
func NewPayerRepository(db *sql.DB, logger *zap.Logger) *PayerRepository {
	return &PayerRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payer row
func (r *PayerRepository) Create(payer *models.Payer) error {
	query := `
		INSERT INTO payers (id, owner_id, name, tax_id, email)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query, payer.ID, payer.OwnerID, payer.Name, payer.TaxID, payer.Email)
	if err != nil {
		r.logger.Error("Failed to create payer", zap.Error(err))
		return fmt.Errorf("failed to create payer: %w", err)
	}

	return nil
}

// ListByOwner retrieves all payers for an owner.
func (r *PayerRepository) ListByOwner(ownerID string) ([]models.Payer, error) {
	query := `
		SELECT id, owner_id, name, tax_id, email
		FROM payers
		WHERE owner_id = ?
		ORDER BY name, id
	`

	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list payers", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list payers: %w", err)
	}
	defer rows.Close()

	var payers []models.Payer
	for rows.Next() {
		var payer models.Payer
		if err := rows.Scan(&payer.ID, &payer.OwnerID, &payer.Name, &payer.TaxID, &payer.Email); err != nil {
			return nil, fmt.Errorf("failed to scan payer: %w", err)
		}
		payers = append(payers, payer)
	}

	return payers, rows.Err()
}
