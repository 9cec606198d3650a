package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/models"
)

// ExpenseRepository handles expense database operations
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) *ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an expense row
func (r *ExpenseRepository) Create(expense *models.Expense) error {
	query := `
		INSERT INTO expenses (
			id, owner_id, date, category, description, amount,
			deductible_percent, receipt_url, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		expense.ID,
		expense.OwnerID,
		expense.Date,
		expense.Category,
		expense.Description,
		expense.Amount,
		expense.DeductiblePercent,
		expense.ReceiptURL,
		expense.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create expense", zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return nil
}

// ListByOwnerAndRange retrieves an owner's expenses with a date inside
// [start, end).
func (r *ExpenseRepository) ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.Expense, error) {
	query := `
		SELECT id, owner_id, date, category, description, amount,
			deductible_percent, receipt_url, created_at
		FROM expenses
		WHERE owner_id = ? AND date >= ? AND date < ?
		ORDER BY date, id
	`

	rows, err := r.db.Query(query, ownerID, start, end)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var expense models.Expense
		var pct sql.NullFloat64

		err := rows.Scan(
			&expense.ID,
			&expense.OwnerID,
			&expense.Date,
			&expense.Category,
			&expense.Description,
			&expense.Amount,
			&pct,
			&expense.ReceiptURL,
			&expense.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}

		if pct.Valid {
			expense.DeductiblePercent = &pct.Float64
		}

		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

// MileageRepository handles mileage trip database operations
type MileageRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMileageRepository creates a new mileage repository
func NewMileageRepository(db *sql.DB, logger *zap.Logger) *MileageRepository {
	return &MileageRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a mileage trip row
func (r *MileageRepository) Create(trip *models.MileageTrip) error {
	query := `
		INSERT INTO mileage_trips (
			id, owner_id, date, miles, purpose, origin, destination, deduction
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		trip.ID,
		trip.OwnerID,
		trip.Date,
		trip.Miles,
		trip.Purpose,
		trip.Origin,
		trip.Destination,
		trip.Deduction,
	)
	if err != nil {
		r.logger.Error("Failed to create mileage trip", zap.Error(err))
		return fmt.Errorf("failed to create mileage trip: %w", err)
	}

	return nil
}

// ListByOwnerAndRange retrieves an owner's trips with a date inside
// [start, end).
func (r *MileageRepository) ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.MileageTrip, error) {
	query := `
		SELECT id, owner_id, date, miles, purpose, origin, destination, deduction
		FROM mileage_trips
		WHERE owner_id = ? AND date >= ? AND date < ?
		ORDER BY date, id
	`

	rows, err := r.db.Query(query, ownerID, start, end)
	if err != nil {
		r.logger.Error("Failed to list mileage trips", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list mileage trips: %w", err)
	}
	defer rows.Close()

	var trips []models.MileageTrip
	for rows.Next() {
		var trip models.MileageTrip
		var deduction sql.NullFloat64

		err := rows.Scan(
			&trip.ID,
			&trip.OwnerID,
			&trip.Date,
			&trip.Miles,
			&trip.Purpose,
			&trip.Origin,
			&trip.Destination,
			&deduction,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mileage trip: %w", err)
		}

		if deduction.Valid {
			trip.Deduction = &deduction.Float64
		}

		trips = append(trips, trip)
	}

	return trips, rows.Err()
}
