package repository

import (
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gigledger/taxexport/internal/models"
)

// InvoiceRepository handles invoice database operations
type InvoiceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository
func NewInvoiceRepository(db *sql.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an invoice row
func (r *InvoiceRepository) Create(invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, owner_id, number, client_name, issued_at, due_at, amount, currency, status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		invoice.ID,
		invoice.OwnerID,
		invoice.Number,
		invoice.ClientName,
		invoice.IssuedAt,
		invoice.DueAt,
		invoice.Amount,
		invoice.Currency,
		invoice.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// ListByOwnerAndRange retrieves an owner's invoices issued inside [start, end).
func (r *InvoiceRepository) ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.Invoice, error) {
	query := `
		SELECT id, owner_id, number, client_name, issued_at, due_at, amount, currency, status
		FROM invoices
		WHERE owner_id = ? AND issued_at >= ? AND issued_at < ?
		ORDER BY issued_at, id
	`

	rows, err := r.db.Query(query, ownerID, start, end)
	if err != nil {
		r.logger.Error("Failed to list invoices", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var invoice models.Invoice
		var dueAt sql.NullTime

		err := rows.Scan(
			&invoice.ID,
			&invoice.OwnerID,
			&invoice.Number,
			&invoice.ClientName,
			&invoice.IssuedAt,
			&dueAt,
			&invoice.Amount,
			&invoice.Currency,
			&invoice.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}

		if dueAt.Valid {
			invoice.DueAt = &dueAt.Time
		}

		invoices = append(invoices, invoice)
	}

	return invoices, rows.Err()
}

// InvoicePaymentRepository handles invoice payment database operations
type InvoicePaymentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInvoicePaymentRepository creates a new invoice payment repository
func NewInvoicePaymentRepository(db *sql.DB, logger *zap.Logger) *InvoicePaymentRepository {
	return &InvoicePaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an invoice payment row
func (r *InvoicePaymentRepository) Create(payment *models.InvoicePayment) error {
	query := `
		INSERT INTO invoice_payments (
			id, owner_id, invoice_id, invoice_number, client_name,
			received_at, amount, currency, method
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		payment.ID,
		payment.OwnerID,
		payment.InvoiceID,
		payment.InvoiceNumber,
		payment.ClientName,
		payment.ReceivedAt,
		payment.Amount,
		payment.Currency,
		payment.Method,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice payment", zap.Error(err))
		return fmt.Errorf("failed to create invoice payment: %w", err)
	}

	return nil
}

// ListByOwnerAndRange retrieves an owner's payments received inside
// [start, end). Cash-basis income recognition keys off ReceivedAt.
func (r *InvoicePaymentRepository) ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.InvoicePayment, error) {
	query := `
		SELECT id, owner_id, invoice_id, invoice_number, client_name,
			received_at, amount, currency, method
		FROM invoice_payments
		WHERE owner_id = ? AND received_at >= ? AND received_at < ?
		ORDER BY received_at, id
	`

	rows, err := r.db.Query(query, ownerID, start, end)
	if err != nil {
		r.logger.Error("Failed to list invoice payments", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list invoice payments: %w", err)
	}
	defer rows.Close()

	var payments []models.InvoicePayment
	for rows.Next() {
		var payment models.InvoicePayment
		err := rows.Scan(
			&payment.ID,
			&payment.OwnerID,
			&payment.InvoiceID,
			&payment.InvoiceNumber,
			&payment.ClientName,
			&payment.ReceivedAt,
			&payment.Amount,
			&payment.Currency,
			&payment.Method,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice payment: %w", err)
		}
		payments = append(payments, payment)
	}

	return payments, rows.Err()
}

// PayoutRepository handles subcontractor payout database operations
type PayoutRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPayoutRepository creates a new payout repository
func NewPayoutRepository(db *sql.DB, logger *zap.Logger) *PayoutRepository {
	return &PayoutRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payout row
func (r *PayoutRepository) Create(payout *models.SubcontractorPayout) error {
	query := `
		INSERT INTO subcontractor_payouts (
			id, owner_id, date, payee_name, payee_tax_id, amount, purpose
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		payout.ID,
		payout.OwnerID,
		payout.Date,
		payout.PayeeName,
		payout.PayeeTaxID,
		payout.Amount,
		payout.Purpose,
	)
	if err != nil {
		r.logger.Error("Failed to create payout", zap.Error(err))
		return fmt.Errorf("failed to create payout: %w", err)
	}

	return nil
}

// ListByOwnerAndRange retrieves an owner's payouts with a date inside
// [start, end).
func (r *PayoutRepository) ListByOwnerAndRange(ownerID string, start, end time.Time) ([]models.SubcontractorPayout, error) {
	query := `
		SELECT id, owner_id, date, payee_name, payee_tax_id, amount, purpose
		FROM subcontractor_payouts
		WHERE owner_id = ? AND date >= ? AND date < ?
		ORDER BY date, id
	`

	rows, err := r.db.Query(query, ownerID, start, end)
	if err != nil {
		r.logger.Error("Failed to list payouts", zap.String("owner_id", ownerID), zap.Error(err))
		return nil, fmt.Errorf("failed to list payouts: %w", err)
	}
	defer rows.Close()

	var payouts []models.SubcontractorPayout
	for rows.Next() {
		var payout models.SubcontractorPayout
		err := rows.Scan(
			&payout.ID,
			&payout.OwnerID,
			&payout.Date,
			&payout.PayeeName,
			&payout.PayeeTaxID,
			&payout.Amount,
			&payout.Purpose,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payout: %w", err)
		}
		payouts = append(payouts, payout)
	}

	return payouts, rows.Err()
}
