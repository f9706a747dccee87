package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/pkg/database"
)

// InvoiceRepository handles invoice persistence.
type InvoiceRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewInvoiceRepository creates a new invoice repository.
func NewInvoiceRepository(db *database.DB, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `id, user_id, category, amount, status, description, attachment_key, created_at`

// Create inserts a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, user_id, category, amount, status, description, attachment_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var attachment sql.NullString
	if invoice.AttachmentKey != "" {
		attachment = sql.NullString{String: invoice.AttachmentKey, Valid: true}
	}

	_, err := r.db.Executor(ctx).ExecContext(ctx, query,
		invoice.ID,
		invoice.UserID,
		string(invoice.Category),
		invoice.Amount.String(),
		string(invoice.Status),
		invoice.Description,
		attachment,
		invoice.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", zap.Error(err))
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// GetByID returns the invoice, or nil if it does not exist.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = ?`

	row := r.db.Executor(ctx).QueryRowContext(ctx, query, id)
	invoice, err := scanInvoice(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get invoice", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

// SumCommitted returns the committed spend for a category's fiscal year: the
// sum of amounts over every invoice whose status still reserves budget.
// Summation happens in Go so the decimal arithmetic stays exact.
func (r *InvoiceRepository) SumCommitted(ctx context.Context, category models.CategoryID, year int) (decimal.Decimal, error) {
	start, end := yearRange(year)
	query := `
		SELECT amount FROM invoices
		WHERE category = ? AND created_at >= ? AND created_at < ? AND status != ?
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query,
		string(category), start, end, string(models.InvoiceRejected))
	if err != nil {
		r.logger.Error("Failed to sum committed spend", zap.String("category", string(category)), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to sum committed spend: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid invoice amount %q: %w", amount, err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// ListByUserYear returns a user's invoices for a fiscal year, optionally
// filtered by status.
func (r *InvoiceRepository) ListByUserYear(ctx context.Context, userID string, year int, statuses []models.InvoiceStatus) ([]models.Invoice, error) {
	start, end := yearRange(year)

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = ? AND created_at >= ? AND created_at < ?`
	args := []interface{}{userID, start, end}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, s := range statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += ` AND status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`

	return r.queryInvoices(ctx, query, args...)
}

// ListBetween returns all invoices created within [start, end], newest first.
func (r *InvoiceRepository) ListBetween(ctx context.Context, start, end time.Time) ([]models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE created_at >= ? AND created_at <= ?
		ORDER BY created_at DESC`
	return r.queryInvoices(ctx, query, start, end)
}

// RejectPending transitions every WAITING_APPROVAL or IN_PROGRESS invoice of
// the category's fiscal year to REJECTED and returns the affected ids. PAID
// invoices are never touched.
func (r *InvoiceRepository) RejectPending(ctx context.Context, category models.CategoryID, year int) ([]string, error) {
	start, end := yearRange(year)
	query := `
		UPDATE invoices SET status = ?
		WHERE category = ? AND created_at >= ? AND created_at < ? AND status IN (?, ?)
		RETURNING id
	`

	rows, err := r.db.Executor(ctx).QueryContext(ctx, query,
		string(models.InvoiceRejected),
		string(category), start, end,
		string(models.InvoiceWaitingApproval), string(models.InvoiceInProgress),
	)
	if err != nil {
		r.logger.Error("Failed to reject pending invoices", zap.String("category", string(category)), zap.Error(err))
		return nil, fmt.Errorf("failed to reject pending invoices: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan rejected invoice id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateStatus sets the invoice status.
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	query := `UPDATE invoices SET status = ? WHERE id = ?`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, string(status), id)
	if err != nil {
		r.logger.Error("Failed to update invoice status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an invoice.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete invoice", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *InvoiceRepository) queryInvoices(ctx context.Context, query string, args ...interface{}) ([]models.Invoice, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query invoices", zap.Error(err))
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *invoice)
	}
	return invoices, rows.Err()
}

func scanInvoice(scan func(dest ...interface{}) error) (*models.Invoice, error) {
	var invoice models.Invoice
	var amount string
	var attachment sql.NullString

	err := scan(
		&invoice.ID,
		&invoice.UserID,
		&invoice.Category,
		&amount,
		&invoice.Status,
		&invoice.Description,
		&attachment,
		&invoice.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	invoice.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice amount %q: %w", amount, err)
	}
	if attachment.Valid {
		invoice.AttachmentKey = attachment.String
	}
	return &invoice, nil
}
