// Package expenses implements the category ledger and the invoice lifecycle:
// per-category annual caps, committed-spend admission control, role-gated
// status transitions, guarded deletion, and the expense report projection.
package expenses

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/auth"
	"github.com/perkwise/backoffice/internal/directory"
	"github.com/perkwise/backoffice/internal/domain/apperr"
	"github.com/perkwise/backoffice/internal/models"
	"github.com/perkwise/backoffice/internal/objectstore"
	"github.com/perkwise/backoffice/internal/repository"
	"github.com/perkwise/backoffice/pkg/database"
)

// Service is the expense ledger service.
type Service struct {
	db         *database.DB
	invoices   *repository.InvoiceRepository
	categories *repository.CategoryRepository
	directory  directory.Client
	store      objectstore.Store
	logger     *zap.Logger
	now        func() time.Time
}

// NewService creates the expense service.
func NewService(
	db *database.DB,
	invoices *repository.InvoiceRepository,
	categories *repository.CategoryRepository,
	dir directory.Client,
	store objectstore.Store,
	logger *zap.Logger,
) *Service {
	return &Service{
		db:         db,
		invoices:   invoices,
		categories: categories,
		directory:  dir,
		store:      store,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateInvoiceInput is the payload for CreateInvoice.
type CreateInvoiceInput struct {
	UserID        string
	Category      models.CategoryID
	Amount        decimal.Decimal
	Description   string
	AttachmentKey string
}

// CreateInvoice admits a new reimbursement request against the category's
// annual budget. The admission check and the insert run in one write
// transaction, so two concurrent submissions cannot both pass the check and
// push committed spend past the cap.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (string, error) {
	if !input.Amount.IsPositive() {
		return "", apperr.Validation("amount must be positive, got %s", input.Amount)
	}
	if !input.Category.Valid() {
		return "", apperr.Validation("unknown category %q", input.Category)
	}

	invoice := &models.Invoice{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		Category:      input.Category,
		Amount:        input.Amount,
		Status:        models.InvoiceWaitingApproval,
		Description:   input.Description,
		AttachmentKey: input.AttachmentKey,
		CreatedAt:     s.now().UTC(),
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetByID(ctx, input.Category)
		if err != nil {
			return err
		}
		if category == nil {
			return apperr.NotFound("category %s not found", input.Category)
		}

		used, err := s.invoices.SumCommitted(ctx, input.Category, invoice.CreatedAt.Year())
		if err != nil {
			return err
		}

		// Strict ceiling: a request that fills the budget exactly is
		// rejected too.
		if used.Add(input.Amount).GreaterThanOrEqual(category.Limit) {
			return &apperr.CapacityExceededError{
				Category:  string(input.Category),
				Limit:     category.Limit,
				Used:      used,
				Requested: input.Amount,
			}
		}

		return s.invoices.Create(ctx, invoice)
	})
	if err != nil {
		return "", conflictIfBusy(err)
	}

	s.logger.Info("Invoice created",
		zap.String("invoice_id", invoice.ID),
		zap.String("category", string(invoice.Category)),
		zap.String("amount", invoice.Amount.String()))
	return invoice.ID, nil
}

// LimitUpdateResult reports the outcome of a category limit change,
// including the invoices the decrease cascade rejected.
type LimitUpdateResult struct {
	Category    models.CategoryID `json:"category"`
	NewLimit    decimal.Decimal   `json:"newLimit"`
	RejectedIDs []string          `json:"rejectedInvoiceIds,omitempty"`
}

// UpdateCategoryLimit sets a category's annual cap. Lowering the cap rejects
// every still-pending invoice of the current fiscal year in the same
// transaction: stale pending requests never silently exceed a lowered cap.
// PAID invoices and prior years are untouched.
func (s *Service) UpdateCategoryLimit(ctx context.Context, identity auth.Identity, categoryID models.CategoryID, newLimit decimal.Decimal) (*LimitUpdateResult, error) {
	if !auth.CanAdministrate(identity.Role) {
		return nil, apperr.Forbidden("only Admin can change category limits")
	}
	if newLimit.IsNegative() {
		return nil, apperr.Validation("limit must not be negative, got %s", newLimit)
	}
	if !categoryID.Valid() {
		return nil, apperr.Validation("unknown category %q", categoryID)
	}

	result := &LimitUpdateResult{Category: categoryID, NewLimit: newLimit}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		category, err := s.categories.GetByID(ctx, categoryID)
		if err != nil {
			return err
		}
		if category == nil {
			return apperr.NotFound("category %s not found", categoryID)
		}

		if err := s.categories.UpdateLimit(ctx, categoryID, newLimit); err != nil {
			return err
		}

		if newLimit.LessThan(category.Limit) {
			rejected, err := s.invoices.RejectPending(ctx, categoryID, s.now().Year())
			if err != nil {
				return err
			}
			result.RejectedIDs = rejected
		}
		return nil
	})
	if err != nil {
		return nil, conflictIfBusy(err)
	}

	if len(result.RejectedIDs) > 0 {
		s.logger.Info("Limit decrease rejected pending invoices",
			zap.String("category", string(categoryID)),
			zap.String("new_limit", newLimit.String()),
			zap.Int("rejected", len(result.RejectedIDs)))
	}
	return result, nil
}

// UpdateInvoiceStatus moves an invoice to a new lifecycle state. Only
// Admin/Bookkeeper may do this, and a PAID invoice never changes again.
func (s *Service) UpdateInvoiceStatus(ctx context.Context, identity auth.Identity, invoiceID string, status models.InvoiceStatus) error {
	if !auth.CanManageInvoices(identity.Role) {
		return apperr.Forbidden("only Admin or Bookkeeper can change invoice status")
	}
	if !status.Valid() {
		return apperr.Validation("unknown invoice status %q", status)
	}

	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		invoice, err := s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperr.NotFound("invoice %s not found", invoiceID)
		}
		if invoice.Status == models.InvoicePaid {
			return apperr.Conflict("cannot change status of a paid invoice")
		}
		return s.invoices.UpdateStatus(ctx, invoiceID, status)
	})
	return conflictIfBusy(err)
}

// DeleteInvoice removes a still-pending invoice. Processed invoices are
// ledger history and cannot be deleted; the status guard is checked before
// the access guard.
func (s *Service) DeleteInvoice(ctx context.Context, identity auth.Identity, invoiceID string) error {
	err := s.db.WithTx(ctx, func(ctx context.Context) error {
		invoice, err := s.invoices.GetByID(ctx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return apperr.NotFound("invoice %s not found", invoiceID)
		}
		if !invoice.Deletable() {
			return apperr.Conflict("invoice %s was processed and cannot be deleted", invoiceID)
		}
		if !auth.CanDeleteInvoice(identity, invoice) {
			return apperr.Forbidden("no access to invoice %s", invoiceID)
		}
		return s.invoices.Delete(ctx, invoiceID)
	})
	return conflictIfBusy(err)
}

// InvoiceView is an invoice with its attachment resolved to a short-lived
// download URL.
type InvoiceView struct {
	ID            string               `json:"id"`
	UserID        string               `json:"userId"`
	Category      models.CategoryID    `json:"category"`
	Amount        decimal.Decimal      `json:"amount"`
	Status        models.InvoiceStatus `json:"status"`
	Description   string               `json:"description"`
	AttachmentURL string               `json:"attachmentUrl,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

// UserInvoiceData is a user's fiscal-year slice of the ledger: their
// invoices plus each category's cap and their own committed spend in it.
type UserInvoiceData struct {
	Invoices   []InvoiceView          `json:"invoices"`
	Categories []models.CategoryUsage `json:"categories"`
}

// GetInvoiceData returns a user's invoices for a year (optional status
// filter) together with per-category usage of that user's slice.
func (s *Service) GetInvoiceData(ctx context.Context, userID string, year int, statuses []models.InvoiceStatus) (*UserInvoiceData, error) {
	for _, st := range statuses {
		if !st.Valid() {
			return nil, apperr.Validation("unknown invoice status %q", st)
		}
	}
	if year == 0 {
		year = s.now().Year()
	}

	invoices, err := s.invoices.ListByUserYear(ctx, userID, year, statuses)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}

	data := &UserInvoiceData{
		Invoices:   make([]InvoiceView, 0, len(invoices)),
		Categories: make([]models.CategoryUsage, 0, len(categories)),
	}

	for _, invoice := range invoices {
		view := InvoiceView{
			ID:          invoice.ID,
			UserID:      invoice.UserID,
			Category:    invoice.Category,
			Amount:      invoice.Amount,
			Status:      invoice.Status,
			Description: invoice.Description,
			CreatedAt:   invoice.CreatedAt,
		}
		if invoice.AttachmentKey != "" {
			url, err := s.store.PresignDownload(ctx, invoice.AttachmentKey)
			if err != nil {
				// The URL is part of the contract for invoices that carry an
				// attachment, so a store failure aborts rather than degrades.
				return nil, apperr.Dependency("object store unavailable", err)
			}
			view.AttachmentURL = url
		}
		data.Invoices = append(data.Invoices, view)
	}

	for _, category := range categories {
		used := decimal.Zero
		for _, invoice := range invoices {
			if invoice.Category == category.ID && invoice.Status.CountsAsCommitted() {
				used = used.Add(invoice.Amount)
			}
		}
		data.Categories = append(data.Categories, models.CategoryUsage{
			Category: category.ID,
			Limit:    category.Limit,
			Used:     used,
		})
	}

	return data, nil
}

// ListCategories returns every category with its current limit.
func (s *Service) ListCategories(ctx context.Context, identity auth.Identity) ([]models.Category, error) {
	if !auth.CanManageInvoices(identity.Role) {
		return nil, apperr.Forbidden("only Admin or Bookkeeper can list categories")
	}
	return s.categories.List(ctx)
}

// conflictIfBusy maps sqlite lock contention to a retryable conflict; other
// errors pass through untouched.
func conflictIfBusy(err error) error {
	if err != nil && database.IsBusy(err) {
		return apperr.Conflict("concurrent update, please retry")
	}
	return err
}
