package expenses

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/perkwise/backoffice/internal/auth"
	"github.com/perkwise/backoffice/internal/directory"
	"github.com/perkwise/backoffice/internal/domain/apperr"
	"github.com/perkwise/backoffice/internal/models"
)

// ReportRow is one invoice in the expense report, enriched with the
// requester's directory email.
type ReportRow struct {
	Email       string               `json:"email"`
	Amount      decimal.Decimal      `json:"amount"`
	Status      models.InvoiceStatus `json:"status"`
	CreatedAt   time.Time            `json:"createdAt"`
	Description string               `json:"description"`
}

// unknownEmail marks rows whose requester the directory could not resolve.
const unknownEmail = "unknown"

// GenerateReport selects all invoices created within [start, end], newest
// first, and joins each to the requester's email. Directory failures degrade
// the email to "unknown" instead of aborting the export.
func (s *Service) GenerateReport(ctx context.Context, identity auth.Identity, start, end time.Time) ([]ReportRow, error) {
	if !auth.CanManageInvoices(identity.Role) {
		return nil, apperr.Forbidden("only Admin or Bookkeeper can generate reports")
	}
	if start.After(end) {
		return nil, apperr.Validation("start date must be before end date")
	}

	invoices, err := s.invoices.ListBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	emails := s.resolveEmails(ctx, invoices)

	rows := make([]ReportRow, 0, len(invoices))
	for _, invoice := range invoices {
		email, ok := emails[invoice.UserID]
		if !ok {
			email = unknownEmail
		}
		rows = append(rows, ReportRow{
			Email:       email,
			Amount:      invoice.Amount,
			Status:      invoice.Status,
			CreatedAt:   invoice.CreatedAt,
			Description: invoice.Description,
		})
	}
	return rows, nil
}

func (s *Service) resolveEmails(ctx context.Context, invoices []models.Invoice) map[string]string {
	seen := make(map[string]bool)
	var ids []string
	for _, invoice := range invoices {
		if !seen[invoice.UserID] {
			seen[invoice.UserID] = true
			ids = append(ids, invoice.UserID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	members, err := s.directory.FindMany(ctx, ids)
	if err != nil {
		s.logger.Warn("Directory lookup failed, report emails degraded", zap.Error(err))
		return nil
	}
	return directory.EmailIndex(members)
}
