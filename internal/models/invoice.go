package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state of a reimbursement request.
type InvoiceStatus string

const (
	InvoiceWaitingApproval InvoiceStatus = "WAITING_APPROVAL"
	InvoiceInProgress      InvoiceStatus = "IN_PROGRESS"
	InvoicePaid            InvoiceStatus = "PAID"
	InvoiceRejected        InvoiceStatus = "REJECTED"
)

// Valid reports whether the status is a known lifecycle state.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceWaitingApproval, InvoiceInProgress, InvoicePaid, InvoiceRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is permitted.
func (s InvoiceStatus) Terminal() bool {
	return s == InvoicePaid || s == InvoiceRejected
}

// CountsAsCommitted reports whether the invoice reserves budget. Everything
// except REJECTED counts: budget is reserved optimistically at submission,
// not only at approval.
func (s InvoiceStatus) CountsAsCommitted() bool {
	return s != InvoiceRejected
}

// Invoice is a single reimbursement request. Its creation timestamp defines
// the fiscal year it counts against.
type Invoice struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Category      CategoryID      `json:"category"`
	Amount        decimal.Decimal `json:"amount"`
	Status        InvoiceStatus   `json:"status"`
	Description   string          `json:"description"`
	AttachmentKey string          `json:"-"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Deletable reports whether the invoice may still be removed. Processed
// invoices (PAID or REJECTED) are part of the ledger history and stay.
func (i *Invoice) Deletable() bool {
	return i.Status == InvoiceWaitingApproval || i.Status == InvoiceInProgress
}
