// Package apperr defines the domain error taxonomy shared by the expense and
// time-off services. Every business-rule violation is one of these kinds so
// transport code can map errors to status codes and render the numeric
// context (remaining budget, remaining days) without string matching.
package apperr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies a domain error.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindCapacity
	KindQuota
	KindConflict
	KindForbidden
	KindNotFound
	KindDependency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindCapacity:
		return "capacity_exceeded"
	case KindQuota:
		return "quota_exceeded"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindDependency:
		return "dependency_unavailable"
	}
	return "unknown"
}

// Error is the base domain error carrying a kind and a caller-facing message.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

// Kind returns the error classification.
func (e *Error) Kind() Kind { return e.kind }

// Validation reports malformed input, rejected before any read.
func Validation(format string, args ...interface{}) error {
	return &Error{kind: KindValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown entity id.
func NotFound(format string, args ...interface{}) error {
	return &Error{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// Forbidden reports a caller without the required role or membership.
func Forbidden(format string, args ...interface{}) error {
	return &Error{kind: KindForbidden, msg: fmt.Sprintf(format, args...)}
}

// Conflict reports a state-transition violation (resolving a resolved
// request, changing a paid invoice, deleting a processed invoice) or a
// retryable concurrent-write collision.
func Conflict(format string, args ...interface{}) error {
	return &Error{kind: KindConflict, msg: fmt.Sprintf(format, args...)}
}

// Dependency reports an upstream collaborator failure (directory, object
// store).
func Dependency(msg string, err error) error {
	return &Error{kind: KindDependency, msg: msg, err: err}
}

// CapacityExceededError is returned when an invoice would reach or exceed the
// category's annual limit. The limit is a strict ceiling: used+amount == limit
// is already rejected.
type CapacityExceededError struct {
	Category  string
	Limit     decimal.Decimal
	Used      decimal.Decimal
	Requested decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("category %s limit exceeded: %s of %s used, %s requested, %s remaining",
		e.Category, e.Used, e.Limit, e.Requested, e.Remaining())
}

// Remaining is the budget still available, floored at zero.
func (e *CapacityExceededError) Remaining() decimal.Decimal {
	r := e.Limit.Sub(e.Used)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// Kind implements the kinded-error convention.
func (e *CapacityExceededError) Kind() Kind { return KindCapacity }

// QuotaExceededError is returned when a leave request would meet or exceed
// the annual allowance for its type.
type QuotaExceededError struct {
	Type string
	Max  int
	Used int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s quota exceeded: %d of %d days used", e.Type, e.Used, e.Max)
}

// Remaining is the number of days still available, floored at zero.
func (e *QuotaExceededError) Remaining() int {
	if e.Used >= e.Max {
		return 0
	}
	return e.Max - e.Used
}

// Kind implements the kinded-error convention.
func (e *QuotaExceededError) Kind() Kind { return KindQuota }

type kinded interface{ Kind() Kind }

// KindOf walks the error chain and returns the first domain kind found, or
// KindUnknown for infrastructure errors.
func KindOf(err error) Kind {
	for err != nil {
		if k, ok := err.(kinded); ok {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}
