/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The surrounding API layer maps these to HTTP statuses.

ERROR CATEGORIES:
  1. Validation errors - Write-path invariant violations (expected, recoverable)
  2. Not-found errors  - Entity missing or owned by another tenant
  3. Storage errors    - Passed through unmodified, never retried here

TENANT SCOPING:
  Tenant ownership is a security boundary. A lookup for an entity that exists
  under a different tenant returns ErrNotFound, never a cross-tenant hit.

USAGE:
    if ledger.IsValidation(err) {
        // show a field-level message
    }
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an entity does not exist or does not
	// belong to the requesting tenant.
	ErrNotFound = errors.New("entity not found")

	// ErrAmountNotPositive is returned when a movement, justification, or
	// document amount is zero or negative.
	ErrAmountNotPositive = errors.New("amount must be positive")

	// ErrAmountExceedsRemaining is returned when a justification, return, or
	// reimbursement would exceed what is left on its parent entity.
	ErrAmountExceedsRemaining = errors.New("amount exceeds remaining")

	// ErrDuplicateReference is returned when a document reference already
	// exists for the tenant.
	ErrDuplicateReference = errors.New("duplicate document reference")

	// ErrTotalBelowPaid is returned when reducing a document total below its
	// current paid amount.
	ErrTotalBelowPaid = errors.New("total cannot be reduced below paid amount")

	// ErrDueBeforeIssue is returned when a document due date is not strictly
	// after its issue date.
	ErrDueBeforeIssue = errors.New("due date must be after issue date")

	// ErrDocumentHasJustifications is returned when deleting a document that
	// still has linked justifications.
	ErrDocumentHasJustifications = errors.New("document has linked justifications")

	// ErrInvalidWindow is returned for a non-positive trend window.
	ErrInvalidWindow = errors.New("trend window must be positive")

	// ErrDuplicateAlert is returned by stores that enforce the alert dedup
	// key at the storage layer. The evaluator treats it as "already exists".
	ErrDuplicateAlert = errors.New("active alert already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError carries the field and reason for a write-path rejection so
// the presentation layer can show a field-level message.
type ValidationError struct {
	Field  string
	Reason string
	err    error // sentinel this wraps
}

func NewValidationError(field, reason string, sentinel error) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, err: sentinel}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.err }

// OverLimitError reports by how much a requested amount exceeds what is left.
type OverLimitError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *OverLimitError) Error() string {
	return fmt.Sprintf("requested %s exceeds remaining %s", e.Requested, e.Remaining)
}

func (e *OverLimitError) Unwrap() error { return ErrAmountExceedsRemaining }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for expected, recoverable write-path rejections.
func IsValidation(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return true
	}
	return errors.Is(err, ErrAmountNotPositive) ||
		errors.Is(err, ErrAmountExceedsRemaining) ||
		errors.Is(err, ErrDuplicateReference) ||
		errors.Is(err, ErrTotalBelowPaid) ||
		errors.Is(err, ErrDueBeforeIssue) ||
		errors.Is(err, ErrDocumentHasJustifications) ||
		errors.Is(err, ErrInvalidWindow)
}

// IsNotFound returns true if the error indicates a missing or foreign-tenant
// entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
