/*
disbursement.go - Disbursement lifecycle calculators

PURPOSE:
  Pure functions computing a disbursement's remaining amount and status from
  its justifications and returns, plus overdue/age predicates.

STATUS RULE:
  Justified          iff remaining == 0
  PartiallyJustified iff 0 < remaining < initial
  Open               iff remaining == initial

  Status is recomputed, never stored as independently mutable state: every
  write to justifications or returns goes through recalc.go, which persists
  remaining and status together in the same transaction.

REMAINING IS NOT CLAMPED:
  remaining = initial - sum(justifications) - sum(returns), as-is. The write
  path rejects over-justification and over-return, so a negative remaining
  cannot be produced through this engine's own mutations.
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// DisbursementRemaining returns initial - sum(justifications) - sum(returns).
func DisbursementRemaining(d Disbursement) decimal.Decimal {
	remaining := d.InitialAmount
	for _, j := range d.Justifications {
		remaining = remaining.Sub(j.Amount)
	}
	for _, r := range d.Returns {
		remaining = remaining.Sub(r.Amount)
	}
	return remaining
}

// DisbursementStatusOf derives the three-state status from remaining and
// initial.
func DisbursementStatusOf(remaining, initial decimal.Decimal) DisbursementStatus {
	switch {
	case remaining.IsZero():
		return DisbursementJustified
	case remaining.Equal(initial):
		return DisbursementOpen
	default:
		return DisbursementPartiallyJustified
	}
}

// IsOverdue reports whether the disbursement has a due date strictly in the
// past and is not fully justified.
func IsOverdue(d Disbursement, now time.Time) bool {
	return d.DueDate != nil && d.DueDate.Before(now) && d.Status != DisbursementJustified
}

// DaysOutstanding returns the calendar days since creation, ceiling-rounded.
// Same-day creation yields 0 or 1 depending on the hour; both are accepted.
func DaysOutstanding(d Disbursement, now time.Time) int {
	return DaysBetweenCeil(d.CreatedAt, now)
}
