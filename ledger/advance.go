package ledger

import "github.com/shopspring/decimal"

// =============================================================================
// ADVANCE LIFECYCLE - Structurally identical to the disbursement rule
// =============================================================================

// AdvanceRemaining returns amount - sum(reimbursements), always >= 0 under
// the write path's over-reimbursement check.
func AdvanceRemaining(a Advance) decimal.Decimal {
	remaining := a.Amount
	for _, m := range a.Reimbursements {
		remaining = remaining.Sub(m.Amount)
	}
	return remaining
}

// AdvanceStatusOf derives the three-state status from remaining and amount.
func AdvanceStatusOf(remaining, amount decimal.Decimal) AdvanceStatus {
	switch {
	case remaining.IsZero():
		return AdvanceFullyRepaid
	case remaining.Equal(amount):
		return AdvanceOngoing
	default:
		return AdvancePartiallyRepaid
	}
}
