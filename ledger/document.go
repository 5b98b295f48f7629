/*
document.go - Document payment lifecycle calculators

PURPOSE:
  Pure functions computing a document's remaining amount, payment percentage,
  and status from its total amount and aggregated justification amounts.

STATUS BOUNDARY:
  Unpaid        iff paid == 0
  Paid          iff paid >= total (overpayment clamps to Paid, not an error)
  PartiallyPaid otherwise

  The paid == 0 branch is checked first: a degenerate total == 0 therefore
  yields Unpaid. Callers keep that case out by validating total > 0 at
  creation (recalc.go).

PAID IS RECOMPUTED, NEVER ADJUSTED:
  SumJustificationAmounts over the full current set of linked justifications
  is the sole source of truth for paid. Incremental +/- adjustments drift.
*/
package ledger

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DocumentRemaining returns total - paid. The write path validates
// non-negativity; the function itself does not clamp.
func DocumentRemaining(total, paid decimal.Decimal) decimal.Decimal {
	return total.Sub(paid)
}

// DocumentStatusOf derives the payment status from total and paid.
func DocumentStatusOf(total, paid decimal.Decimal) DocumentStatus {
	switch {
	case paid.IsZero():
		return DocumentUnpaid
	case paid.GreaterThanOrEqual(total):
		return DocumentPaid
	default:
		return DocumentPartiallyPaid
	}
}

// PaymentPercentage returns paid/total*100 clamped to [0, 100], and 0 when
// total is zero.
func PaymentPercentage(total, paid decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	pct := paid.Div(total).Mul(hundred)
	if pct.IsNegative() {
		return decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}

// SumJustificationAmounts sums the given justification amounts; zero for an
// empty set.
func SumJustificationAmounts(justifications []Justification) decimal.Decimal {
	total := decimal.Zero
	for _, j := range justifications {
		total = total.Add(j.Amount)
	}
	return total
}
