/*
balance.go - Balance calculation over raw movements

PURPOSE:
  Pure functions turning a list of movements into a party balance, a
  theoretical cash balance, and a cash balance time series. No I/O.

SIGN CONVENTIONS (intentionally asymmetric):
  PartyBalance           = sum(outflow) - sum(inflow)
    Positive means the party owes the company; negative means the company
    owes the party. Money sent out and not yet returned is debt.

  TheoreticalCashBalance = sum(inflow) - sum(outflow), Cash modality only
    Cash on hand, not debt: money coming in raises the till.

  Both conventions are load-bearing. Do not "harmonize" them.

TREND SERIES:
  CashBalanceTrend buckets Cash-modality movements by calendar day over the
  trailing window and carries the running total through days with no
  movements, so the series always has exactly windowDays entries.

SEE ALSO:
  - report.go: Orchestrations that fetch movements and delegate here
  - time.go: Day bucketing helpers
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PARTY AND CASH BALANCES
// =============================================================================

// PartyBalance returns sum(outflow) - sum(inflow) over the given movements.
// Positive = party owes the company. Empty input yields zero. Order-free.
func PartyBalance(movements []Movement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		switch m.Kind {
		case Outflow:
			balance = balance.Add(m.Amount)
		case Inflow:
			balance = balance.Sub(m.Amount)
		}
	}
	return balance
}

// TheoreticalCashBalance returns sum(inflow) - sum(outflow) over the
// Cash-modality movements in the input. Note the inverted sign convention
// versus PartyBalance: this is cash on hand, not debt.
func TheoreticalCashBalance(movements []Movement) decimal.Decimal {
	balance := decimal.Zero
	for _, m := range movements {
		if m.Modality != ModalityCash {
			continue
		}
		switch m.Kind {
		case Inflow:
			balance = balance.Add(m.Amount)
		case Outflow:
			balance = balance.Sub(m.Amount)
		}
	}
	return balance
}

// =============================================================================
// TREND SERIES
// =============================================================================

// TrendPoint is one day of the cash balance series.
type TrendPoint struct {
	Date    time.Time
	Balance decimal.Decimal
}

// CashBalanceTrend returns exactly windowDays entries ending on now's
// calendar day, each entry's balance being the cumulative Cash-modality sum
// from the window start through that day. Days without movements carry the
// prior running total forward. Movements before the window are excluded.
//
// windowDays <= 0 is a caller error and returns ErrInvalidWindow.
func CashBalanceTrend(movements []Movement, windowDays int, now time.Time) ([]TrendPoint, error) {
	if windowDays <= 0 {
		return nil, ErrInvalidWindow
	}

	today := StartOfDay(now)
	windowStart := today.AddDate(0, 0, -(windowDays - 1))

	// Net cash delta per day within the window.
	deltas := make(map[time.Time]decimal.Decimal)
	for _, m := range movements {
		if m.Modality != ModalityCash {
			continue
		}
		day := StartOfDay(m.Date)
		if day.Before(windowStart) || day.After(today) {
			continue
		}
		switch m.Kind {
		case Inflow:
			deltas[day] = deltas[day].Add(m.Amount)
		case Outflow:
			deltas[day] = deltas[day].Sub(m.Amount)
		}
	}

	points := make([]TrendPoint, 0, windowDays)
	running := decimal.Zero
	for day := windowStart; !day.After(today); day = day.AddDate(0, 0, 1) {
		running = running.Add(deltas[day])
		points = append(points, TrendPoint{Date: day, Balance: running})
	}
	return points, nil
}

// =============================================================================
// TODAY SUMMARY
// =============================================================================

// CashSummary aggregates the current calendar day's cash activity.
type CashSummary struct {
	Inflows  decimal.Decimal
	Outflows decimal.Decimal
	Net      decimal.Decimal
	Count    int
}

// TodayCashSummary sums Cash-modality movements restricted to now's
// calendar day.
func TodayCashSummary(movements []Movement, now time.Time) CashSummary {
	s := CashSummary{
		Inflows:  decimal.Zero,
		Outflows: decimal.Zero,
		Net:      decimal.Zero,
	}
	for _, m := range movements {
		if m.Modality != ModalityCash || !SameDay(m.Date, now) {
			continue
		}
		s.Count++
		switch m.Kind {
		case Inflow:
			s.Inflows = s.Inflows.Add(m.Amount)
		case Outflow:
			s.Outflows = s.Outflows.Add(m.Amount)
		}
	}
	s.Net = s.Inflows.Sub(s.Outflows)
	return s
}
