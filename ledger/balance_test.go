package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/ledger"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(n int64) decimal.Decimal {
	return decimal.NewFromInt(n)
}

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func cashIn(amount int64, date time.Time) ledger.Movement {
	return ledger.Movement{Kind: ledger.Inflow, Amount: d(amount), Modality: ledger.ModalityCash, Date: date}
}

func cashOut(amount int64, date time.Time) ledger.Movement {
	return ledger.Movement{Kind: ledger.Outflow, Amount: d(amount), Modality: ledger.ModalityCash, Date: date}
}

// =============================================================================
// PARTY BALANCE TESTS
// =============================================================================

func TestPartyBalance_MixedMovements(t *testing.T) {
	// GIVEN: inflow 1000, outflow 300, inflow 500
	// WHEN: Computing the party balance
	// THEN: 300 - 1000 - 500 = -1200 (the company owes the party)

	movements := []ledger.Movement{
		{Kind: ledger.Inflow, Amount: d(1000)},
		{Kind: ledger.Outflow, Amount: d(300)},
		{Kind: ledger.Inflow, Amount: d(500)},
	}

	got := ledger.PartyBalance(movements)
	if !got.Equal(d(-1200)) {
		t.Errorf("PartyBalance = %s, want -1200", got)
	}
}

func TestPartyBalance_OutflowOnly_IsPositiveDebt(t *testing.T) {
	// GIVEN: Only money sent out to the party
	// THEN: Positive balance means the party owes the company

	movements := []ledger.Movement{
		{Kind: ledger.Outflow, Amount: d(700)},
		{Kind: ledger.Outflow, Amount: d(300)},
	}

	got := ledger.PartyBalance(movements)
	if !got.Equal(d(1000)) {
		t.Errorf("PartyBalance = %s, want 1000", got)
	}
}

func TestPartyBalance_Empty_IsZero(t *testing.T) {
	got := ledger.PartyBalance(nil)
	if !got.IsZero() {
		t.Errorf("PartyBalance(nil) = %s, want 0", got)
	}
}

func TestPartyBalance_OrderFree(t *testing.T) {
	// GIVEN: The same movements in two different orders
	// THEN: Identical balance

	a := []ledger.Movement{
		{Kind: ledger.Outflow, Amount: d(250)},
		{Kind: ledger.Inflow, Amount: d(100)},
		{Kind: ledger.Outflow, Amount: d(50)},
	}
	b := []ledger.Movement{a[2], a[0], a[1]}

	if !ledger.PartyBalance(a).Equal(ledger.PartyBalance(b)) {
		t.Errorf("PartyBalance is order-sensitive: %s vs %s", ledger.PartyBalance(a), ledger.PartyBalance(b))
	}
}

// =============================================================================
// CASH BALANCE TESTS - Note the inverted sign convention
// =============================================================================

func TestTheoreticalCashBalance_InvertedSign(t *testing.T) {
	// GIVEN: Cash inflow 1000 and cash outflow 300
	// THEN: 1000 - 300 = 700 cash on hand (inflow raises the till)

	movements := []ledger.Movement{
		cashIn(1000, day(2026, time.March, 1)),
		cashOut(300, day(2026, time.March, 2)),
	}

	got := ledger.TheoreticalCashBalance(movements)
	if !got.Equal(d(700)) {
		t.Errorf("TheoreticalCashBalance = %s, want 700", got)
	}
}

func TestTheoreticalCashBalance_IgnoresNonCash(t *testing.T) {
	// GIVEN: A cash inflow plus check and transfer movements
	// THEN: Only the cash movement counts

	movements := []ledger.Movement{
		cashIn(500, day(2026, time.March, 1)),
		{Kind: ledger.Inflow, Amount: d(9999), Modality: ledger.ModalityCheck},
		{Kind: ledger.Outflow, Amount: d(9999), Modality: ledger.ModalityTransfer},
		{Kind: ledger.Outflow, Amount: d(9999)}, // no modality at all
	}

	got := ledger.TheoreticalCashBalance(movements)
	if !got.Equal(d(500)) {
		t.Errorf("TheoreticalCashBalance = %s, want 500", got)
	}
}

// =============================================================================
// TREND SERIES TESTS
// =============================================================================

func TestCashBalanceTrend_ExactWindowLength(t *testing.T) {
	// GIVEN: A 7-day window with a single movement
	// THEN: Exactly 7 points, consecutive days, ending today

	now := day(2026, time.March, 10)
	movements := []ledger.Movement{cashIn(100, day(2026, time.March, 8))}

	points, err := ledger.CashBalanceTrend(movements, 7, now)
	if err != nil {
		t.Fatalf("CashBalanceTrend: %v", err)
	}
	if len(points) != 7 {
		t.Fatalf("got %d points, want 7", len(points))
	}
	if !points[0].Date.Equal(day(2026, time.March, 4)) {
		t.Errorf("first point on %s, want 2026-03-04", points[0].Date)
	}
	if !points[6].Date.Equal(day(2026, time.March, 10)) {
		t.Errorf("last point on %s, want 2026-03-10", points[6].Date)
	}
	for i := 1; i < len(points); i++ {
		if !points[i].Date.Equal(points[i-1].Date.AddDate(0, 0, 1)) {
			t.Errorf("dates not consecutive at index %d", i)
		}
	}
}

func TestCashBalanceTrend_CarriesRunningTotalThroughEmptyDays(t *testing.T) {
	// GIVEN: +100 on day 2 and -40 on day 4 of a 5-day window
	// THEN: 0, 100, 100, 60, 60 (quiet days carry the prior total)

	now := day(2026, time.March, 5)
	movements := []ledger.Movement{
		cashIn(100, day(2026, time.March, 2)),
		cashOut(40, day(2026, time.March, 4)),
	}

	points, err := ledger.CashBalanceTrend(movements, 5, now)
	if err != nil {
		t.Fatalf("CashBalanceTrend: %v", err)
	}

	want := []int64{0, 100, 100, 60, 60}
	for i, w := range want {
		if !points[i].Balance.Equal(d(w)) {
			t.Errorf("point %d balance = %s, want %d", i, points[i].Balance, w)
		}
	}
}

func TestCashBalanceTrend_ExcludesMovementsBeforeWindow(t *testing.T) {
	// GIVEN: A large inflow well before the window
	// THEN: The series starts from zero, not from that inflow

	now := day(2026, time.March, 10)
	movements := []ledger.Movement{
		cashIn(5000, day(2026, time.January, 1)),
		cashIn(10, day(2026, time.March, 10)),
	}

	points, err := ledger.CashBalanceTrend(movements, 3, now)
	if err != nil {
		t.Fatalf("CashBalanceTrend: %v", err)
	}
	if !points[2].Balance.Equal(d(10)) {
		t.Errorf("final balance = %s, want 10", points[2].Balance)
	}
}

func TestCashBalanceTrend_InvalidWindow(t *testing.T) {
	for _, days := range []int{0, -5} {
		_, err := ledger.CashBalanceTrend(nil, days, day(2026, time.March, 1))
		if !errors.Is(err, ledger.ErrInvalidWindow) {
			t.Errorf("windowDays=%d: err = %v, want ErrInvalidWindow", days, err)
		}
	}
}

// =============================================================================
// TODAY SUMMARY TESTS
// =============================================================================

func TestTodayCashSummary(t *testing.T) {
	// GIVEN: Two cash movements today, one yesterday, one non-cash today
	// THEN: Only today's cash activity is summed

	now := time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)
	movements := []ledger.Movement{
		cashIn(200, day(2026, time.March, 10)),
		cashOut(50, day(2026, time.March, 10)),
		cashIn(999, day(2026, time.March, 9)),
		{Kind: ledger.Inflow, Amount: d(999), Modality: ledger.ModalityCheck, Date: day(2026, time.March, 10)},
	}

	s := ledger.TodayCashSummary(movements, now)
	if !s.Inflows.Equal(d(200)) || !s.Outflows.Equal(d(50)) || !s.Net.Equal(d(150)) {
		t.Errorf("summary = in %s out %s net %s, want 200/50/150", s.Inflows, s.Outflows, s.Net)
	}
	if s.Count != 2 {
		t.Errorf("count = %d, want 2", s.Count)
	}
}
