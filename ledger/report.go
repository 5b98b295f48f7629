/*
report.go - Aggregation service

PURPOSE:
  Orchestrates the calculators against the store to produce per-party
  balance reports and the cash dashboard figures.

THE EXIT ADJUSTMENT (the one non-obvious rule):
  A party's raw exits overstate its debt when disbursed funds were later
  matched to a document (salary paid, invoice settled). For each party:

    adjustedExits = totalExits - sum(document-linked justification amounts
                                     over the party's disbursements)
    balance       = adjustedExits - totalEntries

  A naive PartyBalance over the same movements would count those settled
  funds as outstanding debt. Preserve this adjustment exactly.

SEE ALSO:
  - balance.go: The pure calculators these orchestrations delegate to
*/
package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// REPORT TYPES
// =============================================================================

// PartyBalanceFilter narrows AllPartyBalances by party type and date range.
type PartyBalanceFilter struct {
	PartyType *PartyType
	DateFrom  *time.Time
	DateTo    *time.Time
}

// PartyBalanceReport is one row of the per-party balance report.
type PartyBalanceReport struct {
	PartyID   PartyID
	PartyName string
	PartyType PartyType

	TotalEntries  decimal.Decimal // sum of inflows
	TotalExits    decimal.Decimal // sum of outflows, unadjusted
	AdjustedExits decimal.Decimal // exits minus document-linked justifications
	Balance       decimal.Decimal // AdjustedExits - TotalEntries

	MovementCount    int
	LastMovementDate *time.Time
}

// =============================================================================
// REPORT SERVICE
// =============================================================================

// ReportService produces tenant-level reports. It holds no state beyond its
// store; every call recomputes from current records.
type ReportService struct {
	Store Store

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewReportService(store Store) *ReportService {
	return &ReportService{Store: store}
}

func (rs *ReportService) now() time.Time {
	if rs.Now != nil {
		return rs.Now()
	}
	return time.Now()
}

// AllPartyBalances returns one report per active party matching the filter,
// sorted by balance descending (highest debt first).
func (rs *ReportService) AllPartyBalances(ctx context.Context, tenant TenantID, filter PartyBalanceFilter) ([]PartyBalanceReport, error) {
	parties, err := rs.Store.ListActiveParties(ctx, tenant, filter.PartyType)
	if err != nil {
		return nil, err
	}

	reports := make([]PartyBalanceReport, 0, len(parties))
	for _, p := range parties {
		report, err := rs.partyBalance(ctx, tenant, p, filter)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Balance.GreaterThan(reports[j].Balance)
	})
	return reports, nil
}

func (rs *ReportService) partyBalance(ctx context.Context, tenant TenantID, p Party, filter PartyBalanceFilter) (PartyBalanceReport, error) {
	movements, err := rs.Store.MovementsForParty(ctx, tenant, p.ID, filter.DateFrom, filter.DateTo)
	if err != nil {
		return PartyBalanceReport{}, err
	}

	report := PartyBalanceReport{
		PartyID:       p.ID,
		PartyName:     p.Name,
		PartyType:     p.Type,
		TotalEntries:  decimal.Zero,
		TotalExits:    decimal.Zero,
		MovementCount: len(movements),
	}

	for _, m := range movements {
		switch m.Kind {
		case Inflow:
			report.TotalEntries = report.TotalEntries.Add(m.Amount)
		case Outflow:
			report.TotalExits = report.TotalExits.Add(m.Amount)
		}
		if report.LastMovementDate == nil || m.Date.After(*report.LastMovementDate) {
			d := m.Date
			report.LastMovementDate = &d
		}
	}

	settled, err := rs.settledViaDocuments(ctx, tenant, p.ID, filter)
	if err != nil {
		return PartyBalanceReport{}, err
	}

	report.AdjustedExits = report.TotalExits.Sub(settled)
	report.Balance = report.AdjustedExits.Sub(report.TotalEntries)
	return report, nil
}

// settledViaDocuments sums the party's document-linked disbursement
// justifications: funds that left as disbursements but were matched to a
// payment obligation, hence not outstanding debt. The report's date filter
// applies to justification dates the same way it applies to movements.
func (rs *ReportService) settledViaDocuments(ctx context.Context, tenant TenantID, party PartyID, filter PartyBalanceFilter) (decimal.Decimal, error) {
	disbursements, err := rs.Store.DisbursementsForParty(ctx, tenant, party)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, d := range disbursements {
		for _, j := range d.Justifications {
			if j.DocumentID == "" {
				continue
			}
			if filter.DateFrom != nil && j.Date.Before(*filter.DateFrom) {
				continue
			}
			if filter.DateTo != nil && j.Date.After(*filter.DateTo) {
				continue
			}
			total = total.Add(j.Amount)
		}
	}
	return total, nil
}

// =============================================================================
// CASH ORCHESTRATIONS - Thin delegations to balance.go
// =============================================================================

// CurrentCashBalance returns the theoretical cash balance over all of the
// tenant's cash movements.
func (rs *ReportService) CurrentCashBalance(ctx context.Context, tenant TenantID) (decimal.Decimal, error) {
	movements, err := rs.Store.CashMovements(ctx, tenant)
	if err != nil {
		return decimal.Zero, err
	}
	return TheoreticalCashBalance(movements), nil
}

// CashBalanceTrend returns the daily running cash balance for the trailing
// window.
func (rs *ReportService) CashBalanceTrend(ctx context.Context, tenant TenantID, windowDays int) ([]TrendPoint, error) {
	movements, err := rs.Store.CashMovements(ctx, tenant)
	if err != nil {
		return nil, err
	}
	return CashBalanceTrend(movements, windowDays, rs.now())
}

// TodayCashSummary returns the current day's cash activity.
func (rs *ReportService) TodayCashSummary(ctx context.Context, tenant TenantID) (CashSummary, error) {
	movements, err := rs.Store.CashMovements(ctx, tenant)
	if err != nil {
		return CashSummary{}, err
	}
	return TodayCashSummary(movements, rs.now()), nil
}

// RecentCashMovements returns the newest cash movements, at most limit.
func (rs *ReportService) RecentCashMovements(ctx context.Context, tenant TenantID, limit int) ([]Movement, error) {
	return rs.Store.RecentCashMovements(ctx, tenant, limit)
}
