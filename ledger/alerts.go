/*
alerts.go - Threshold evaluation and alert emission

PURPOSE:
  Evaluates six independent threshold rules against current aggregated state
  and persists one alert per breach, suppressing duplicates of alerts that
  are already active.

EVALUATION CONTRACT:
  - Missing settings, or AlertsEnabled = false, short-circuits: no downstream
    reads, empty result, no error.
  - Each candidate is persisted only if no undismissed alert with the same
    (type, relatedID) identity exists. Empty relatedID participates in the
    identity (tenant-wide alerts dedup against each other).
  - Re-running against unchanged state therefore creates nothing: the
    evaluator is idempotent.
  - Alerts are never auto-resolved; only user dismissal clears them.
  - Storage errors propagate uncaught. No retries here; scheduling and
    per-tenant serialization belong to the caller. Stores that enforce the
    dedup key return ErrDuplicateAlert on conflict, which is treated as
    "already exists, skip".

RULES:
  1. DebtThreshold            party balance > debt threshold      Warning
  2. LowCash                  cash balance < minimum              Error
  3. OverdueDisbursement      due date past, not justified        Warning
  4. LongOpenDisbursement     open for more than 30 days          Warning
  5. HighOutstanding          sum of open remainings > threshold  Warning
  6. ReconciliationGap        |latest gap| > gap threshold        Error

SEE ALSO:
  - report.go: Supplies the party balances rule 1 scans
  - store.go: HasActiveAlert / InsertAlert dedup surface
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// longOpenDisbursementDays is fixed. Settings.DisbursementOpenDaysWarning is
// deliberately not consulted here; see that field's comment.
const longOpenDisbursementDays = 30

// AlertEvaluator runs the threshold rules for one tenant per call. It is
// stateless between calls; dedup state lives in the store.
type AlertEvaluator struct {
	Store   Store
	Reports *ReportService

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewAlertEvaluator(store Store) *AlertEvaluator {
	return &AlertEvaluator{Store: store, Reports: NewReportService(store)}
}

func (e *AlertEvaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// candidate is a rule's proposed alert before dedup.
type candidate struct {
	Type      AlertType
	Title     string
	Message   string
	Severity  AlertSeverity
	RelatedID string
}

// Evaluate runs all six rules and returns the newly created alerts.
func (e *AlertEvaluator) Evaluate(ctx context.Context, tenant TenantID) ([]Alert, error) {
	settings, err := e.Store.GetSettings(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if settings == nil || !settings.AlertsEnabled {
		// Missing settings is a defined "alerts disabled" state.
		return nil, nil
	}
	settings.ApplyDefaults()

	now := e.now()
	var candidates []candidate

	cs, err := e.debtThreshold(ctx, tenant, settings)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, cs...)

	cs, err = e.lowCash(ctx, tenant, settings)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, cs...)

	cs, err = e.disbursementRules(ctx, tenant, settings, now)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, cs...)

	cs, err = e.reconciliationGap(ctx, tenant, settings)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, cs...)

	return e.persistNew(ctx, tenant, candidates, now)
}

// persistNew inserts each candidate unless an undismissed alert with the
// same (type, relatedID) already exists.
func (e *AlertEvaluator) persistNew(ctx context.Context, tenant TenantID, candidates []candidate, now time.Time) ([]Alert, error) {
	var created []Alert
	for _, c := range candidates {
		exists, err := e.Store.HasActiveAlert(ctx, tenant, c.Type, c.RelatedID)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}

		a := Alert{
			ID:        AlertID(uuid.NewString()),
			TenantID:  tenant,
			Type:      c.Type,
			Title:     c.Title,
			Message:   c.Message,
			Severity:  c.Severity,
			RelatedID: c.RelatedID,
			CreatedAt: now,
		}
		if err := e.Store.InsertAlert(ctx, a); err != nil {
			if errors.Is(err, ErrDuplicateAlert) {
				// A concurrent run won the race; same outcome as the
				// HasActiveAlert skip.
				continue
			}
			return created, err
		}
		created = append(created, a)
	}
	return created, nil
}

// =============================================================================
// RULES
// =============================================================================

func (e *AlertEvaluator) debtThreshold(ctx context.Context, tenant TenantID, settings *Settings) ([]candidate, error) {
	reports, err := e.Reports.AllPartyBalances(ctx, tenant, PartyBalanceFilter{})
	if err != nil {
		return nil, err
	}

	var out []candidate
	for _, r := range reports {
		if !r.Balance.GreaterThan(settings.DebtThreshold) {
			continue
		}
		out = append(out, candidate{
			Type:      AlertDebtThreshold,
			Title:     "Debt threshold exceeded",
			Message:   fmt.Sprintf("%s owes %s %s, above the configured threshold of %s %s", r.PartyName, r.Balance, settings.Currency, settings.DebtThreshold, settings.Currency),
			Severity:  SeverityWarning,
			RelatedID: string(r.PartyID),
		})
	}
	return out, nil
}

func (e *AlertEvaluator) lowCash(ctx context.Context, tenant TenantID, settings *Settings) ([]candidate, error) {
	movements, err := e.Store.CashMovements(ctx, tenant)
	if err != nil {
		return nil, err
	}
	balance := TheoreticalCashBalance(movements)
	if !balance.LessThan(settings.MinCashBalance) {
		return nil, nil
	}
	return []candidate{{
		Type:     AlertLowCash,
		Title:    "Cash balance below minimum",
		Message:  fmt.Sprintf("Theoretical cash balance %s %s is below the minimum of %s %s", balance, settings.Currency, settings.MinCashBalance, settings.Currency),
		Severity: SeverityError,
		// Tenant-wide: empty RelatedID, so at most one is ever active.
	}}, nil
}

// disbursementRules shares one ListOpenDisbursements scan across rules 3-5.
func (e *AlertEvaluator) disbursementRules(ctx context.Context, tenant TenantID, settings *Settings, now time.Time) ([]candidate, error) {
	open, err := e.Store.ListOpenDisbursements(ctx, tenant)
	if err != nil {
		return nil, err
	}

	var out []candidate
	outstanding := decimal.Zero
	longOpenCutoff := now.AddDate(0, 0, -longOpenDisbursementDays)

	for _, d := range open {
		outstanding = outstanding.Add(d.Remaining)

		if IsOverdue(d, now) {
			out = append(out, candidate{
				Type:      AlertOverdueDisbursement,
				Title:     "Disbursement overdue",
				Message:   fmt.Sprintf("Disbursement of %s %s was due on %s and is not fully justified", d.InitialAmount, settings.Currency, d.DueDate.Format("2006-01-02")),
				Severity:  SeverityWarning,
				RelatedID: string(d.ID),
			})
		}

		if d.CreatedAt.Before(longOpenCutoff) {
			out = append(out, candidate{
				Type:      AlertLongOpenDisbursement,
				Title:     "Disbursement open too long",
				Message:   fmt.Sprintf("Disbursement of %s %s has been open for %d days without full justification", d.InitialAmount, settings.Currency, DaysOutstanding(d, now)),
				Severity:  SeverityWarning,
				RelatedID: string(d.ID),
			})
		}
	}

	if outstanding.GreaterThan(settings.DisbursementOutstandingThreshold) {
		out = append(out, candidate{
			Type:     AlertHighOutstandingDisbursements,
			Title:    "Outstanding disbursements too high",
			Message:  fmt.Sprintf("Unjustified disbursements total %s %s, above the threshold of %s %s", outstanding, settings.Currency, settings.DisbursementOutstandingThreshold, settings.Currency),
			Severity: SeverityWarning,
		})
	}
	return out, nil
}

func (e *AlertEvaluator) reconciliationGap(ctx context.Context, tenant TenantID, settings *Settings) ([]candidate, error) {
	rec, err := e.Store.LatestReconciliation(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Gap.Abs().GreaterThan(settings.ReconciliationGapThreshold) {
		return nil, nil
	}
	return []candidate{{
		Type:      AlertReconciliationGap,
		Title:     "Reconciliation gap",
		Message:   fmt.Sprintf("Cash count on %s differs from the theoretical balance by %s %s", rec.Date.Format("2006-01-02"), rec.Gap, settings.Currency),
		Severity:  SeverityError,
		RelatedID: string(rec.ID),
	}}, nil
}
