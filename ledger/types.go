/*
Package ledger provides the core treasury ledger and threshold-alerting engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking money
  movements between a company and external parties: advances and their
  reimbursement, disbursements and their justification or return, documents
  (invoices, payslips) and their payment progress, and tenant-configured
  threshold alerts over all of it.

KEY CONCEPTS IN THIS FILE (types.go):
  - Movement: An atomic cash-affecting event (the raw ledger record)
  - Advance: Funds granted to a party, expected to be repaid in cash
  - Disbursement: Funds granted to be spent and justified (or returned)
  - Justification: Proof that disbursed funds were spent; moves no cash
  - Document: An external payment obligation paid down by justifications
  - Alert: A persisted notification of a threshold breach
  - Settings: Per-tenant thresholds and toggles

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for every amount to avoid float drift
  2. Type Safety: Strong typing for IDs prevents mixing tenant/party/entity IDs
  3. Derived fields are caches: remaining/status/paid are recomputed from the
     full dependent set on every mutation, never incrementally adjusted

SEE ALSO:
  - balance.go: Balance calculation from movements
  - disbursement.go / advance.go / document.go: Lifecycle calculators
  - recalc.go: Write-path orchestration and recomputation
  - alerts.go: Threshold evaluation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type TenantID string
type PartyID string
type MovementID string
type AdvanceID string
type DisbursementID string
type JustificationID string
type DocumentID string
type ReconciliationID string
type AlertID string

// =============================================================================
// PARTY - External intervenant (customer, supplier, employee...)
// =============================================================================

type PartyType string

const (
	PartyCustomer PartyType = "customer"
	PartySupplier PartyType = "supplier"
	PartyEmployee PartyType = "employee"
	PartyOther    PartyType = "other"
)

type Party struct {
	ID       PartyID
	TenantID TenantID
	Name     string
	Type     PartyType
	Active   bool
}

// =============================================================================
// MOVEMENT - Atomic cash-affecting event
// =============================================================================

type MovementKind string

const (
	// Inflow is money received by the company (reimbursement, return, sale).
	Inflow MovementKind = "inflow"
	// Outflow is money leaving the company (advance, disbursement, payment).
	Outflow MovementKind = "outflow"
)

// Modality is the settlement channel of a movement. Only Cash-modality
// movements participate in the cash balance and trend calculations.
type Modality string

const (
	ModalityCash     Modality = "cash"
	ModalityCheck    Modality = "check"
	ModalityTransfer Modality = "transfer"
	ModalityStock    Modality = "stock"
	ModalitySalary   Modality = "salary"
	ModalityOther    Modality = "other"
)

// Movement is immutable once created except for manual edit/delete of
// non-system movements, which the surrounding CRUD layer owns. The
// calculators tolerate orphaned Advance/Disbursement back-references.
type Movement struct {
	ID       MovementID
	TenantID TenantID
	Date     time.Time
	PartyID  PartyID
	Kind     MovementKind
	Amount   decimal.Decimal // always > 0; Kind carries the direction
	Modality Modality        // empty when unspecified
	Category string
	Reference string

	IsAdvance      bool
	IsDisbursement bool
	AdvanceID      AdvanceID      // back-reference, empty when unrelated
	DisbursementID DisbursementID // back-reference, empty when unrelated

	CreatedAt time.Time
}

// =============================================================================
// ADVANCE - Grant expected to be repaid in cash
// =============================================================================

type AdvanceStatus string

const (
	AdvanceOngoing         AdvanceStatus = "ongoing"
	AdvancePartiallyRepaid AdvanceStatus = "partially_repaid"
	AdvanceFullyRepaid     AdvanceStatus = "fully_repaid"
)

type Advance struct {
	ID       AdvanceID
	TenantID TenantID
	PartyID  PartyID
	Amount   decimal.Decimal
	DueDate  *time.Time

	// Derived, persisted for query performance. Recomputed by recalc.go.
	Remaining decimal.Decimal
	Status    AdvanceStatus

	// Reimbursement movements, ordered by date. Loaded by the store.
	Reimbursements []Movement

	CreatedAt time.Time
}

// =============================================================================
// DISBURSEMENT - Grant expected to be justified or returned
// =============================================================================

type DisbursementStatus string

const (
	DisbursementOpen               DisbursementStatus = "open"
	DisbursementPartiallyJustified DisbursementStatus = "partially_justified"
	DisbursementJustified          DisbursementStatus = "justified"
)

type Disbursement struct {
	ID            DisbursementID
	TenantID      TenantID
	PartyID       PartyID
	InitialAmount decimal.Decimal
	DueDate       *time.Time

	// Derived, persisted for query performance. Recomputed by recalc.go.
	Remaining decimal.Decimal
	Status    DisbursementStatus

	// Loaded by the store when the full lifecycle is needed.
	Justifications []Justification
	Returns        []Movement

	CreatedAt time.Time
}

// Justification documents that disbursed funds were spent. It does NOT move
// cash. An optional Document link makes it count toward that document's paid
// amount.
type Justification struct {
	ID             JustificationID
	TenantID       TenantID
	DisbursementID DisbursementID
	Date           time.Time
	Amount         decimal.Decimal // > 0, validated <= remaining at write time
	Category       string
	Reference      string
	DocumentID     DocumentID // empty when not document-linked
}

// =============================================================================
// DOCUMENT - External payment obligation
// =============================================================================

type DocumentType string

const (
	DocInvoice       DocumentType = "invoice"
	DocPayslip       DocumentType = "payslip"
	DocPurchaseOrder DocumentType = "purchase_order"
	DocContract      DocumentType = "contract"
)

type DocumentStatus string

const (
	DocumentUnpaid        DocumentStatus = "unpaid"
	DocumentPartiallyPaid DocumentStatus = "partially_paid"
	DocumentPaid          DocumentStatus = "paid"
)

type Document struct {
	ID          DocumentID
	TenantID    TenantID
	Type        DocumentType
	Reference   string // unique per tenant
	TotalAmount decimal.Decimal
	IssueDate   time.Time
	DueDate     *time.Time

	// Derived, persisted. Paid is always the sum of linked justification
	// amounts, recomputed from the full set after every linked mutation.
	PaidAmount      decimal.Decimal
	RemainingAmount decimal.Decimal
	Status          DocumentStatus
}

// =============================================================================
// RECONCILIATION - Cash count against the theoretical balance
// =============================================================================

type Reconciliation struct {
	ID          ReconciliationID
	TenantID    TenantID
	Date        time.Time
	Theoretical decimal.Decimal
	Counted     decimal.Decimal
	Gap         decimal.Decimal // Counted - Theoretical
}

// =============================================================================
// ALERT - Persisted threshold-breach notification
// =============================================================================

type AlertType string

const (
	AlertDebtThreshold                AlertType = "debt_threshold"
	AlertLowCash                      AlertType = "low_cash"
	AlertOverdueDisbursement          AlertType = "overdue_disbursement"
	AlertLongOpenDisbursement         AlertType = "long_open_disbursement"
	AlertHighOutstandingDisbursements AlertType = "high_outstanding_disbursements"
	AlertReconciliationGap            AlertType = "reconciliation_gap"
)

type AlertSeverity string

const (
	SeverityWarning AlertSeverity = "warning"
	SeverityError   AlertSeverity = "error"
)

// Alert is never auto-resolved: a fixed condition leaves a stale alert until
// the user dismisses it. The (Type, RelatedID) pair is the dedup identity,
// with empty RelatedID meaning tenant-wide.
type Alert struct {
	ID        AlertID
	TenantID  TenantID
	Type      AlertType
	Title     string
	Message   string
	Severity  AlertSeverity
	RelatedID string
	Dismissed bool
	CreatedAt time.Time
}

// =============================================================================
// SETTINGS - Per-tenant thresholds and toggles
// =============================================================================

// DefaultOutstandingThreshold applies when a tenant never configured
// DisbursementOutstandingThreshold. Resolved once at load time via
// ApplyDefaults, not at each rule evaluation.
var DefaultOutstandingThreshold = decimal.NewFromInt(10000)

type Settings struct {
	TenantID                         TenantID
	AlertsEnabled                    bool
	DebtThreshold                    decimal.Decimal
	MinCashBalance                   decimal.Decimal
	ReconciliationGapThreshold       decimal.Decimal
	DefaultAdvanceDueDays            int
	DisbursementOutstandingThreshold decimal.Decimal

	// DisbursementOpenDaysWarning exists in tenant configuration but is NOT
	// consulted by the long-open-disbursement rule, which uses a fixed
	// 30-day window. Kept as-is pending product confirmation.
	DisbursementOpenDaysWarning int

	// Currency code, used for message formatting only.
	Currency string
}

// ApplyDefaults resolves unset thresholds. Called once after load.
func (s *Settings) ApplyDefaults() {
	if s.DisbursementOutstandingThreshold.IsZero() {
		s.DisbursementOutstandingThreshold = DefaultOutstandingThreshold
	}
}
