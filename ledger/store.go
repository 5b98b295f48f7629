/*
store.go - Tenant-scoped data-access interfaces

PURPOSE:
  Defines the boundary between the engine and the storage collaborator.
  The engine consumes these interfaces; it never talks to a database
  directly. Implementations: store/sqlite (production), ledger/store
  (in-memory, tests/dev).

TENANT SCOPING:
  Every method takes a TenantID and must treat it as a security boundary:
  an entity under a different tenant is ErrNotFound, not a hit.

NIL-NOT-ERROR CONVENTION:
  GetSettings and LatestReconciliation return (nil, nil) when the record
  simply does not exist. Missing settings is a defined "alerts disabled"
  state, not a failure.

TRANSACTIONS:
  TxStore.WithTx runs fn against a transactional view. Mutation plus derived
  recomputation must share one transaction (see recalc.go); two concurrent
  justification writes could otherwise race and leave a stale remaining.

ALERT DEDUP:
  InsertAlert MAY enforce uniqueness on (tenant, type, relatedID,
  dismissed=false) and return ErrDuplicateAlert on conflict. The evaluator
  treats that as "already exists, skip", which closes the check-then-act
  race between concurrent evaluator runs.
*/
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the tenant-scoped read/write surface the engine consumes.
type Store interface {
	// -- Parties and movements --------------------------------------------

	// ListActiveParties returns the tenant's active parties, optionally
	// filtered by type.
	ListActiveParties(ctx context.Context, tenant TenantID, partyType *PartyType) ([]Party, error)

	// MovementsForParty returns a party's movements, optionally bounded by
	// [from, to] (inclusive), ordered by date ascending.
	MovementsForParty(ctx context.Context, tenant TenantID, party PartyID, from, to *time.Time) ([]Movement, error)

	// CashMovements returns all Cash-modality movements for the tenant,
	// ordered by date ascending.
	CashMovements(ctx context.Context, tenant TenantID) ([]Movement, error)

	// RecentCashMovements returns the most recent Cash-modality movements,
	// newest first, at most limit entries.
	RecentCashMovements(ctx context.Context, tenant TenantID, limit int) ([]Movement, error)

	// CreateMovement persists a movement (returns, reimbursements).
	CreateMovement(ctx context.Context, m Movement) error

	// -- Advances ----------------------------------------------------------

	// GetAdvance returns the advance with its reimbursements loaded.
	GetAdvance(ctx context.Context, tenant TenantID, id AdvanceID) (*Advance, error)

	// SaveAdvanceDerived persists recomputed remaining and status.
	SaveAdvanceDerived(ctx context.Context, tenant TenantID, id AdvanceID, remaining decimal.Decimal, status AdvanceStatus) error

	// -- Disbursements -----------------------------------------------------

	// GetDisbursement returns the disbursement with justifications and
	// returns loaded.
	GetDisbursement(ctx context.Context, tenant TenantID, id DisbursementID) (*Disbursement, error)

	// ListOpenDisbursements returns disbursements with status != Justified.
	// Collections are not loaded; the persisted derived fields are current
	// by the recalc contract.
	ListOpenDisbursements(ctx context.Context, tenant TenantID) ([]Disbursement, error)

	// DisbursementsForParty returns a party's disbursements with their
	// justifications loaded (for the document-linked exit adjustment).
	DisbursementsForParty(ctx context.Context, tenant TenantID, party PartyID) ([]Disbursement, error)

	// SaveDisbursementDerived persists recomputed remaining and status.
	SaveDisbursementDerived(ctx context.Context, tenant TenantID, id DisbursementID, remaining decimal.Decimal, status DisbursementStatus) error

	// -- Justifications ----------------------------------------------------

	GetJustification(ctx context.Context, tenant TenantID, id JustificationID) (*Justification, error)
	CreateJustification(ctx context.Context, j Justification) error
	UpdateJustification(ctx context.Context, j Justification) error
	DeleteJustification(ctx context.Context, tenant TenantID, id JustificationID) error

	// JustificationsForDocument returns all justifications linked to the
	// document. This is the full dependent set for the paid recomputation.
	JustificationsForDocument(ctx context.Context, tenant TenantID, doc DocumentID) ([]Justification, error)

	// -- Documents ---------------------------------------------------------

	GetDocument(ctx context.Context, tenant TenantID, id DocumentID) (*Document, error)

	// DocumentByReference returns (nil, nil) when no document carries the
	// reference. Used for per-tenant uniqueness checks.
	DocumentByReference(ctx context.Context, tenant TenantID, reference string) (*Document, error)

	CreateDocument(ctx context.Context, d Document) error
	UpdateDocument(ctx context.Context, d Document) error
	DeleteDocument(ctx context.Context, tenant TenantID, id DocumentID) error

	// SaveDocumentDerived persists recomputed paid, remaining, and status.
	SaveDocumentDerived(ctx context.Context, tenant TenantID, id DocumentID, paid, remaining decimal.Decimal, status DocumentStatus) error

	// -- Settings and reconciliation --------------------------------------

	// GetSettings returns (nil, nil) when the tenant has no settings record.
	GetSettings(ctx context.Context, tenant TenantID) (*Settings, error)

	// LatestReconciliation returns the most recent reconciliation record,
	// or (nil, nil) when the tenant has none.
	LatestReconciliation(ctx context.Context, tenant TenantID) (*Reconciliation, error)

	// -- Alerts ------------------------------------------------------------

	// HasActiveAlert reports whether an undismissed alert with the same
	// (type, relatedID) identity exists. Empty relatedID is part of the
	// identity, not a wildcard.
	HasActiveAlert(ctx context.Context, tenant TenantID, alertType AlertType, relatedID string) (bool, error)

	InsertAlert(ctx context.Context, a Alert) error
	ListAlerts(ctx context.Context, tenant TenantID, includeDismissed bool) ([]Alert, error)
	DismissAlert(ctx context.Context, tenant TenantID, id AlertID) error
}

// TxStore wraps Store with transaction support. Use this for every mutation
// that also recomputes derived fields.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
