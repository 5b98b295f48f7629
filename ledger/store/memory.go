/*
Package store provides an in-memory ledger.Store implementation.

PURPOSE:
  Backs the engine's tests and local development. Mirrors the semantics the
  SQLite store provides in production: tenant scoping on every lookup,
  (nil, nil) for absent settings/reconciliations, alert dedup conflict on
  insert, and snapshot-rollback transactions.

CONCURRENCY:
  A RWMutex guards the maps per operation. WithTx additionally serializes
  whole transactions and restores a deep snapshot when fn fails, giving the
  all-or-nothing behavior the write path relies on.
*/
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/ledger"
)

// Memory implements ledger.Store and ledger.TxStore.
type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex // serializes WithTx blocks

	parties         map[ledger.PartyID]ledger.Party
	movements       []ledger.Movement
	advances        map[ledger.AdvanceID]ledger.Advance
	disbursements   map[ledger.DisbursementID]ledger.Disbursement
	justifications  map[ledger.JustificationID]ledger.Justification
	documents       map[ledger.DocumentID]ledger.Document
	settings        map[ledger.TenantID]ledger.Settings
	reconciliations []ledger.Reconciliation
	alerts          map[ledger.AlertID]ledger.Alert
}

func NewMemory() *Memory {
	return &Memory{
		parties:        make(map[ledger.PartyID]ledger.Party),
		advances:       make(map[ledger.AdvanceID]ledger.Advance),
		disbursements:  make(map[ledger.DisbursementID]ledger.Disbursement),
		justifications: make(map[ledger.JustificationID]ledger.Justification),
		documents:      make(map[ledger.DocumentID]ledger.Document),
		settings:       make(map[ledger.TenantID]ledger.Settings),
		alerts:         make(map[ledger.AlertID]ledger.Alert),
	}
}

// =============================================================================
// SEEDING HELPERS - Not part of ledger.Store; used by tests and dev setup
// =============================================================================

func (m *Memory) SaveParty(p ledger.Party) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parties[p.ID] = p
}

func (m *Memory) SaveAdvance(a ledger.Advance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Reimbursements = nil // assembled on read
	m.advances[a.ID] = a
}

func (m *Memory) SaveDisbursement(d ledger.Disbursement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.Justifications = nil // assembled on read
	d.Returns = nil
	m.disbursements[d.ID] = d
}

func (m *Memory) SaveSettings(s ledger.Settings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.TenantID] = s
}

func (m *Memory) AddReconciliation(r ledger.Reconciliation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations = append(m.reconciliations, r)
}

// =============================================================================
// PARTIES AND MOVEMENTS
// =============================================================================

func (m *Memory) ListActiveParties(_ context.Context, tenant ledger.TenantID, partyType *ledger.PartyType) ([]ledger.Party, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Party
	for _, p := range m.parties {
		if p.TenantID != tenant || !p.Active {
			continue
		}
		if partyType != nil && p.Type != *partyType {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) MovementsForParty(_ context.Context, tenant ledger.TenantID, party ledger.PartyID, from, to *time.Time) ([]ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Movement
	for _, mv := range m.movements {
		if mv.TenantID != tenant || mv.PartyID != party {
			continue
		}
		if from != nil && mv.Date.Before(*from) {
			continue
		}
		if to != nil && mv.Date.After(*to) {
			continue
		}
		out = append(out, mv)
	}
	sortByDate(out)
	return out, nil
}

func (m *Memory) CashMovements(_ context.Context, tenant ledger.TenantID) ([]ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Movement
	for _, mv := range m.movements {
		if mv.TenantID == tenant && mv.Modality == ledger.ModalityCash {
			out = append(out, mv)
		}
	}
	sortByDate(out)
	return out, nil
}

func (m *Memory) RecentCashMovements(_ context.Context, tenant ledger.TenantID, limit int) ([]ledger.Movement, error) {
	all, _ := m.CashMovements(context.Background(), tenant)
	// Newest first.
	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *Memory) CreateMovement(_ context.Context, mv ledger.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, mv)
	return nil
}

func sortByDate(movements []ledger.Movement) {
	sort.SliceStable(movements, func(i, j int) bool { return movements[i].Date.Before(movements[j].Date) })
}

// =============================================================================
// ADVANCES
// =============================================================================

func (m *Memory) GetAdvance(_ context.Context, tenant ledger.TenantID, id ledger.AdvanceID) (*ledger.Advance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.advances[id]
	if !ok || a.TenantID != tenant {
		return nil, ledger.ErrNotFound
	}
	for _, mv := range m.movements {
		if mv.IsAdvance && mv.AdvanceID == id && mv.Kind == ledger.Inflow {
			a.Reimbursements = append(a.Reimbursements, mv)
		}
	}
	sortByDate(a.Reimbursements)
	return &a, nil
}

func (m *Memory) SaveAdvanceDerived(_ context.Context, tenant ledger.TenantID, id ledger.AdvanceID, remaining decimal.Decimal, status ledger.AdvanceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.advances[id]
	if !ok || a.TenantID != tenant {
		return ledger.ErrNotFound
	}
	a.Remaining = remaining
	a.Status = status
	m.advances[id] = a
	return nil
}

// =============================================================================
// DISBURSEMENTS
// =============================================================================

func (m *Memory) GetDisbursement(_ context.Context, tenant ledger.TenantID, id ledger.DisbursementID) (*ledger.Disbursement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getDisbursementLocked(tenant, id)
}

func (m *Memory) getDisbursementLocked(tenant ledger.TenantID, id ledger.DisbursementID) (*ledger.Disbursement, error) {
	d, ok := m.disbursements[id]
	if !ok || d.TenantID != tenant {
		return nil, ledger.ErrNotFound
	}
	for _, j := range m.justifications {
		if j.DisbursementID == id {
			d.Justifications = append(d.Justifications, j)
		}
	}
	sort.SliceStable(d.Justifications, func(i, k int) bool {
		return d.Justifications[i].Date.Before(d.Justifications[k].Date)
	})
	for _, mv := range m.movements {
		if mv.IsDisbursement && mv.DisbursementID == id && mv.Kind == ledger.Inflow {
			d.Returns = append(d.Returns, mv)
		}
	}
	sortByDate(d.Returns)
	return &d, nil
}

func (m *Memory) ListOpenDisbursements(_ context.Context, tenant ledger.TenantID) ([]ledger.Disbursement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Disbursement
	for _, d := range m.disbursements {
		if d.TenantID == tenant && d.Status != ledger.DisbursementJustified {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DisbursementsForParty(_ context.Context, tenant ledger.TenantID, party ledger.PartyID) ([]ledger.Disbursement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Disbursement
	for id, d := range m.disbursements {
		if d.TenantID != tenant || d.PartyID != party {
			continue
		}
		loaded, err := m.getDisbursementLocked(tenant, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *loaded)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SaveDisbursementDerived(_ context.Context, tenant ledger.TenantID, id ledger.DisbursementID, remaining decimal.Decimal, status ledger.DisbursementStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.disbursements[id]
	if !ok || d.TenantID != tenant {
		return ledger.ErrNotFound
	}
	d.Remaining = remaining
	d.Status = status
	m.disbursements[id] = d
	return nil
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

func (m *Memory) GetJustification(_ context.Context, tenant ledger.TenantID, id ledger.JustificationID) (*ledger.Justification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	j, ok := m.justifications[id]
	if !ok || j.TenantID != tenant {
		return nil, ledger.ErrNotFound
	}
	return &j, nil
}

func (m *Memory) CreateJustification(_ context.Context, j ledger.Justification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.justifications[j.ID] = j
	return nil
}

func (m *Memory) UpdateJustification(_ context.Context, j ledger.Justification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.justifications[j.ID]
	if !ok || existing.TenantID != j.TenantID {
		return ledger.ErrNotFound
	}
	m.justifications[j.ID] = j
	return nil
}

func (m *Memory) DeleteJustification(_ context.Context, tenant ledger.TenantID, id ledger.JustificationID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	j, ok := m.justifications[id]
	if !ok || j.TenantID != tenant {
		return ledger.ErrNotFound
	}
	delete(m.justifications, id)
	return nil
}

func (m *Memory) JustificationsForDocument(_ context.Context, tenant ledger.TenantID, doc ledger.DocumentID) ([]ledger.Justification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Justification
	for _, j := range m.justifications {
		if j.TenantID == tenant && j.DocumentID == doc {
			out = append(out, j)
		}
	}
	sort.SliceStable(out, func(i, k int) bool { return out[i].Date.Before(out[k].Date) })
	return out, nil
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (m *Memory) GetDocument(_ context.Context, tenant ledger.TenantID, id ledger.DocumentID) (*ledger.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.documents[id]
	if !ok || d.TenantID != tenant {
		return nil, ledger.ErrNotFound
	}
	return &d, nil
}

func (m *Memory) DocumentByReference(_ context.Context, tenant ledger.TenantID, reference string) (*ledger.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, d := range m.documents {
		if d.TenantID == tenant && d.Reference == reference {
			doc := d
			return &doc, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateDocument(_ context.Context, d ledger.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[d.ID] = d
	return nil
}

func (m *Memory) UpdateDocument(_ context.Context, d ledger.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.documents[d.ID]
	if !ok || existing.TenantID != d.TenantID {
		return ledger.ErrNotFound
	}
	m.documents[d.ID] = d
	return nil
}

func (m *Memory) DeleteDocument(_ context.Context, tenant ledger.TenantID, id ledger.DocumentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok || d.TenantID != tenant {
		return ledger.ErrNotFound
	}
	delete(m.documents, id)
	return nil
}

func (m *Memory) SaveDocumentDerived(_ context.Context, tenant ledger.TenantID, id ledger.DocumentID, paid, remaining decimal.Decimal, status ledger.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.documents[id]
	if !ok || d.TenantID != tenant {
		return ledger.ErrNotFound
	}
	d.PaidAmount = paid
	d.RemainingAmount = remaining
	d.Status = status
	m.documents[id] = d
	return nil
}

// =============================================================================
// SETTINGS AND RECONCILIATION
// =============================================================================

func (m *Memory) GetSettings(_ context.Context, tenant ledger.TenantID) (*ledger.Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[tenant]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) LatestReconciliation(_ context.Context, tenant ledger.TenantID) (*ledger.Reconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var latest *ledger.Reconciliation
	for i := range m.reconciliations {
		r := m.reconciliations[i]
		if r.TenantID != tenant {
			continue
		}
		if latest == nil || r.Date.After(latest.Date) {
			latest = &r
		}
	}
	return latest, nil
}

// =============================================================================
// ALERTS
// =============================================================================

func (m *Memory) HasActiveAlert(_ context.Context, tenant ledger.TenantID, alertType ledger.AlertType, relatedID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasActiveAlertLocked(tenant, alertType, relatedID), nil
}

func (m *Memory) hasActiveAlertLocked(tenant ledger.TenantID, alertType ledger.AlertType, relatedID string) bool {
	for _, a := range m.alerts {
		if a.TenantID == tenant && a.Type == alertType && a.RelatedID == relatedID && !a.Dismissed {
			return true
		}
	}
	return false
}

func (m *Memory) InsertAlert(_ context.Context, a ledger.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Enforce the dedup key the way the SQLite unique index does.
	if m.hasActiveAlertLocked(a.TenantID, a.Type, a.RelatedID) {
		return ledger.ErrDuplicateAlert
	}
	m.alerts[a.ID] = a
	return nil
}

func (m *Memory) ListAlerts(_ context.Context, tenant ledger.TenantID, includeDismissed bool) ([]ledger.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Alert
	for _, a := range m.alerts {
		if a.TenantID != tenant {
			continue
		}
		if a.Dismissed && !includeDismissed {
			continue
		}
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DismissAlert(_ context.Context, tenant ledger.TenantID, id ledger.AlertID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.alerts[id]
	if !ok || a.TenantID != tenant {
		return ledger.ErrNotFound
	}
	a.Dismissed = true
	m.alerts[id] = a
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore
// =============================================================================

// WithTx serializes the block against other transactions and rolls the whole
// store back to a snapshot when fn fails.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	parties         map[ledger.PartyID]ledger.Party
	movements       []ledger.Movement
	advances        map[ledger.AdvanceID]ledger.Advance
	disbursements   map[ledger.DisbursementID]ledger.Disbursement
	justifications  map[ledger.JustificationID]ledger.Justification
	documents       map[ledger.DocumentID]ledger.Document
	settings        map[ledger.TenantID]ledger.Settings
	reconciliations []ledger.Reconciliation
	alerts          map[ledger.AlertID]ledger.Alert
}

func (m *Memory) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return memorySnapshot{
		parties:         copyMap(m.parties),
		movements:       append([]ledger.Movement(nil), m.movements...),
		advances:        copyMap(m.advances),
		disbursements:   copyMap(m.disbursements),
		justifications:  copyMap(m.justifications),
		documents:       copyMap(m.documents),
		settings:        copyMap(m.settings),
		reconciliations: append([]ledger.Reconciliation(nil), m.reconciliations...),
		alerts:          copyMap(m.alerts),
	}
}

func (m *Memory) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.parties = s.parties
	m.movements = s.movements
	m.advances = s.advances
	m.disbursements = s.disbursements
	m.justifications = s.justifications
	m.documents = s.documents
	m.settings = s.settings
	m.reconciliations = s.reconciliations
	m.alerts = s.alerts
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
