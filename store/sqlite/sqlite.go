/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using SQLite. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  parties:          Intervenants (customers, suppliers, employees)
  movements:        Raw cash-affecting events
  advances:         Grants expected to be repaid, with derived remaining/status
  disbursements:    Grants expected to be justified, with derived fields
  justifications:   Spend proofs, optionally linked to a document
  documents:        Payment obligations with derived paid/remaining/status
  settings:         Per-tenant thresholds
  reconciliations:  Cash counts and their gaps
  alerts:           Threshold-breach notifications

ALERT DEDUP AT THE STORAGE LAYER:
  idx_alerts_active_dedup is a partial unique index on
  (tenant_id, alert_type, related_id) WHERE dismissed = 0. Two concurrent
  evaluator runs cannot both insert the same active alert; the loser gets
  ledger.ErrDuplicateAlert, which the evaluator treats as "already exists".

ENCODING:
  Amounts are stored as decimal TEXT (no float drift), dates as RFC 3339
  TEXT in UTC.

WAL MODE:
  The database is opened with WAL for better read concurrency and crash
  recovery.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/ledger"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements ledger.Store and ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	q  querier
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, q: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS parties (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		party_type TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_parties_tenant ON parties(tenant_id, active);

	CREATE TABLE IF NOT EXISTS movements (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		date TEXT NOT NULL,
		party_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		modality TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		is_advance INTEGER NOT NULL DEFAULT 0,
		is_disbursement INTEGER NOT NULL DEFAULT 0,
		advance_id TEXT NOT NULL DEFAULT '',
		disbursement_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_movements_tenant_party_date
		ON movements(tenant_id, party_id, date);
	CREATE INDEX IF NOT EXISTS idx_movements_tenant_modality_date
		ON movements(tenant_id, modality, date);
	CREATE INDEX IF NOT EXISTS idx_movements_advance
		ON movements(advance_id) WHERE advance_id != '';
	CREATE INDEX IF NOT EXISTS idx_movements_disbursement
		ON movements(disbursement_id) WHERE disbursement_id != '';

	CREATE TABLE IF NOT EXISTS advances (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		party_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		due_date TEXT,
		remaining TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_advances_tenant ON advances(tenant_id, status);

	CREATE TABLE IF NOT EXISTS disbursements (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		party_id TEXT NOT NULL,
		initial_amount TEXT NOT NULL,
		due_date TEXT,
		remaining TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_disbursements_tenant_status
		ON disbursements(tenant_id, status);
	CREATE INDEX IF NOT EXISTS idx_disbursements_tenant_party
		ON disbursements(tenant_id, party_id);

	CREATE TABLE IF NOT EXISTS justifications (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		disbursement_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		reference TEXT NOT NULL DEFAULT '',
		document_id TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_justifications_disbursement
		ON justifications(disbursement_id);
	CREATE INDEX IF NOT EXISTS idx_justifications_document
		ON justifications(document_id) WHERE document_id != '';

	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		doc_type TEXT NOT NULL,
		reference TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		due_date TEXT,
		paid_amount TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		UNIQUE(tenant_id, reference)
	);

	CREATE TABLE IF NOT EXISTS settings (
		tenant_id TEXT PRIMARY KEY,
		alerts_enabled INTEGER NOT NULL DEFAULT 1,
		debt_threshold TEXT NOT NULL DEFAULT '0',
		min_cash_balance TEXT NOT NULL DEFAULT '0',
		reconciliation_gap_threshold TEXT NOT NULL DEFAULT '0',
		default_advance_due_days INTEGER NOT NULL DEFAULT 0,
		disbursement_outstanding_threshold TEXT NOT NULL DEFAULT '0',
		disbursement_open_days_warning INTEGER NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS reconciliations (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		date TEXT NOT NULL,
		theoretical TEXT NOT NULL,
		counted TEXT NOT NULL,
		gap TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reconciliations_tenant_date
		ON reconciliations(tenant_id, date DESC);

	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		alert_type TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		severity TEXT NOT NULL,
		related_id TEXT NOT NULL DEFAULT '',
		dismissed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- Storage-level dedup key: at most one active alert per
	-- (tenant, type, related entity).
	CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_active_dedup
		ON alerts(tenant_id, alert_type, related_id) WHERE dismissed = 0;
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ENCODING HELPERS
// =============================================================================

func encTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func decTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

func encTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encTime(*t)
}

func decTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := decTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func decAmount(s string) (decimal.Decimal, error) { return decimal.NewFromString(s) }

func isConstraintViolation(err error) bool {
	var serr sqlite3.Error
	return errors.As(err, &serr) && serr.Code == sqlite3.ErrConstraint
}

// =============================================================================
// PARTIES AND MOVEMENTS
// =============================================================================

// SaveParty upserts a party record. Not part of ledger.Store; used by the
// surrounding CRUD layer and by seeding.
func (s *Store) SaveParty(ctx context.Context, p ledger.Party) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO parties (id, tenant_id, name, party_type, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name,
			party_type=excluded.party_type, active=excluded.active`,
		p.ID, p.TenantID, p.Name, p.Type, p.Active)
	return err
}

func (s *Store) ListActiveParties(ctx context.Context, tenant ledger.TenantID, partyType *ledger.PartyType) ([]ledger.Party, error) {
	query := `SELECT id, tenant_id, name, party_type, active
		FROM parties WHERE tenant_id = ? AND active = 1`
	args := []any{tenant}
	if partyType != nil {
		query += ` AND party_type = ?`
		args = append(args, *partyType)
	}
	query += ` ORDER BY id`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Party
	for rows.Next() {
		var p ledger.Party
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Type, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const movementColumns = `id, tenant_id, date, party_id, kind, amount, modality,
	category, reference, is_advance, is_disbursement, advance_id,
	disbursement_id, created_at`

func scanMovement(rows *sql.Rows) (ledger.Movement, error) {
	var m ledger.Movement
	var date, amount, createdAt string
	if err := rows.Scan(&m.ID, &m.TenantID, &date, &m.PartyID, &m.Kind, &amount,
		&m.Modality, &m.Category, &m.Reference, &m.IsAdvance, &m.IsDisbursement,
		&m.AdvanceID, &m.DisbursementID, &createdAt); err != nil {
		return m, err
	}
	var err error
	if m.Date, err = decTime(date); err != nil {
		return m, err
	}
	if m.Amount, err = decAmount(amount); err != nil {
		return m, err
	}
	m.CreatedAt, err = decTime(createdAt)
	return m, err
}

func (s *Store) queryMovements(ctx context.Context, query string, args ...any) ([]ledger.Movement, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MovementsForParty(ctx context.Context, tenant ledger.TenantID, party ledger.PartyID, from, to *time.Time) ([]ledger.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements
		WHERE tenant_id = ? AND party_id = ?`
	args := []any{tenant, party}
	if from != nil {
		query += ` AND date >= ?`
		args = append(args, encTime(*from))
	}
	if to != nil {
		query += ` AND date <= ?`
		args = append(args, encTime(*to))
	}
	query += ` ORDER BY date`
	return s.queryMovements(ctx, query, args...)
}

func (s *Store) CashMovements(ctx context.Context, tenant ledger.TenantID) ([]ledger.Movement, error) {
	return s.queryMovements(ctx, `SELECT `+movementColumns+` FROM movements
		WHERE tenant_id = ? AND modality = ? ORDER BY date`,
		tenant, ledger.ModalityCash)
}

func (s *Store) RecentCashMovements(ctx context.Context, tenant ledger.TenantID, limit int) ([]ledger.Movement, error) {
	return s.queryMovements(ctx, `SELECT `+movementColumns+` FROM movements
		WHERE tenant_id = ? AND modality = ? ORDER BY date DESC LIMIT ?`,
		tenant, ledger.ModalityCash, limit)
}

func (s *Store) CreateMovement(ctx context.Context, m ledger.Movement) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO movements (`+movementColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.TenantID, encTime(m.Date), m.PartyID, m.Kind, m.Amount.String(),
		m.Modality, m.Category, m.Reference, m.IsAdvance, m.IsDisbursement,
		m.AdvanceID, m.DisbursementID, encTime(m.CreatedAt))
	return err
}

// =============================================================================
// ADVANCES
// =============================================================================

// SaveAdvance upserts the base advance record. Not part of ledger.Store.
func (s *Store) SaveAdvance(ctx context.Context, a ledger.Advance) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO advances (id, tenant_id, party_id, amount, due_date, remaining, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET amount=excluded.amount,
			due_date=excluded.due_date, remaining=excluded.remaining,
			status=excluded.status`,
		a.ID, a.TenantID, a.PartyID, a.Amount.String(), encTimePtr(a.DueDate),
		a.Remaining.String(), a.Status, encTime(a.CreatedAt))
	return err
}

func (s *Store) GetAdvance(ctx context.Context, tenant ledger.TenantID, id ledger.AdvanceID) (*ledger.Advance, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, tenant_id, party_id, amount, due_date, remaining, status, created_at
		FROM advances WHERE id = ? AND tenant_id = ?`, id, tenant)

	var a ledger.Advance
	var amount, remaining, createdAt string
	var due sql.NullString
	err := row.Scan(&a.ID, &a.TenantID, &a.PartyID, &amount, &due, &remaining, &a.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.Amount, err = decAmount(amount); err != nil {
		return nil, err
	}
	if a.Remaining, err = decAmount(remaining); err != nil {
		return nil, err
	}
	if a.DueDate, err = decTimePtr(due); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = decTime(createdAt); err != nil {
		return nil, err
	}

	a.Reimbursements, err = s.queryMovements(ctx, `SELECT `+movementColumns+`
		FROM movements WHERE tenant_id = ? AND advance_id = ? AND is_advance = 1
		AND kind = ? ORDER BY date`, tenant, id, ledger.Inflow)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) SaveAdvanceDerived(ctx context.Context, tenant ledger.TenantID, id ledger.AdvanceID, remaining decimal.Decimal, status ledger.AdvanceStatus) error {
	res, err := s.q.ExecContext(ctx, `UPDATE advances SET remaining = ?, status = ?
		WHERE id = ? AND tenant_id = ?`, remaining.String(), status, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// =============================================================================
// DISBURSEMENTS
// =============================================================================

// SaveDisbursement upserts the base disbursement record. Not part of
// ledger.Store.
func (s *Store) SaveDisbursement(ctx context.Context, d ledger.Disbursement) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO disbursements (id, tenant_id, party_id, initial_amount, due_date, remaining, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET initial_amount=excluded.initial_amount,
			due_date=excluded.due_date, remaining=excluded.remaining,
			status=excluded.status`,
		d.ID, d.TenantID, d.PartyID, d.InitialAmount.String(), encTimePtr(d.DueDate),
		d.Remaining.String(), d.Status, encTime(d.CreatedAt))
	return err
}

const disbursementColumns = `id, tenant_id, party_id, initial_amount, due_date,
	remaining, status, created_at`

func scanDisbursement(row interface{ Scan(...any) error }) (ledger.Disbursement, error) {
	var d ledger.Disbursement
	var initial, remaining, createdAt string
	var due sql.NullString
	if err := row.Scan(&d.ID, &d.TenantID, &d.PartyID, &initial, &due,
		&remaining, &d.Status, &createdAt); err != nil {
		return d, err
	}
	var err error
	if d.InitialAmount, err = decAmount(initial); err != nil {
		return d, err
	}
	if d.Remaining, err = decAmount(remaining); err != nil {
		return d, err
	}
	if d.DueDate, err = decTimePtr(due); err != nil {
		return d, err
	}
	d.CreatedAt, err = decTime(createdAt)
	return d, err
}

func (s *Store) GetDisbursement(ctx context.Context, tenant ledger.TenantID, id ledger.DisbursementID) (*ledger.Disbursement, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+disbursementColumns+`
		FROM disbursements WHERE id = ? AND tenant_id = ?`, id, tenant)

	d, err := scanDisbursement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if d.Justifications, err = s.justificationsForDisbursement(ctx, tenant, id); err != nil {
		return nil, err
	}
	if d.Returns, err = s.queryMovements(ctx, `SELECT `+movementColumns+`
		FROM movements WHERE tenant_id = ? AND disbursement_id = ?
		AND is_disbursement = 1 AND kind = ? ORDER BY date`,
		tenant, id, ledger.Inflow); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) queryDisbursements(ctx context.Context, query string, args ...any) ([]ledger.Disbursement, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Disbursement
	for rows.Next() {
		d, err := scanDisbursement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListOpenDisbursements(ctx context.Context, tenant ledger.TenantID) ([]ledger.Disbursement, error) {
	return s.queryDisbursements(ctx, `SELECT `+disbursementColumns+`
		FROM disbursements WHERE tenant_id = ? AND status != ? ORDER BY id`,
		tenant, ledger.DisbursementJustified)
}

func (s *Store) DisbursementsForParty(ctx context.Context, tenant ledger.TenantID, party ledger.PartyID) ([]ledger.Disbursement, error) {
	out, err := s.queryDisbursements(ctx, `SELECT `+disbursementColumns+`
		FROM disbursements WHERE tenant_id = ? AND party_id = ? ORDER BY id`,
		tenant, party)
	if err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Justifications, err = s.justificationsForDisbursement(ctx, tenant, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) SaveDisbursementDerived(ctx context.Context, tenant ledger.TenantID, id ledger.DisbursementID, remaining decimal.Decimal, status ledger.DisbursementStatus) error {
	res, err := s.q.ExecContext(ctx, `UPDATE disbursements SET remaining = ?, status = ?
		WHERE id = ? AND tenant_id = ?`, remaining.String(), status, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// =============================================================================
// JUSTIFICATIONS
// =============================================================================

const justificationColumns = `id, tenant_id, disbursement_id, date, amount,
	category, reference, document_id`

func scanJustification(row interface{ Scan(...any) error }) (ledger.Justification, error) {
	var j ledger.Justification
	var date, amount string
	if err := row.Scan(&j.ID, &j.TenantID, &j.DisbursementID, &date, &amount,
		&j.Category, &j.Reference, &j.DocumentID); err != nil {
		return j, err
	}
	var err error
	if j.Date, err = decTime(date); err != nil {
		return j, err
	}
	j.Amount, err = decAmount(amount)
	return j, err
}

func (s *Store) queryJustifications(ctx context.Context, query string, args ...any) ([]ledger.Justification, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Justification
	for rows.Next() {
		j, err := scanJustification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) justificationsForDisbursement(ctx context.Context, tenant ledger.TenantID, id ledger.DisbursementID) ([]ledger.Justification, error) {
	return s.queryJustifications(ctx, `SELECT `+justificationColumns+`
		FROM justifications WHERE tenant_id = ? AND disbursement_id = ?
		ORDER BY date`, tenant, id)
}

func (s *Store) GetJustification(ctx context.Context, tenant ledger.TenantID, id ledger.JustificationID) (*ledger.Justification, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+justificationColumns+`
		FROM justifications WHERE id = ? AND tenant_id = ?`, id, tenant)

	j, err := scanJustification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *Store) CreateJustification(ctx context.Context, j ledger.Justification) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO justifications (`+justificationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.TenantID, j.DisbursementID, encTime(j.Date), j.Amount.String(),
		j.Category, j.Reference, j.DocumentID)
	return err
}

func (s *Store) UpdateJustification(ctx context.Context, j ledger.Justification) error {
	res, err := s.q.ExecContext(ctx, `UPDATE justifications
		SET date = ?, amount = ?, category = ?, reference = ?, document_id = ?
		WHERE id = ? AND tenant_id = ?`,
		encTime(j.Date), j.Amount.String(), j.Category, j.Reference, j.DocumentID,
		j.ID, j.TenantID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteJustification(ctx context.Context, tenant ledger.TenantID, id ledger.JustificationID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM justifications
		WHERE id = ? AND tenant_id = ?`, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) JustificationsForDocument(ctx context.Context, tenant ledger.TenantID, doc ledger.DocumentID) ([]ledger.Justification, error) {
	return s.queryJustifications(ctx, `SELECT `+justificationColumns+`
		FROM justifications WHERE tenant_id = ? AND document_id = ?
		ORDER BY date`, tenant, doc)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

const documentColumns = `id, tenant_id, doc_type, reference, total_amount,
	issue_date, due_date, paid_amount, remaining_amount, status`

func scanDocument(row interface{ Scan(...any) error }) (ledger.Document, error) {
	var d ledger.Document
	var total, issue, paid, remaining string
	var due sql.NullString
	if err := row.Scan(&d.ID, &d.TenantID, &d.Type, &d.Reference, &total,
		&issue, &due, &paid, &remaining, &d.Status); err != nil {
		return d, err
	}
	var err error
	if d.TotalAmount, err = decAmount(total); err != nil {
		return d, err
	}
	if d.IssueDate, err = decTime(issue); err != nil {
		return d, err
	}
	if d.DueDate, err = decTimePtr(due); err != nil {
		return d, err
	}
	if d.PaidAmount, err = decAmount(paid); err != nil {
		return d, err
	}
	d.RemainingAmount, err = decAmount(remaining)
	return d, err
}

func (s *Store) GetDocument(ctx context.Context, tenant ledger.TenantID, id ledger.DocumentID) (*ledger.Document, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+documentColumns+`
		FROM documents WHERE id = ? AND tenant_id = ?`, id, tenant)

	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) DocumentByReference(ctx context.Context, tenant ledger.TenantID, reference string) (*ledger.Document, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+documentColumns+`
		FROM documents WHERE tenant_id = ? AND reference = ?`, tenant, reference)

	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) CreateDocument(ctx context.Context, d ledger.Document) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TenantID, d.Type, d.Reference, d.TotalAmount.String(),
		encTime(d.IssueDate), encTimePtr(d.DueDate), d.PaidAmount.String(),
		d.RemainingAmount.String(), d.Status)
	if isConstraintViolation(err) {
		return ledger.ErrDuplicateReference
	}
	return err
}

func (s *Store) UpdateDocument(ctx context.Context, d ledger.Document) error {
	res, err := s.q.ExecContext(ctx, `UPDATE documents
		SET doc_type = ?, reference = ?, total_amount = ?, issue_date = ?, due_date = ?
		WHERE id = ? AND tenant_id = ?`,
		d.Type, d.Reference, d.TotalAmount.String(), encTime(d.IssueDate),
		encTimePtr(d.DueDate), d.ID, d.TenantID)
	if isConstraintViolation(err) {
		return ledger.ErrDuplicateReference
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) DeleteDocument(ctx context.Context, tenant ledger.TenantID, id ledger.DocumentID) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM documents
		WHERE id = ? AND tenant_id = ?`, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *Store) SaveDocumentDerived(ctx context.Context, tenant ledger.TenantID, id ledger.DocumentID, paid, remaining decimal.Decimal, status ledger.DocumentStatus) error {
	res, err := s.q.ExecContext(ctx, `UPDATE documents
		SET paid_amount = ?, remaining_amount = ?, status = ?
		WHERE id = ? AND tenant_id = ?`,
		paid.String(), remaining.String(), status, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// =============================================================================
// SETTINGS AND RECONCILIATION
// =============================================================================

// SaveSettings upserts the tenant's settings. Not part of ledger.Store.
func (s *Store) SaveSettings(ctx context.Context, st ledger.Settings) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO settings (tenant_id, alerts_enabled, debt_threshold,
			min_cash_balance, reconciliation_gap_threshold,
			default_advance_due_days, disbursement_outstanding_threshold,
			disbursement_open_days_warning, currency)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			alerts_enabled=excluded.alerts_enabled,
			debt_threshold=excluded.debt_threshold,
			min_cash_balance=excluded.min_cash_balance,
			reconciliation_gap_threshold=excluded.reconciliation_gap_threshold,
			default_advance_due_days=excluded.default_advance_due_days,
			disbursement_outstanding_threshold=excluded.disbursement_outstanding_threshold,
			disbursement_open_days_warning=excluded.disbursement_open_days_warning,
			currency=excluded.currency`,
		st.TenantID, st.AlertsEnabled, st.DebtThreshold.String(),
		st.MinCashBalance.String(), st.ReconciliationGapThreshold.String(),
		st.DefaultAdvanceDueDays, st.DisbursementOutstandingThreshold.String(),
		st.DisbursementOpenDaysWarning, st.Currency)
	return err
}

func (s *Store) GetSettings(ctx context.Context, tenant ledger.TenantID) (*ledger.Settings, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT tenant_id, alerts_enabled, debt_threshold, min_cash_balance,
			reconciliation_gap_threshold, default_advance_due_days,
			disbursement_outstanding_threshold, disbursement_open_days_warning,
			currency
		FROM settings WHERE tenant_id = ?`, tenant)

	var st ledger.Settings
	var debt, minCash, gap, outstanding string
	err := row.Scan(&st.TenantID, &st.AlertsEnabled, &debt, &minCash, &gap,
		&st.DefaultAdvanceDueDays, &outstanding, &st.DisbursementOpenDaysWarning,
		&st.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if st.DebtThreshold, err = decAmount(debt); err != nil {
		return nil, err
	}
	if st.MinCashBalance, err = decAmount(minCash); err != nil {
		return nil, err
	}
	if st.ReconciliationGapThreshold, err = decAmount(gap); err != nil {
		return nil, err
	}
	if st.DisbursementOutstandingThreshold, err = decAmount(outstanding); err != nil {
		return nil, err
	}
	return &st, nil
}

// SaveReconciliation inserts a reconciliation record. Not part of
// ledger.Store.
func (s *Store) SaveReconciliation(ctx context.Context, r ledger.Reconciliation) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO reconciliations (id, tenant_id, date, theoretical, counted, gap)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.TenantID, encTime(r.Date), r.Theoretical.String(),
		r.Counted.String(), r.Gap.String())
	return err
}

func (s *Store) LatestReconciliation(ctx context.Context, tenant ledger.TenantID) (*ledger.Reconciliation, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT id, tenant_id, date, theoretical, counted, gap
		FROM reconciliations WHERE tenant_id = ?
		ORDER BY date DESC LIMIT 1`, tenant)

	var r ledger.Reconciliation
	var date, theoretical, counted, gap string
	err := row.Scan(&r.ID, &r.TenantID, &date, &theoretical, &counted, &gap)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if r.Date, err = decTime(date); err != nil {
		return nil, err
	}
	if r.Theoretical, err = decAmount(theoretical); err != nil {
		return nil, err
	}
	if r.Counted, err = decAmount(counted); err != nil {
		return nil, err
	}
	if r.Gap, err = decAmount(gap); err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// ALERTS
// =============================================================================

func (s *Store) HasActiveAlert(ctx context.Context, tenant ledger.TenantID, alertType ledger.AlertType, relatedID string) (bool, error) {
	row := s.q.QueryRowContext(ctx, `SELECT COUNT(1) FROM alerts
		WHERE tenant_id = ? AND alert_type = ? AND related_id = ? AND dismissed = 0`,
		tenant, alertType, relatedID)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) InsertAlert(ctx context.Context, a ledger.Alert) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO alerts (id, tenant_id, alert_type, title, message, severity,
			related_id, dismissed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TenantID, a.Type, a.Title, a.Message, a.Severity,
		a.RelatedID, a.Dismissed, encTime(a.CreatedAt))
	if isConstraintViolation(err) {
		return ledger.ErrDuplicateAlert
	}
	return err
}

func (s *Store) ListAlerts(ctx context.Context, tenant ledger.TenantID, includeDismissed bool) ([]ledger.Alert, error) {
	query := `SELECT id, tenant_id, alert_type, title, message, severity,
			related_id, dismissed, created_at
		FROM alerts WHERE tenant_id = ?`
	if !includeDismissed {
		query += ` AND dismissed = 0`
	}
	query += ` ORDER BY created_at`

	rows, err := s.q.QueryContext(ctx, query, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.Alert
	for rows.Next() {
		var a ledger.Alert
		var createdAt string
		if err := rows.Scan(&a.ID, &a.TenantID, &a.Type, &a.Title, &a.Message,
			&a.Severity, &a.RelatedID, &a.Dismissed, &createdAt); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = decTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) DismissAlert(ctx context.Context, tenant ledger.TenantID, id ledger.AlertID) error {
	res, err := s.q.ExecContext(ctx, `UPDATE alerts SET dismissed = 1
		WHERE id = ? AND tenant_id = ?`, id, tenant)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a transaction-bound view of the store.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
