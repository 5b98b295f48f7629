/*
recalc.go - Write-path orchestration and centralized recomputation

PURPOSE:
  Every mutation of justifications, returns, reimbursements, and documents
  flows through the Writer, which validates the write-path invariants and
  recomputes the derived fields (remaining/status/paid) of every affected
  entity inside the same transaction.

WHY CENTRALIZED:
  Derived fields are caches kept for query performance. Recomputing them in
  one place per entity type - always from the full dependent set, never by
  incremental adjustment - is what keeps them from drifting.

RECOMPUTATION CONTRACT:
  A justification mutation recomputes BOTH the owning disbursement and the
  linked document (if any). The two recomputations are independent; both
  happen inside the same transaction as the mutation itself.

VALIDATION:
  - amounts must be positive
  - a justification cannot exceed the disbursement's live remaining
  - a document-linked amount cannot exceed the document's live remaining
  - document: reference unique per tenant, total > 0, due date strictly
    after issue date, total never reduced below paid, no delete while
    justifications are linked

SEE ALSO:
  - disbursement.go / advance.go / document.go: The pure calculators
  - store.go: TxStore contract
*/
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// RECALCULATE - One entry point per entity type
// =============================================================================

// RecalculateDisbursement reloads the disbursement's full justification and
// return sets and persists remaining and status together.
func RecalculateDisbursement(ctx context.Context, s Store, tenant TenantID, id DisbursementID) error {
	d, err := s.GetDisbursement(ctx, tenant, id)
	if err != nil {
		return err
	}
	remaining := DisbursementRemaining(*d)
	return s.SaveDisbursementDerived(ctx, tenant, id, remaining, DisbursementStatusOf(remaining, d.InitialAmount))
}

// RecalculateDocument reloads the document's full linked-justification set
// and persists paid, remaining, and status together.
func RecalculateDocument(ctx context.Context, s Store, tenant TenantID, id DocumentID) error {
	doc, err := s.GetDocument(ctx, tenant, id)
	if err != nil {
		return err
	}
	justs, err := s.JustificationsForDocument(ctx, tenant, id)
	if err != nil {
		return err
	}
	paid := SumJustificationAmounts(justs)
	remaining := DocumentRemaining(doc.TotalAmount, paid)
	return s.SaveDocumentDerived(ctx, tenant, id, paid, remaining, DocumentStatusOf(doc.TotalAmount, paid))
}

// RecalculateAdvance reloads the advance's reimbursements and persists
// remaining and status together.
func RecalculateAdvance(ctx context.Context, s Store, tenant TenantID, id AdvanceID) error {
	a, err := s.GetAdvance(ctx, tenant, id)
	if err != nil {
		return err
	}
	remaining := AdvanceRemaining(*a)
	return s.SaveAdvanceDerived(ctx, tenant, id, remaining, AdvanceStatusOf(remaining, a.Amount))
}

// =============================================================================
// WRITER - Transactional mutations
// =============================================================================

// Writer owns every lifecycle mutation. All operations run inside
// TxStore.WithTx so the mutation and its recomputations commit atomically.
type Writer struct {
	Store TxStore

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewWriter(store TxStore) *Writer {
	return &Writer{Store: store}
}

func (w *Writer) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// JustificationInput carries the caller-editable justification fields.
type JustificationInput struct {
	Date       time.Time
	Amount     decimal.Decimal
	Category   string
	Reference  string
	DocumentID DocumentID // empty = not document-linked
}

// AddJustification validates the amount against the disbursement's live
// remaining (and the linked document's live remaining, if any), creates the
// justification, and recomputes both entities.
func (w *Writer) AddJustification(ctx context.Context, tenant TenantID, disbursement DisbursementID, in JustificationInput) (*Justification, error) {
	j := Justification{
		ID:             JustificationID(uuid.NewString()),
		TenantID:       tenant,
		DisbursementID: disbursement,
		Date:           in.Date,
		Amount:         in.Amount,
		Category:       in.Category,
		Reference:      in.Reference,
		DocumentID:     in.DocumentID,
	}

	err := w.Store.WithTx(ctx, func(s Store) error {
		if !in.Amount.IsPositive() {
			return NewValidationError("amount", "must be positive", ErrAmountNotPositive)
		}

		d, err := s.GetDisbursement(ctx, tenant, disbursement)
		if err != nil {
			return err
		}
		remaining := DisbursementRemaining(*d)
		if in.Amount.GreaterThan(remaining) {
			return &OverLimitError{Requested: in.Amount, Remaining: remaining}
		}

		if in.DocumentID != "" {
			if err := w.checkDocumentCapacity(ctx, s, tenant, in.DocumentID, in.Amount, ""); err != nil {
				return err
			}
		}

		if err := s.CreateJustification(ctx, j); err != nil {
			return err
		}

		if err := RecalculateDisbursement(ctx, s, tenant, disbursement); err != nil {
			return err
		}
		if in.DocumentID != "" {
			return RecalculateDocument(ctx, s, tenant, in.DocumentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// UpdateJustification re-validates against the live remaining with the old
// amount excluded, then recomputes the disbursement and every document the
// justification was or is linked to.
func (w *Writer) UpdateJustification(ctx context.Context, tenant TenantID, id JustificationID, in JustificationInput) (*Justification, error) {
	var updated Justification

	err := w.Store.WithTx(ctx, func(s Store) error {
		if !in.Amount.IsPositive() {
			return NewValidationError("amount", "must be positive", ErrAmountNotPositive)
		}

		old, err := s.GetJustification(ctx, tenant, id)
		if err != nil {
			return err
		}

		d, err := s.GetDisbursement(ctx, tenant, old.DisbursementID)
		if err != nil {
			return err
		}
		// Capacity with this justification's previous contribution removed.
		remaining := DisbursementRemaining(*d).Add(old.Amount)
		if in.Amount.GreaterThan(remaining) {
			return &OverLimitError{Requested: in.Amount, Remaining: remaining}
		}

		if in.DocumentID != "" {
			exclude := JustificationID("")
			if old.DocumentID == in.DocumentID {
				exclude = old.ID
			}
			if err := w.checkDocumentCapacity(ctx, s, tenant, in.DocumentID, in.Amount, exclude); err != nil {
				return err
			}
		}

		updated = *old
		updated.Date = in.Date
		updated.Amount = in.Amount
		updated.Category = in.Category
		updated.Reference = in.Reference
		updated.DocumentID = in.DocumentID
		if err := s.UpdateJustification(ctx, updated); err != nil {
			return err
		}

		if err := RecalculateDisbursement(ctx, s, tenant, old.DisbursementID); err != nil {
			return err
		}
		if old.DocumentID != "" {
			if err := RecalculateDocument(ctx, s, tenant, old.DocumentID); err != nil {
				return err
			}
		}
		if in.DocumentID != "" && in.DocumentID != old.DocumentID {
			return RecalculateDocument(ctx, s, tenant, in.DocumentID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteJustification removes the justification and recomputes the owning
// disbursement and the linked document, if any.
func (w *Writer) DeleteJustification(ctx context.Context, tenant TenantID, id JustificationID) error {
	return w.Store.WithTx(ctx, func(s Store) error {
		j, err := s.GetJustification(ctx, tenant, id)
		if err != nil {
			return err
		}
		if err := s.DeleteJustification(ctx, tenant, id); err != nil {
			return err
		}
		if err := RecalculateDisbursement(ctx, s, tenant, j.DisbursementID); err != nil {
			return err
		}
		if j.DocumentID != "" {
			return RecalculateDocument(ctx, s, tenant, j.DocumentID)
		}
		return nil
	})
}

// AddReturn records unspent disbursement funds coming back to cash and
// recomputes the disbursement.
func (w *Writer) AddReturn(ctx context.Context, tenant TenantID, disbursement DisbursementID, date time.Time, amount decimal.Decimal, reference string) (*Movement, error) {
	var m Movement

	err := w.Store.WithTx(ctx, func(s Store) error {
		if !amount.IsPositive() {
			return NewValidationError("amount", "must be positive", ErrAmountNotPositive)
		}

		d, err := s.GetDisbursement(ctx, tenant, disbursement)
		if err != nil {
			return err
		}
		remaining := DisbursementRemaining(*d)
		if amount.GreaterThan(remaining) {
			return &OverLimitError{Requested: amount, Remaining: remaining}
		}

		m = Movement{
			ID:             MovementID(uuid.NewString()),
			TenantID:       tenant,
			Date:           date,
			PartyID:        d.PartyID,
			Kind:           Inflow,
			Amount:         amount,
			Modality:       ModalityCash,
			Reference:      reference,
			IsDisbursement: true,
			DisbursementID: disbursement,
			CreatedAt:      w.now(),
		}
		if err := s.CreateMovement(ctx, m); err != nil {
			return err
		}
		return RecalculateDisbursement(ctx, s, tenant, disbursement)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddReimbursement records a cash repayment against an advance and
// recomputes it.
func (w *Writer) AddReimbursement(ctx context.Context, tenant TenantID, advance AdvanceID, date time.Time, amount decimal.Decimal, modality Modality, reference string) (*Movement, error) {
	var m Movement

	err := w.Store.WithTx(ctx, func(s Store) error {
		if !amount.IsPositive() {
			return NewValidationError("amount", "must be positive", ErrAmountNotPositive)
		}

		a, err := s.GetAdvance(ctx, tenant, advance)
		if err != nil {
			return err
		}
		remaining := AdvanceRemaining(*a)
		if amount.GreaterThan(remaining) {
			return &OverLimitError{Requested: amount, Remaining: remaining}
		}

		m = Movement{
			ID:        MovementID(uuid.NewString()),
			TenantID:  tenant,
			Date:      date,
			PartyID:   a.PartyID,
			Kind:      Inflow,
			Amount:    amount,
			Modality:  modality,
			Reference: reference,
			IsAdvance: true,
			AdvanceID: advance,
			CreatedAt: w.now(),
		}
		if err := s.CreateMovement(ctx, m); err != nil {
			return err
		}
		return RecalculateAdvance(ctx, s, tenant, advance)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// =============================================================================
// DOCUMENT WRITE PATH
// =============================================================================

// DocumentInput carries the caller-editable document fields.
type DocumentInput struct {
	Type        DocumentType
	Reference   string
	TotalAmount decimal.Decimal
	IssueDate   time.Time
	DueDate     *time.Time
}

// CreateDocument validates the document invariants and persists it Unpaid.
func (w *Writer) CreateDocument(ctx context.Context, tenant TenantID, in DocumentInput) (*Document, error) {
	doc := Document{
		ID:              DocumentID(uuid.NewString()),
		TenantID:        tenant,
		Type:            in.Type,
		Reference:       in.Reference,
		TotalAmount:     in.TotalAmount,
		IssueDate:       in.IssueDate,
		DueDate:         in.DueDate,
		PaidAmount:      decimal.Zero,
		RemainingAmount: in.TotalAmount,
		Status:          DocumentUnpaid,
	}

	err := w.Store.WithTx(ctx, func(s Store) error {
		if err := validateDocumentInput(in); err != nil {
			return err
		}
		existing, err := s.DocumentByReference(ctx, tenant, in.Reference)
		if err != nil {
			return err
		}
		if existing != nil {
			return NewValidationError("reference", "already in use", ErrDuplicateReference)
		}
		return s.CreateDocument(ctx, doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument validates the invariants against the live paid amount,
// persists the editable fields, and recomputes the derived ones.
func (w *Writer) UpdateDocument(ctx context.Context, tenant TenantID, id DocumentID, in DocumentInput) (*Document, error) {
	var updated *Document

	err := w.Store.WithTx(ctx, func(s Store) error {
		if err := validateDocumentInput(in); err != nil {
			return err
		}

		doc, err := s.GetDocument(ctx, tenant, id)
		if err != nil {
			return err
		}

		if in.Reference != doc.Reference {
			existing, err := s.DocumentByReference(ctx, tenant, in.Reference)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != id {
				return NewValidationError("reference", "already in use", ErrDuplicateReference)
			}
		}

		justs, err := s.JustificationsForDocument(ctx, tenant, id)
		if err != nil {
			return err
		}
		paid := SumJustificationAmounts(justs)
		if in.TotalAmount.LessThan(paid) {
			return NewValidationError("total_amount", "below current paid amount", ErrTotalBelowPaid)
		}

		doc.Type = in.Type
		doc.Reference = in.Reference
		doc.TotalAmount = in.TotalAmount
		doc.IssueDate = in.IssueDate
		doc.DueDate = in.DueDate
		if err := s.UpdateDocument(ctx, *doc); err != nil {
			return err
		}
		if err := RecalculateDocument(ctx, s, tenant, id); err != nil {
			return err
		}

		updated, err = s.GetDocument(ctx, tenant, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteDocument refuses to delete a document with linked justifications.
func (w *Writer) DeleteDocument(ctx context.Context, tenant TenantID, id DocumentID) error {
	return w.Store.WithTx(ctx, func(s Store) error {
		if _, err := s.GetDocument(ctx, tenant, id); err != nil {
			return err
		}
		justs, err := s.JustificationsForDocument(ctx, tenant, id)
		if err != nil {
			return err
		}
		if len(justs) > 0 {
			return NewValidationError("document", "has linked justifications", ErrDocumentHasJustifications)
		}
		return s.DeleteDocument(ctx, tenant, id)
	})
}

// =============================================================================
// INTERNAL VALIDATION
// =============================================================================

func validateDocumentInput(in DocumentInput) error {
	if !in.TotalAmount.IsPositive() {
		return NewValidationError("total_amount", "must be positive", ErrAmountNotPositive)
	}
	if in.DueDate != nil && !in.DueDate.After(in.IssueDate) {
		return NewValidationError("due_date", "must be after issue date", ErrDueBeforeIssue)
	}
	return nil
}

// checkDocumentCapacity rejects a payment that would exceed the document's
// live remaining. exclude removes one justification's current contribution
// (for updates re-linking the same document).
func (w *Writer) checkDocumentCapacity(ctx context.Context, s Store, tenant TenantID, doc DocumentID, amount decimal.Decimal, exclude JustificationID) error {
	d, err := s.GetDocument(ctx, tenant, doc)
	if err != nil {
		return err
	}
	justs, err := s.JustificationsForDocument(ctx, tenant, doc)
	if err != nil {
		return err
	}
	paid := decimal.Zero
	for _, j := range justs {
		if j.ID == exclude {
			continue
		}
		paid = paid.Add(j.Amount)
	}
	remaining := DocumentRemaining(d.TotalAmount, paid)
	if amount.GreaterThan(remaining) {
		return &OverLimitError{Requested: amount, Remaining: remaining}
	}
	return nil
}
