package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/treasury-engine/ledger"
	"github.com/warp/treasury-engine/ledger/store"
)

// =============================================================================
// TEST FIXTURE
// =============================================================================

const testTenant = ledger.TenantID("tenant-1")

type writerFixture struct {
	mem    *store.Memory
	writer *ledger.Writer
}

func newWriterFixture() *writerFixture {
	mem := store.NewMemory()
	return &writerFixture{mem: mem, writer: ledger.NewWriter(mem)}
}

func (f *writerFixture) seedDisbursement(id string, initial int64) {
	f.mem.SaveDisbursement(ledger.Disbursement{
		ID:            ledger.DisbursementID(id),
		TenantID:      testTenant,
		PartyID:       "party-1",
		InitialAmount: d(initial),
		Remaining:     d(initial),
		Status:        ledger.DisbursementOpen,
		CreatedAt:     day(2026, time.January, 10),
	})
}

func (f *writerFixture) seedAdvance(id string, amount int64) {
	f.mem.SaveAdvance(ledger.Advance{
		ID:        ledger.AdvanceID(id),
		TenantID:  testTenant,
		PartyID:   "party-1",
		Amount:    d(amount),
		Remaining: d(amount),
		Status:    ledger.AdvanceOngoing,
		CreatedAt: day(2026, time.January, 10),
	})
}

func (f *writerFixture) seedDocument(id, reference string, total int64) {
	ctx := context.Background()
	err := f.mem.CreateDocument(ctx, ledger.Document{
		ID:              ledger.DocumentID(id),
		TenantID:        testTenant,
		Type:            ledger.DocInvoice,
		Reference:       reference,
		TotalAmount:     d(total),
		IssueDate:       day(2026, time.January, 5),
		PaidAmount:      d(0),
		RemainingAmount: d(total),
		Status:          ledger.DocumentUnpaid,
	})
	if err != nil {
		panic(err)
	}
}

func justInput(amount int64, doc string) ledger.JustificationInput {
	return ledger.JustificationInput{
		Date:       day(2026, time.February, 1),
		Amount:     d(amount),
		Category:   "supplies",
		DocumentID: ledger.DocumentID(doc),
	}
}

// =============================================================================
// JUSTIFICATION WRITE PATH
// =============================================================================

func TestAddJustification_RecomputesDisbursementAndDocument(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	f.seedDocument("doc-1", "INV-001", 400)
	ctx := context.Background()

	j, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(400, "doc-1"))
	require.NoError(t, err)
	require.NotNil(t, j)

	// Disbursement side: 1000 - 400 = 600, partially justified.
	disb, err := f.mem.GetDisbursement(ctx, testTenant, "disb-1")
	require.NoError(t, err)
	assert.True(t, disb.Remaining.Equal(d(600)), "remaining = %s", disb.Remaining)
	assert.Equal(t, ledger.DisbursementPartiallyJustified, disb.Status)

	// Document side: fully paid by the same write.
	doc, err := f.mem.GetDocument(ctx, testTenant, "doc-1")
	require.NoError(t, err)
	assert.True(t, doc.PaidAmount.Equal(d(400)))
	assert.True(t, doc.RemainingAmount.IsZero())
	assert.Equal(t, ledger.DocumentPaid, doc.Status)
}

func TestAddJustification_RejectsOverDisbursementRemaining(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 500)
	ctx := context.Background()

	_, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(600, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAmountExceedsRemaining)
	assert.True(t, ledger.IsValidation(err))

	// Nothing was persisted.
	disb, err := f.mem.GetDisbursement(ctx, testTenant, "disb-1")
	require.NoError(t, err)
	assert.True(t, disb.Remaining.Equal(d(500)))
	assert.Equal(t, ledger.DisbursementOpen, disb.Status)
	assert.Empty(t, disb.Justifications)
}

func TestAddJustification_RejectsOverDocumentRemaining(t *testing.T) {
	// GIVEN: A 1000 disbursement and a 300 document
	// WHEN: Justifying 400 against that document
	// THEN: Rejected even though the disbursement has capacity

	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	f.seedDocument("doc-1", "INV-001", 300)
	ctx := context.Background()

	_, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(400, "doc-1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAmountExceedsRemaining)

	doc, err := f.mem.GetDocument(ctx, testTenant, "doc-1")
	require.NoError(t, err)
	assert.True(t, doc.PaidAmount.IsZero())
}

func TestAddJustification_RejectsNonPositiveAmount(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)

	_, err := f.writer.AddJustification(context.Background(), testTenant, "disb-1", justInput(0, ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrAmountNotPositive)
}

func TestAddJustification_UnknownDisbursement(t *testing.T) {
	f := newWriterFixture()
	_, err := f.writer.AddJustification(context.Background(), testTenant, "missing", justInput(100, ""))
	assert.True(t, ledger.IsNotFound(err))
}

func TestUpdateJustification_CapacityExcludesOwnOldAmount(t *testing.T) {
	// GIVEN: A 500 disbursement fully justified by one 500 justification
	// WHEN: Editing that justification down to 400
	// THEN: Accepted (its own 500 does not count against capacity)

	f := newWriterFixture()
	f.seedDisbursement("disb-1", 500)
	ctx := context.Background()

	j, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(500, ""))
	require.NoError(t, err)

	updated, err := f.writer.UpdateJustification(ctx, testTenant, j.ID, justInput(400, ""))
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(d(400)))

	disb, err := f.mem.GetDisbursement(ctx, testTenant, "disb-1")
	require.NoError(t, err)
	assert.True(t, disb.Remaining.Equal(d(100)))
	assert.Equal(t, ledger.DisbursementPartiallyJustified, disb.Status)
}

func TestUpdateJustification_RelinkRecomputesBothDocuments(t *testing.T) {
	// GIVEN: A justification linked to doc A
	// WHEN: Re-linking it to doc B
	// THEN: A returns to unpaid, B becomes paid

	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	f.seedDocument("doc-a", "INV-A", 200)
	f.seedDocument("doc-b", "INV-B", 200)
	ctx := context.Background()

	j, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(200, "doc-a"))
	require.NoError(t, err)

	_, err = f.writer.UpdateJustification(ctx, testTenant, j.ID, justInput(200, "doc-b"))
	require.NoError(t, err)

	a, err := f.mem.GetDocument(ctx, testTenant, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentUnpaid, a.Status)
	assert.True(t, a.PaidAmount.IsZero())

	b, err := f.mem.GetDocument(ctx, testTenant, "doc-b")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPaid, b.Status)
}

func TestDeleteJustification_RecomputesBothSides(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	f.seedDocument("doc-1", "INV-001", 400)
	ctx := context.Background()

	j, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(400, "doc-1"))
	require.NoError(t, err)

	require.NoError(t, f.writer.DeleteJustification(ctx, testTenant, j.ID))

	disb, err := f.mem.GetDisbursement(ctx, testTenant, "disb-1")
	require.NoError(t, err)
	assert.True(t, disb.Remaining.Equal(d(1000)))
	assert.Equal(t, ledger.DisbursementOpen, disb.Status)

	doc, err := f.mem.GetDocument(ctx, testTenant, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentUnpaid, doc.Status)
}

// =============================================================================
// RETURNS AND REIMBURSEMENTS
// =============================================================================

func TestAddReturn_SettlesDisbursement(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	ctx := context.Background()

	_, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(600, ""))
	require.NoError(t, err)

	m, err := f.writer.AddReturn(ctx, testTenant, "disb-1", day(2026, time.February, 5), d(400), "unspent")
	require.NoError(t, err)
	assert.Equal(t, ledger.Inflow, m.Kind)
	assert.Equal(t, ledger.ModalityCash, m.Modality)
	assert.True(t, m.IsDisbursement)

	disb, err := f.mem.GetDisbursement(ctx, testTenant, "disb-1")
	require.NoError(t, err)
	assert.True(t, disb.Remaining.IsZero())
	assert.Equal(t, ledger.DisbursementJustified, disb.Status)
}

func TestAddReturn_RejectsOverRemaining(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 300)

	_, err := f.writer.AddReturn(context.Background(), testTenant, "disb-1", day(2026, time.February, 5), d(400), "")
	assert.ErrorIs(t, err, ledger.ErrAmountExceedsRemaining)
}

func TestAddReimbursement_RepaysAdvance(t *testing.T) {
	f := newWriterFixture()
	f.seedAdvance("adv-1", 2000)
	ctx := context.Background()

	m, err := f.writer.AddReimbursement(ctx, testTenant, "adv-1", day(2026, time.February, 5), d(1500), ledger.ModalityCash, "partial repayment")
	require.NoError(t, err)
	assert.True(t, m.IsAdvance)

	adv, err := f.mem.GetAdvance(ctx, testTenant, "adv-1")
	require.NoError(t, err)
	assert.True(t, adv.Remaining.Equal(d(500)))
	assert.Equal(t, ledger.AdvancePartiallyRepaid, adv.Status)

	// Second installment closes it out.
	_, err = f.writer.AddReimbursement(ctx, testTenant, "adv-1", day(2026, time.March, 5), d(500), ledger.ModalityCash, "final")
	require.NoError(t, err)

	adv, err = f.mem.GetAdvance(ctx, testTenant, "adv-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.AdvanceFullyRepaid, adv.Status)
}

// =============================================================================
// DOCUMENT WRITE PATH
// =============================================================================

func docInput(reference string, total int64) ledger.DocumentInput {
	return ledger.DocumentInput{
		Type:        ledger.DocInvoice,
		Reference:   reference,
		TotalAmount: d(total),
		IssueDate:   day(2026, time.January, 5),
	}
}

func TestCreateDocument_StartsUnpaid(t *testing.T) {
	f := newWriterFixture()

	doc, err := f.writer.CreateDocument(context.Background(), testTenant, docInput("INV-001", 5000))
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentUnpaid, doc.Status)
	assert.True(t, doc.RemainingAmount.Equal(d(5000)))
	assert.True(t, doc.PaidAmount.IsZero())
}

func TestCreateDocument_RejectsDuplicateReference(t *testing.T) {
	f := newWriterFixture()
	ctx := context.Background()

	_, err := f.writer.CreateDocument(ctx, testTenant, docInput("INV-001", 5000))
	require.NoError(t, err)

	_, err = f.writer.CreateDocument(ctx, testTenant, docInput("INV-001", 100))
	assert.ErrorIs(t, err, ledger.ErrDuplicateReference)
}

func TestCreateDocument_SameReferenceDifferentTenant(t *testing.T) {
	// References are unique per tenant, not globally.
	f := newWriterFixture()
	ctx := context.Background()

	_, err := f.writer.CreateDocument(ctx, testTenant, docInput("INV-001", 5000))
	require.NoError(t, err)

	_, err = f.writer.CreateDocument(ctx, ledger.TenantID("tenant-2"), docInput("INV-001", 5000))
	assert.NoError(t, err)
}

func TestCreateDocument_RejectsDueBeforeIssue(t *testing.T) {
	f := newWriterFixture()
	in := docInput("INV-001", 5000)
	due := day(2026, time.January, 5) // equal to issue date, not strictly after
	in.DueDate = &due

	_, err := f.writer.CreateDocument(context.Background(), testTenant, in)
	assert.ErrorIs(t, err, ledger.ErrDueBeforeIssue)
}

func TestUpdateDocument_RejectsTotalBelowPaid(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	ctx := context.Background()

	doc, err := f.writer.CreateDocument(ctx, testTenant, docInput("INV-001", 500))
	require.NoError(t, err)

	_, err = f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(300, string(doc.ID)))
	require.NoError(t, err)

	_, err = f.writer.UpdateDocument(ctx, testTenant, doc.ID, docInput("INV-001", 200))
	assert.ErrorIs(t, err, ledger.ErrTotalBelowPaid)
}

func TestUpdateDocument_RaisingTotalReopensPaidDocument(t *testing.T) {
	// GIVEN: A 300 document fully paid
	// WHEN: Raising its total to 600
	// THEN: Status drops back to partially paid

	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	ctx := context.Background()

	doc, err := f.writer.CreateDocument(ctx, testTenant, docInput("INV-001", 300))
	require.NoError(t, err)
	_, err = f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(300, string(doc.ID)))
	require.NoError(t, err)

	updated, err := f.writer.UpdateDocument(ctx, testTenant, doc.ID, docInput("INV-001", 600))
	require.NoError(t, err)
	assert.Equal(t, ledger.DocumentPartiallyPaid, updated.Status)
	assert.True(t, updated.RemainingAmount.Equal(d(300)))
}

func TestDeleteDocument_RejectedWhileJustificationsLinked(t *testing.T) {
	f := newWriterFixture()
	f.seedDisbursement("disb-1", 1000)
	ctx := context.Background()

	doc, err := f.writer.CreateDocument(ctx, testTenant, docInput("INV-001", 500))
	require.NoError(t, err)
	j, err := f.writer.AddJustification(ctx, testTenant, "disb-1", justInput(300, string(doc.ID)))
	require.NoError(t, err)

	err = f.writer.DeleteDocument(ctx, testTenant, doc.ID)
	assert.ErrorIs(t, err, ledger.ErrDocumentHasJustifications)

	// Unlink, then the delete goes through.
	require.NoError(t, f.writer.DeleteJustification(ctx, testTenant, j.ID))
	assert.NoError(t, f.writer.DeleteDocument(ctx, testTenant, doc.ID))
}
