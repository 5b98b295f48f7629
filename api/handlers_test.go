package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/treasury-engine/api"
	"github.com/warp/treasury-engine/ledger"
	"github.com/warp/treasury-engine/ledger/store"
)

const testTenant = "tenant-1"

// =============================================================================
// FIXTURE
// =============================================================================

type apiFixture struct {
	mem    *store.Memory
	router http.Handler
}

func newAPIFixture() *apiFixture {
	mem := store.NewMemory()
	return &apiFixture{mem: mem, router: api.NewRouter(api.NewHandler(mem))}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Tenant-ID", testTenant)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func (f *apiFixture) seedDisbursement(id string, initial int64) {
	f.mem.SaveDisbursement(ledger.Disbursement{
		ID:            ledger.DisbursementID(id),
		TenantID:      testTenant,
		PartyID:       "party-1",
		InitialAmount: decimal.NewFromInt(initial),
		Remaining:     decimal.NewFromInt(initial),
		Status:        ledger.DisbursementOpen,
		CreatedAt:     time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC),
	})
}

// =============================================================================
// TENANCY
// =============================================================================

func TestAPI_MissingTenantHeader(t *testing.T) {
	f := newAPIFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/reports/cash/balance", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestAPI_CashBalance(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(t, http.MethodGet, "/api/reports/cash/balance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeJSON[map[string]string](t, rec)
	assert.Equal(t, "0", body["balance"])
}

func TestAPI_CashTrend_InvalidDays(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(t, http.MethodGet, "/api/reports/cash/trend?days=0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_CashTrend_DefaultWindow(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(t, http.MethodGet, "/api/reports/cash/trend", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	points := decodeJSON[[]api.TrendPointDTO](t, rec)
	assert.Len(t, points, 30)
}

func TestAPI_PartyBalances(t *testing.T) {
	f := newAPIFixture()
	f.mem.SaveParty(ledger.Party{ID: "party-1", TenantID: testTenant, Name: "Alice", Type: ledger.PartyEmployee, Active: true})

	rec := f.do(t, http.MethodGet, "/api/reports/party-balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	reports := decodeJSON[[]api.PartyBalanceDTO](t, rec)
	require.Len(t, reports, 1)
	assert.Equal(t, "Alice", reports[0].PartyName)
	assert.Equal(t, "0", reports[0].Balance)
}

// =============================================================================
// JUSTIFICATION LIFECYCLE
// =============================================================================

func TestAPI_AddJustification(t *testing.T) {
	f := newAPIFixture()
	f.seedDisbursement("disb-1", 1000)

	rec := f.do(t, http.MethodPost, "/api/disbursements/disb-1/justifications", api.JustificationRequest{
		Date:     "2026-02-01",
		Amount:   "400",
		Category: "supplies",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	j := decodeJSON[api.JustificationDTO](t, rec)
	assert.Equal(t, "disb-1", j.DisbursementID)
	assert.Equal(t, "400", j.Amount)
	assert.NotEmpty(t, j.ID)
}

func TestAPI_AddJustification_OverLimit(t *testing.T) {
	f := newAPIFixture()
	f.seedDisbursement("disb-1", 300)

	rec := f.do(t, http.MethodPost, "/api/disbursements/disb-1/justifications", api.JustificationRequest{
		Date:   "2026-02-01",
		Amount: "400",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_AddJustification_UnknownDisbursement(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(t, http.MethodPost, "/api/disbursements/missing/justifications", api.JustificationRequest{
		Date:   "2026-02-01",
		Amount: "400",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_AddJustification_BadDate(t *testing.T) {
	f := newAPIFixture()
	f.seedDisbursement("disb-1", 1000)

	rec := f.do(t, http.MethodPost, "/api/disbursements/disb-1/justifications", api.JustificationRequest{
		Date:   "01/02/2026",
		Amount: "400",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_ReturnFlow(t *testing.T) {
	f := newAPIFixture()
	f.seedDisbursement("disb-1", 1000)

	rec := f.do(t, http.MethodPost, "/api/disbursements/disb-1/returns", api.ReturnRequest{
		Date:      "2026-02-05",
		Amount:    "1000",
		Reference: "unspent",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	m := decodeJSON[api.MovementDTO](t, rec)
	assert.Equal(t, string(ledger.Inflow), m.Kind)
	assert.Equal(t, string(ledger.ModalityCash), m.Modality)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestAPI_DocumentLifecycle(t *testing.T) {
	f := newAPIFixture()

	// Create.
	rec := f.do(t, http.MethodPost, "/api/documents", api.DocumentRequest{
		Type:        "invoice",
		Reference:   "INV-001",
		TotalAmount: "5000",
		IssueDate:   "2026-01-05",
		DueDate:     "2026-02-05",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	doc := decodeJSON[api.DocumentDTO](t, rec)
	assert.Equal(t, string(ledger.DocumentUnpaid), doc.Status)
	assert.Equal(t, "5000", doc.RemainingAmount)

	// Duplicate reference conflicts.
	rec = f.do(t, http.MethodPost, "/api/documents", api.DocumentRequest{
		Type:        "invoice",
		Reference:   "INV-001",
		TotalAmount: "100",
		IssueDate:   "2026-01-06",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Update.
	rec = f.do(t, http.MethodPut, "/api/documents/"+doc.ID, api.DocumentRequest{
		Type:        "invoice",
		Reference:   "INV-001",
		TotalAmount: "6000",
		IssueDate:   "2026-01-05",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decodeJSON[api.DocumentDTO](t, rec)
	assert.Equal(t, "6000", updated.TotalAmount)

	// Delete.
	rec = f.do(t, http.MethodDelete, "/api/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Gone now.
	rec = f.do(t, http.MethodDelete, "/api/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// ALERTS
// =============================================================================

func TestAPI_AlertFlow(t *testing.T) {
	f := newAPIFixture()
	f.mem.SaveSettings(ledger.Settings{
		TenantID:       testTenant,
		AlertsEnabled:  true,
		MinCashBalance: decimal.NewFromInt(1000),
	})

	// Evaluate: empty till breaches the cash minimum.
	rec := f.do(t, http.MethodPost, "/api/alerts/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	created := decodeJSON[[]api.AlertDTO](t, rec)
	require.Len(t, created, 1)
	assert.Equal(t, string(ledger.AlertLowCash), created[0].Type)

	// Idempotent rerun.
	rec = f.do(t, http.MethodPost, "/api/alerts/evaluate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeJSON[[]api.AlertDTO](t, rec))

	// Listed as active.
	rec = f.do(t, http.MethodGet, "/api/alerts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decodeJSON[[]api.AlertDTO](t, rec)
	require.Len(t, listed, 1)

	// Dismiss, then the default listing is empty.
	rec = f.do(t, http.MethodPost, "/api/alerts/"+listed[0].ID+"/dismiss", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/alerts", nil)
	assert.Empty(t, decodeJSON[[]api.AlertDTO](t, rec))

	// Still visible with include_dismissed.
	rec = f.do(t, http.MethodGet, "/api/alerts?include_dismissed=true", nil)
	dismissed := decodeJSON[[]api.AlertDTO](t, rec)
	require.Len(t, dismissed, 1)
	assert.True(t, dismissed[0].Dismissed)
}

func TestAPI_DismissUnknownAlert(t *testing.T) {
	f := newAPIFixture()

	rec := f.do(t, http.MethodPost, "/api/alerts/missing/dismiss", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
