/*
handlers.go - HTTP API handlers for the treasury engine

PURPOSE:
  Exposes the ledger engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Reports:
    GET    /api/reports/party-balances   Per-party balance report
    GET    /api/reports/cash/balance     Theoretical cash balance
    GET    /api/reports/cash/trend       Daily running balance window
    GET    /api/reports/cash/today       Today's cash summary
    GET    /api/reports/cash/recent      Newest cash movements

  Alerts:
    POST   /api/alerts/evaluate          Run threshold rules, return new alerts
    GET    /api/alerts                   List alerts (?include_dismissed=true)
    POST   /api/alerts/{id}/dismiss      Dismiss one alert

  Disbursements:
    POST   /api/disbursements/{id}/justifications        Add justification
    PUT    /api/disbursements/{id}/justifications/{jid}  Update justification
    DELETE /api/disbursements/{id}/justifications/{jid}  Delete justification
    POST   /api/disbursements/{id}/returns               Return unspent funds

  Advances:
    POST   /api/advances/{id}/reimbursements  Record repayment

  Documents:
    POST   /api/documents                Create document
    PUT    /api/documents/{id}           Update document
    DELETE /api/documents/{id}           Delete document

TENANCY:
  Every request carries an X-Tenant-ID header (enforced by middleware in
  server.go). Handlers never see cross-tenant data.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicate reference, duplicate alert)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/ledger"
)

const tenantHeader = "X-Tenant-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   ledger.TxStore
	Reports *ledger.ReportService
	Writer  *ledger.Writer
	Alerts  *ledger.AlertEvaluator
}

// NewHandler creates a new handler with the given store.
func NewHandler(store ledger.TxStore) *Handler {
	return &Handler{
		Store:   store,
		Reports: ledger.NewReportService(store),
		Writer:  ledger.NewWriter(store),
		Alerts:  ledger.NewAlertEvaluator(store),
	}
}

func tenant(r *http.Request) ledger.TenantID {
	return ledger.TenantID(r.Header.Get(tenantHeader))
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// PartyBalances returns the per-party balance report.
// GET /api/reports/party-balances?party_type=&date_from=&date_to=
func (h *Handler) PartyBalances(w http.ResponseWriter, r *http.Request) {
	var filter ledger.PartyBalanceFilter

	if v := r.URL.Query().Get("party_type"); v != "" {
		pt := ledger.PartyType(v)
		filter.PartyType = &pt
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		from, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_from", err)
			return
		}
		filter.DateFrom = &from
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		to, err := time.Parse(dateLayout, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date_to", err)
			return
		}
		filter.DateTo = &to
	}

	reports, err := h.Reports.AllPartyBalances(r.Context(), tenant(r), filter)
	if err != nil {
		writeDomainError(w, "Failed to compute party balances", err)
		return
	}

	dtos := make([]PartyBalanceDTO, len(reports))
	for i, rep := range reports {
		dtos[i] = toPartyBalanceDTO(rep)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CashBalance returns the theoretical cash balance.
// GET /api/reports/cash/balance
func (h *Handler) CashBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.Reports.CurrentCashBalance(r.Context(), tenant(r))
	if err != nil {
		writeDomainError(w, "Failed to compute cash balance", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"balance": balance.String()})
}

// CashTrend returns the daily running cash balance for a trailing window.
// GET /api/reports/cash/trend?days=N (default 30)
func (h *Handler) CashTrend(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days", err)
			return
		}
		days = n
	}

	points, err := h.Reports.CashBalanceTrend(r.Context(), tenant(r), days)
	if err != nil {
		if errors.Is(err, ledger.ErrInvalidWindow) {
			writeError(w, http.StatusBadRequest, "Window must be positive", err)
			return
		}
		writeDomainError(w, "Failed to compute cash trend", err)
		return
	}

	dtos := make([]TrendPointDTO, len(points))
	for i, p := range points {
		dtos[i] = TrendPointDTO{Date: p.Date.Format(dateLayout), Balance: p.Balance.String()}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CashToday returns the current day's cash activity.
// GET /api/reports/cash/today
func (h *Handler) CashToday(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Reports.TodayCashSummary(r.Context(), tenant(r))
	if err != nil {
		writeDomainError(w, "Failed to compute today's summary", err)
		return
	}
	writeJSON(w, http.StatusOK, CashSummaryDTO{
		Inflows:  summary.Inflows.String(),
		Outflows: summary.Outflows.String(),
		Net:      summary.Net.String(),
		Count:    summary.Count,
	})
}

// CashRecent returns the newest cash movements.
// GET /api/reports/cash/recent?limit=N (default 20)
func (h *Handler) CashRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	movements, err := h.Reports.RecentCashMovements(r.Context(), tenant(r), limit)
	if err != nil {
		writeDomainError(w, "Failed to list recent movements", err)
		return
	}

	dtos := make([]MovementDTO, len(movements))
	for i, m := range movements {
		dtos[i] = toMovementDTO(m)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ALERT HANDLERS
// =============================================================================

// EvaluateAlerts runs the threshold rules and returns the newly created
// alerts. Re-running against unchanged state returns an empty list.
// POST /api/alerts/evaluate
func (h *Handler) EvaluateAlerts(w http.ResponseWriter, r *http.Request) {
	created, err := h.Alerts.Evaluate(r.Context(), tenant(r))
	if err != nil {
		writeDomainError(w, "Alert evaluation failed", err)
		return
	}

	dtos := make([]AlertDTO, len(created))
	for i, a := range created {
		dtos[i] = toAlertDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListAlerts returns the tenant's alerts, undismissed only unless
// include_dismissed=true.
// GET /api/alerts
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	includeDismissed := r.URL.Query().Get("include_dismissed") == "true"

	alerts, err := h.Store.ListAlerts(r.Context(), tenant(r), includeDismissed)
	if err != nil {
		writeDomainError(w, "Failed to list alerts", err)
		return
	}

	dtos := make([]AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = toAlertDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DismissAlert marks one alert dismissed. Dismissal is permanent: the same
// breach re-fires as a fresh alert on the next evaluation.
// POST /api/alerts/{id}/dismiss
func (h *Handler) DismissAlert(w http.ResponseWriter, r *http.Request) {
	id := ledger.AlertID(chi.URLParam(r, "id"))
	if err := h.Store.DismissAlert(r.Context(), tenant(r), id); err != nil {
		writeDomainError(w, "Failed to dismiss alert", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

// =============================================================================
// DISBURSEMENT LIFECYCLE HANDLERS
// =============================================================================

// AddJustification records spending against a disbursement.
// POST /api/disbursements/{id}/justifications
func (h *Handler) AddJustification(w http.ResponseWriter, r *http.Request) {
	disbursement := ledger.DisbursementID(chi.URLParam(r, "id"))

	var req JustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date or amount", err)
		return
	}

	j, err := h.Writer.AddJustification(r.Context(), tenant(r), disbursement, in)
	if err != nil {
		writeDomainError(w, "Failed to add justification", err)
		return
	}
	writeJSON(w, http.StatusCreated, toJustificationDTO(*j))
}

// UpdateJustification edits a justification in place.
// PUT /api/disbursements/{id}/justifications/{jid}
func (h *Handler) UpdateJustification(w http.ResponseWriter, r *http.Request) {
	id := ledger.JustificationID(chi.URLParam(r, "jid"))

	var req JustificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date or amount", err)
		return
	}

	j, err := h.Writer.UpdateJustification(r.Context(), tenant(r), id, in)
	if err != nil {
		writeDomainError(w, "Failed to update justification", err)
		return
	}
	writeJSON(w, http.StatusOK, toJustificationDTO(*j))
}

// DeleteJustification removes a justification.
// DELETE /api/disbursements/{id}/justifications/{jid}
func (h *Handler) DeleteJustification(w http.ResponseWriter, r *http.Request) {
	id := ledger.JustificationID(chi.URLParam(r, "jid"))
	if err := h.Writer.DeleteJustification(r.Context(), tenant(r), id); err != nil {
		writeDomainError(w, "Failed to delete justification", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AddReturn records unspent disbursement funds coming back to cash.
// POST /api/disbursements/{id}/returns
func (h *Handler) AddReturn(w http.ResponseWriter, r *http.Request) {
	disbursement := ledger.DisbursementID(chi.URLParam(r, "id"))

	var req ReturnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	m, err := h.Writer.AddReturn(r.Context(), tenant(r), disbursement, date, amount, req.Reference)
	if err != nil {
		writeDomainError(w, "Failed to record return", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(*m))
}

// =============================================================================
// ADVANCE LIFECYCLE HANDLERS
// =============================================================================

// AddReimbursement records a repayment against an advance.
// POST /api/advances/{id}/reimbursements
func (h *Handler) AddReimbursement(w http.ResponseWriter, r *http.Request) {
	advance := ledger.AdvanceID(chi.URLParam(r, "id"))

	var req ReimbursementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	modality := ledger.Modality(req.Modality)
	if modality == "" {
		modality = ledger.ModalityCash
	}

	m, err := h.Writer.AddReimbursement(r.Context(), tenant(r), advance, date, amount, modality, req.Reference)
	if err != nil {
		writeDomainError(w, "Failed to record reimbursement", err)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(*m))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// CreateDocument creates a payment document.
// POST /api/documents
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date or amount", err)
		return
	}

	doc, err := h.Writer.CreateDocument(r.Context(), tenant(r), in)
	if err != nil {
		writeDomainError(w, "Failed to create document", err)
		return
	}
	writeJSON(w, http.StatusCreated, toDocumentDTO(*doc))
}

// UpdateDocument edits a document's caller-editable fields.
// PUT /api/documents/{id}
func (h *Handler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))

	var req DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date or amount", err)
		return
	}

	doc, err := h.Writer.UpdateDocument(r.Context(), tenant(r), id, in)
	if err != nil {
		writeDomainError(w, "Failed to update document", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentDTO(*doc))
}

// DeleteDocument removes a document with no linked justifications.
// DELETE /api/documents/{id}
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := ledger.DocumentID(chi.URLParam(r, "id"))
	if err := h.Writer.DeleteDocument(r.Context(), tenant(r), id); err != nil {
		writeDomainError(w, "Failed to delete document", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses: validation to 400,
// not-found to 404, duplicates to 409, anything else to 500.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case ledger.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, ledger.ErrDuplicateReference), errors.Is(err, ledger.ErrDuplicateAlert):
		writeError(w, http.StatusConflict, message, err)
	case ledger.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
