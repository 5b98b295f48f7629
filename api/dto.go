/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes for the HTTP layer, kept separate from domain types so the
  wire format can evolve independently. Amounts travel as decimal strings;
  dates as YYYY-MM-DD.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/treasury-engine/ledger"
)

const dateLayout = "2006-01-02"

// =============================================================================
// REPORTS
// =============================================================================

type PartyBalanceDTO struct {
	PartyID          string `json:"party_id"`
	PartyName        string `json:"party_name"`
	PartyType        string `json:"party_type"`
	TotalEntries     string `json:"total_entries"`
	TotalExits       string `json:"total_exits"`
	AdjustedExits    string `json:"adjusted_exits"`
	Balance          string `json:"balance"`
	MovementCount    int    `json:"movement_count"`
	LastMovementDate string `json:"last_movement_date,omitempty"`
}

func toPartyBalanceDTO(r ledger.PartyBalanceReport) PartyBalanceDTO {
	dto := PartyBalanceDTO{
		PartyID:       string(r.PartyID),
		PartyName:     r.PartyName,
		PartyType:     string(r.PartyType),
		TotalEntries:  r.TotalEntries.String(),
		TotalExits:    r.TotalExits.String(),
		AdjustedExits: r.AdjustedExits.String(),
		Balance:       r.Balance.String(),
		MovementCount: r.MovementCount,
	}
	if r.LastMovementDate != nil {
		dto.LastMovementDate = r.LastMovementDate.Format(dateLayout)
	}
	return dto
}

type TrendPointDTO struct {
	Date    string `json:"date"`
	Balance string `json:"balance"`
}

type CashSummaryDTO struct {
	Inflows  string `json:"inflows"`
	Outflows string `json:"outflows"`
	Net      string `json:"net"`
	Count    int    `json:"count"`
}

type MovementDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	PartyID   string `json:"party_id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Modality  string `json:"modality,omitempty"`
	Category  string `json:"category,omitempty"`
	Reference string `json:"reference,omitempty"`
}

func toMovementDTO(m ledger.Movement) MovementDTO {
	return MovementDTO{
		ID:        string(m.ID),
		Date:      m.Date.Format(dateLayout),
		PartyID:   string(m.PartyID),
		Kind:      string(m.Kind),
		Amount:    m.Amount.String(),
		Modality:  string(m.Modality),
		Category:  m.Category,
		Reference: m.Reference,
	}
}

// =============================================================================
// ALERTS
// =============================================================================

type AlertDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	RelatedID string `json:"related_id,omitempty"`
	Dismissed bool   `json:"dismissed"`
	CreatedAt string `json:"created_at"`
}

func toAlertDTO(a ledger.Alert) AlertDTO {
	return AlertDTO{
		ID:        string(a.ID),
		Type:      string(a.Type),
		Title:     a.Title,
		Message:   a.Message,
		Severity:  string(a.Severity),
		RelatedID: a.RelatedID,
		Dismissed: a.Dismissed,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// WRITE-PATH REQUESTS
// =============================================================================

type JustificationRequest struct {
	Date       string `json:"date"`
	Amount     string `json:"amount"`
	Category   string `json:"category"`
	Reference  string `json:"reference"`
	DocumentID string `json:"document_id"`
}

func (r JustificationRequest) toInput() (ledger.JustificationInput, error) {
	date, err := time.Parse(dateLayout, r.Date)
	if err != nil {
		return ledger.JustificationInput{}, err
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return ledger.JustificationInput{}, err
	}
	return ledger.JustificationInput{
		Date:       date,
		Amount:     amount,
		Category:   r.Category,
		Reference:  r.Reference,
		DocumentID: ledger.DocumentID(r.DocumentID),
	}, nil
}

type JustificationDTO struct {
	ID             string `json:"id"`
	DisbursementID string `json:"disbursement_id"`
	Date           string `json:"date"`
	Amount         string `json:"amount"`
	Category       string `json:"category,omitempty"`
	Reference      string `json:"reference,omitempty"`
	DocumentID     string `json:"document_id,omitempty"`
}

func toJustificationDTO(j ledger.Justification) JustificationDTO {
	return JustificationDTO{
		ID:             string(j.ID),
		DisbursementID: string(j.DisbursementID),
		Date:           j.Date.Format(dateLayout),
		Amount:         j.Amount.String(),
		Category:       j.Category,
		Reference:      j.Reference,
		DocumentID:     string(j.DocumentID),
	}
}

type ReturnRequest struct {
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Reference string `json:"reference"`
}

type ReimbursementRequest struct {
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Modality  string `json:"modality"`
	Reference string `json:"reference"`
}

type DocumentRequest struct {
	Type        string `json:"type"`
	Reference   string `json:"reference"`
	TotalAmount string `json:"total_amount"`
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date"`
}

func (r DocumentRequest) toInput() (ledger.DocumentInput, error) {
	issue, err := time.Parse(dateLayout, r.IssueDate)
	if err != nil {
		return ledger.DocumentInput{}, err
	}
	total, err := decimal.NewFromString(r.TotalAmount)
	if err != nil {
		return ledger.DocumentInput{}, err
	}
	in := ledger.DocumentInput{
		Type:        ledger.DocumentType(r.Type),
		Reference:   r.Reference,
		TotalAmount: total,
		IssueDate:   issue,
	}
	if r.DueDate != "" {
		due, err := time.Parse(dateLayout, r.DueDate)
		if err != nil {
			return ledger.DocumentInput{}, err
		}
		in.DueDate = &due
	}
	return in, nil
}

type DocumentDTO struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	Reference       string `json:"reference"`
	TotalAmount     string `json:"total_amount"`
	IssueDate       string `json:"issue_date"`
	DueDate         string `json:"due_date,omitempty"`
	PaidAmount      string `json:"paid_amount"`
	RemainingAmount string `json:"remaining_amount"`
	PaymentPercent  string `json:"payment_percent"`
	Status          string `json:"status"`
}

func toDocumentDTO(d ledger.Document) DocumentDTO {
	dto := DocumentDTO{
		ID:              string(d.ID),
		Type:            string(d.Type),
		Reference:       d.Reference,
		TotalAmount:     d.TotalAmount.String(),
		IssueDate:       d.IssueDate.Format(dateLayout),
		PaidAmount:      d.PaidAmount.String(),
		RemainingAmount: d.RemainingAmount.String(),
		PaymentPercent:  ledger.PaymentPercentage(d.TotalAmount, d.PaidAmount).StringFixed(1),
		Status:          string(d.Status),
	}
	if d.DueDate != nil {
		dto.DueDate = d.DueDate.Format(dateLayout)
	}
	return dto
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
