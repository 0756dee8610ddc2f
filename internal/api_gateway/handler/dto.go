package handler

import (
	"time"

	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

// BeneficiaryRequest describes the external recipient of a Wire or Domestic transfer
type BeneficiaryRequest struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number"`
	SwiftCode     string `json:"swift_code"`
	BankName      string `json:"bank_name"`
	BankAddress   string `json:"bank_address"`
	Country       string `json:"country"`
}

// InitiateTransferRequest represents a request to start a new transfer.
// Field values are checked by the engine so rule violations surface as 422.
type InitiateTransferRequest struct {
	Type                 string              `json:"type" binding:"required"`
	SourceAccountID      string              `json:"source_account_id" binding:"required,uuid"`
	DestinationAccountID string              `json:"destination_account_id" binding:"omitempty,uuid"`
	Beneficiary          *BeneficiaryRequest `json:"beneficiary"`
	Amount               int64               `json:"amount"`
	Currency             string              `json:"currency" binding:"required"`
	Description          string              `json:"description" binding:"max=255"`
}

// SubmitGateRequest carries the factor value for one gate
type SubmitGateRequest struct {
	Value string `json:"value" binding:"required"`
}

// IssueOTPRequest asks for a fresh one-time code
type IssueOTPRequest struct {
	Purpose string `json:"purpose" binding:"max=64"`
}

// ReasonRequest carries an operator supplied reason for fail and reverse
type ReasonRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// GatesResponse lists when each gate was satisfied
type GatesResponse struct {
	PIN string `json:"pin,omitempty"`
	IMF string `json:"imf,omitempty"`
	Tax string `json:"tax,omitempty"`
	COT string `json:"cot,omitempty"`
	OTP string `json:"otp,omitempty"`
}

// TransferResponse represents a transfer in API responses
type TransferResponse struct {
	ID                   string              `json:"id"`
	Reference            string              `json:"reference"`
	Type                 string              `json:"type"`
	SourceAccountID      string              `json:"source_account_id"`
	DestinationAccountID string              `json:"destination_account_id,omitempty"`
	Beneficiary          *BeneficiaryRequest `json:"beneficiary,omitempty"`
	Amount               int64               `json:"amount"`
	Currency             string              `json:"currency"`
	Fee                  int64               `json:"fee"`
	TotalDebit           int64               `json:"total_debit"`
	Status               string              `json:"status"`
	Gates                GatesResponse       `json:"gates"`
	Description          string              `json:"description,omitempty"`
	FailedReason         string              `json:"failed_reason,omitempty"`
	ReversalReason       string              `json:"reversal_reason,omitempty"`
	CreatedAt            string              `json:"created_at"`
	CompletedAt          string              `json:"completed_at,omitempty"`
	FailedAt             string              `json:"failed_at,omitempty"`
	ReversedAt           string              `json:"reversed_at,omitempty"`
}

// SubmitGateResponse reports the outcome of a gate submission
type SubmitGateResponse struct {
	Transfer    TransferResponse     `json:"transfer"`
	NextGate    string               `json:"next_gate,omitempty"`
	Settled     bool                 `json:"settled"`
	LedgerEntry *LedgerEntryResponse `json:"ledger_entry,omitempty"`
}

// LedgerEntryResponse represents a posting in API responses
type LedgerEntryResponse struct {
	ID                   string `json:"id"`
	Reference            string `json:"reference"`
	TransferID           string `json:"transfer_id"`
	Kind                 string `json:"kind"`
	TransferType         string `json:"transfer_type"`
	SourceAccountID      string `json:"source_account_id"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
	Amount               int64  `json:"amount"`
	Fee                  int64  `json:"fee"`
	Currency             string `json:"currency"`
	Status               string `json:"status"`
	CreatedAt            string `json:"created_at"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	OwnerName string `json:"owner_name"`
	Balance   int64  `json:"balance"`
	Currency  string `json:"currency"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// EventResponse represents one audit trail entry. One-time codes are never included.
type EventResponse struct {
	EventID       string `json:"event_id"`
	Type          string `json:"type"`
	Gate          string `json:"gate,omitempty"`
	Amount        int64  `json:"amount"`
	Fee           int64  `json:"fee"`
	Currency      string `json:"currency,omitempty"`
	Reason        string `json:"reason,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// OTPIssuedResponse acknowledges a one-time code without revealing it
type OTPIssuedResponse struct {
	Purpose   string `json:"purpose"`
	ExpiresAt string `json:"expires_at"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// Offset converts the page number into a row offset
func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func (b *BeneficiaryRequest) toDomain() *transfer.Beneficiary {
	if b == nil {
		return nil
	}
	return &transfer.Beneficiary{
		Name:          b.Name,
		AccountNumber: b.AccountNumber,
		RoutingNumber: b.RoutingNumber,
		SwiftCode:     b.SwiftCode,
		BankName:      b.BankName,
		BankAddress:   b.BankAddress,
		Country:       b.Country,
	}
}

// mapTransferToResponse maps a transfer to its response DTO
func mapTransferToResponse(t *transfer.Transfer) TransferResponse {
	response := TransferResponse{
		ID:              t.ID.String(),
		Reference:       t.Reference,
		Type:            string(t.Type),
		SourceAccountID: t.SourceAccountID.String(),
		Amount:          t.Amount,
		Currency:        t.Currency,
		Fee:             t.Fee,
		TotalDebit:      t.TotalDebit,
		Status:          string(t.Status),
		Gates: GatesResponse{
			PIN: formatTime(t.Gates.PIN),
			IMF: formatTime(t.Gates.IMF),
			Tax: formatTime(t.Gates.Tax),
			COT: formatTime(t.Gates.COT),
			OTP: formatTime(t.Gates.OTP),
		},
		Description:    t.Description,
		FailedReason:   t.FailedReason,
		ReversalReason: t.ReversalReason,
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
		CompletedAt:    formatTime(t.CompletedAt),
		FailedAt:       formatTime(t.FailedAt),
		ReversedAt:     formatTime(t.ReversedAt),
	}

	if t.DestinationAccountID != nil {
		response.DestinationAccountID = t.DestinationAccountID.String()
	}
	if b := t.Beneficiary; b != nil {
		response.Beneficiary = &BeneficiaryRequest{
			Name:          b.Name,
			AccountNumber: b.AccountNumber,
			RoutingNumber: b.RoutingNumber,
			SwiftCode:     b.SwiftCode,
			BankName:      b.BankName,
			BankAddress:   b.BankAddress,
			Country:       b.Country,
		}
	}

	return response
}

// mapLedgerEntryToResponse maps a ledger entry to its response DTO
func mapLedgerEntryToResponse(entry *ledger.Entry) LedgerEntryResponse {
	response := LedgerEntryResponse{
		ID:              entry.ID.String(),
		Reference:       entry.Reference,
		TransferID:      entry.TransferID.String(),
		Kind:            string(entry.Kind),
		TransferType:    string(entry.TransferType),
		SourceAccountID: entry.SourceAccountID.String(),
		Amount:          entry.Amount,
		Fee:             entry.Fee,
		Currency:        entry.Currency,
		Status:          entry.Status,
		CreatedAt:       entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.DestinationAccountID != nil {
		response.DestinationAccountID = entry.DestinationAccountID.String()
	}
	return response
}

func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:        acc.ID.String(),
		OwnerName: acc.OwnerName,
		Balance:   acc.Balance,
		Currency:  acc.Currency,
		Active:    acc.Active,
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt: acc.UpdatedAt.Format(time.RFC3339),
	}
}

func mapEventToResponse(event *transfer.Event) EventResponse {
	return EventResponse{
		EventID:       event.EventID.String(),
		Type:          string(event.Type),
		Gate:          string(event.Gate),
		Amount:        event.Amount,
		Fee:           event.Fee,
		Currency:      event.Currency,
		Reason:        event.Reason,
		CorrelationID: event.CorrelationID,
		OccurredAt:    event.OccurredAt.Format(time.RFC3339),
	}
}
