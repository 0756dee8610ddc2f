package transfer

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

// Beneficiary identifies the external recipient of a Wire or Domestic transfer
type Beneficiary struct {
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	RoutingNumber string `json:"routing_number,omitempty"`
	SwiftCode     string `json:"swift_code,omitempty"`
	BankName      string `json:"bank_name,omitempty"`
	BankAddress   string `json:"bank_address,omitempty"`
	Country       string `json:"country,omitempty"`
}

// Transfer is a request to move funds, driven through its gate chain before settlement
type Transfer struct {
	ID                   uuid.UUID             `json:"id"`
	Reference            string                `json:"reference"`
	Type                 shared.TransferType   `json:"type"`
	UserID               uuid.UUID             `json:"user_id"`
	SourceAccountID      uuid.UUID             `json:"source_account_id"`
	DestinationAccountID *uuid.UUID            `json:"destination_account_id,omitempty"`
	DestinationUserID    *uuid.UUID            `json:"destination_user_id,omitempty"`
	Beneficiary          *Beneficiary          `json:"beneficiary,omitempty"`
	Amount               int64                 `json:"amount"` // Stored in cents/minor units
	Currency             string                `json:"currency"`
	Fee                  int64                 `json:"fee"`
	TotalDebit           int64                 `json:"total_debit"`
	Status               shared.TransferStatus `json:"status"`
	Gates                GateStatus            `json:"gates"`
	Description          string                `json:"description,omitempty"`
	CompletedAt          *time.Time            `json:"completed_at,omitempty"`
	FailedAt             *time.Time            `json:"failed_at,omitempty"`
	FailedReason         string                `json:"failed_reason,omitempty"`
	ReversedAt           *time.Time            `json:"reversed_at,omitempty"`
	ReversalReason       string                `json:"reversal_reason,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// New builds a pending transfer; the caller assigns the reference
func New(transferType shared.TransferType, userID, sourceAccountID uuid.UUID, amount int64, currency string) *Transfer {
	now := time.Now()
	return &Transfer{
		ID:              uuid.New(),
		Type:            transferType,
		UserID:          userID,
		SourceAccountID: sourceAccountID,
		Amount:          amount,
		Currency:        currency,
		Status:          shared.TransferStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// TotalDebit returns amount + fee, the sum taken from the source account.
// Non-positive amounts, negative fees and sums past int64 are rejected with
// shared.ErrInvalidAmount.
func TotalDebit(amount, fee int64) (int64, error) {
	if amount <= 0 {
		return 0, shared.ErrInvalidAmount
	}
	if fee < 0 {
		return 0, fmt.Errorf("%w: negative fee %d", shared.ErrInvalidAmount, fee)
	}
	if fee > math.MaxInt64-amount {
		return 0, fmt.Errorf("%w: amount %d plus fee %d overflows", shared.ErrInvalidAmount, amount, fee)
	}
	return amount + fee, nil
}

// IsOwnedBy reports whether the user initiated the transfer
func (t *Transfer) IsOwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}

// StampGate records a satisfied gate and moves a pending transfer into processing
func (t *Transfer) StampGate(gate shared.Gate, at time.Time) {
	t.Gates.Stamp(gate, at)
	if t.Status == shared.TransferStatusPending {
		t.Status = shared.TransferStatusProcessing
	}
	t.UpdatedAt = at
}

// MarkCompleted records a successful settlement
func (t *Transfer) MarkCompleted(fee int64, at time.Time) {
	t.Fee = fee
	t.TotalDebit = t.Amount + fee
	t.Status = shared.TransferStatusCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
}

// MarkFailed records a terminal failure
func (t *Transfer) MarkFailed(reason string, at time.Time) {
	t.Status = shared.TransferStatusFailed
	t.FailedReason = reason
	t.FailedAt = &at
	t.UpdatedAt = at
}

// MarkReversed records a completed transfer being unwound
func (t *Transfer) MarkReversed(reason string, at time.Time) {
	t.Status = shared.TransferStatusReversed
	t.ReversalReason = reason
	t.ReversedAt = &at
	t.UpdatedAt = at
}
