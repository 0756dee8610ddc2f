package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

// Kind distinguishes the settlement posting from its reversal
type Kind string

const (
	KindSettlement Kind = "SETTLEMENT"
	KindReversal   Kind = "REVERSAL"
)

// Entry is the immutable record of a settled money movement
type Entry struct {
	ID                   uuid.UUID           `json:"id"`
	Reference            string              `json:"reference"`
	TransferID           uuid.UUID           `json:"transfer_id"`
	Kind                 Kind                `json:"kind"`
	TransferType         shared.TransferType `json:"transfer_type"`
	SourceAccountID      uuid.UUID           `json:"source_account_id"`
	DestinationAccountID *uuid.UUID          `json:"destination_account_id,omitempty"`
	Amount               int64               `json:"amount"` // Stored in cents/minor units
	Fee                  int64               `json:"fee"`
	Currency             string              `json:"currency"`
	Status               string              `json:"status"`
	CreatedAt            time.Time           `json:"created_at"`
}

// TotalDebit is what the source account paid for this entry
func (e *Entry) TotalDebit() int64 {
	return e.Amount + e.Fee
}
