package transfer

import (
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

// EventType names a lifecycle notification
type EventType string

const (
	EventTransferInitiated EventType = "TRANSFER_INITIATED"
	EventGateSatisfied     EventType = "GATE_SATISFIED"
	EventTransferCompleted EventType = "TRANSFER_COMPLETED"
	EventTransferFailed    EventType = "TRANSFER_FAILED"
	EventTransferReversed  EventType = "TRANSFER_REVERSED"
	EventOTPIssued         EventType = "OTP_ISSUED"
)

// Event is published to the notification and audit dispatch after the change it describes commits
type Event struct {
	EventID       uuid.UUID           `json:"event_id" bson:"event_id"`
	Type          EventType           `json:"type" bson:"type"`
	TransferID    uuid.UUID           `json:"transfer_id" bson:"transfer_id"`
	Reference     string              `json:"reference,omitempty" bson:"reference,omitempty"`
	TransferType  shared.TransferType `json:"transfer_type,omitempty" bson:"transfer_type,omitempty"`
	UserID        uuid.UUID           `json:"user_id" bson:"user_id"`
	Amount        int64               `json:"amount" bson:"amount"`
	Fee           int64               `json:"fee" bson:"fee"`
	Currency      string              `json:"currency,omitempty" bson:"currency,omitempty"`
	Gate          shared.Gate         `json:"gate,omitempty" bson:"gate,omitempty"`
	LedgerEntryID *uuid.UUID          `json:"ledger_entry_id,omitempty" bson:"ledger_entry_id,omitempty"`
	Reason        string              `json:"reason,omitempty" bson:"reason,omitempty"`
	Purpose       string              `json:"purpose,omitempty" bson:"purpose,omitempty"`
	Code          string              `json:"code,omitempty" bson:"-"`
	CorrelationID string              `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	OccurredAt    time.Time           `json:"occurred_at" bson:"occurred_at"`
}

// NewEvent describes the current state of t
func NewEvent(eventType EventType, t *Transfer) *Event {
	return &Event{
		EventID:      uuid.New(),
		Type:         eventType,
		TransferID:   t.ID,
		Reference:    t.Reference,
		TransferType: t.Type,
		UserID:       t.UserID,
		Amount:       t.Amount,
		Fee:          t.Fee,
		Currency:     t.Currency,
		Reason:       t.FailedReason,
		OccurredAt:   time.Now(),
	}
}

// NewOTPIssuedEvent carries a freshly issued code to the delivery collaborator
func NewOTPIssuedEvent(userID uuid.UUID, purpose, code string) *Event {
	return &Event{
		EventID:    uuid.New(),
		Type:       EventOTPIssued,
		UserID:     userID,
		Purpose:    purpose,
		Code:       code,
		OccurredAt: time.Now(),
	}
}
