package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

// Message stores a lifecycle event until it has been published
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	TransferID    *uuid.UUID          `json:"transfer_id,omitempty"`
	UserID        uuid.UUID           `json:"user_id"`
	EventType     transfer.EventType  `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *transfer.Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	var transferID *uuid.UUID
	if event.TransferID != uuid.Nil {
		id := event.TransferID
		transferID = &id
	}

	return &Message{
		EventID:    event.EventID,
		TransferID: transferID,
		UserID:     event.UserID,
		EventType:  event.Type,
		Payload:    payload,
		Status:     shared.OutboxStatusPending,
		CreatedAt:  time.Now(),
	}, nil
}

// Key partitions events so one transfer's events stay ordered
func (m *Message) Key() []byte {
	if m.TransferID != nil {
		return []byte(m.TransferID.String())
	}
	return []byte(m.UserID.String())
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetEvent extracts the transfer event from the payload
func (m *Message) GetEvent() (*transfer.Event, error) {
	var event transfer.Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
