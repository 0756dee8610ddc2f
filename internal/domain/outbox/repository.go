package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

// Repository stores lifecycle events in the same transaction as the state
// change that produced them, so an event exists if and only if the change
// committed. The poller drains PENDING rows to Kafka.
type Repository interface {
	// Create enqueues message as PENDING
	Create(ctx context.Context, message *Message) error
	// GetPending returns up to limit PENDING rows, oldest first
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	IncrementAttempts(ctx context.Context, id int64) error
	// PurgeProcessed removes PROCESSED rows last touched before cutoff and
	// reports how many went. Undeliverable rows are kept for inspection.
	PurgeProcessed(ctx context.Context, cutoff time.Time) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrMessageNotFound is returned when a status update targets a missing row
type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return fmt.Sprintf("outbox message %d not found", e.ID)
}
