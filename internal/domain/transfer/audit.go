package transfer

import (
	"context"

	"github.com/google/uuid"
)

// AuditLog is the read-optimised projection of every event dispatched for a transfer
type AuditLog interface {
	// Record stores the event once; replays of the same event ID are ignored
	Record(ctx context.Context, event *Event) error
	ListByTransfer(ctx context.Context, transferID uuid.UUID, limit, offset int) ([]*Event, error)
	CountByTransfer(ctx context.Context, transferID uuid.UUID) (int64, error)
}
