package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/outbox"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// EventRecorderImpl writes lifecycle events to the transactional outbox
type EventRecorderImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

// NewEventRecorder creates an outbox-backed event recorder
func NewEventRecorder(outboxRepo outbox.Repository, logger *slog.Logger) service.EventRecorder {
	return &EventRecorderImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// Record stores the event in the same transaction as the change it describes.
// The poller publishes it only after that transaction commits.
func (r *EventRecorderImpl) Record(ctx context.Context, tx pgx.Tx, event *transfer.Event) error {
	if event.CorrelationID == "" {
		event.CorrelationID = shared.CorrelationID(ctx)
	}

	logger := r.logger
	if event.CorrelationID != "" {
		logger = r.logger.With("correlation_id", event.CorrelationID)
	}

	message, err := outbox.NewMessage(event)
	if err != nil {
		logger.Error("Failed to marshal outbox payload", "event_id", event.EventID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message for event %s: %w", event.EventID.String(), err)
	}

	if err := r.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message",
			"event_id", event.EventID.String(),
			"event_type", string(event.Type),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for event %s: %w", event.EventID.String(), err)
	}

	logger.Debug("Outbox message created",
		"event_type", string(event.Type),
		"transfer_id", event.TransferID.String(),
		"outbox_id", message.ID,
	)
	return nil
}
