package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/transfer-verification-engine/internal/domain/outbox"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/platform/messaging/producers"
)

// EventPublisher hands one outbox message to the event bus
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// KafkaEventPublisher writes the stored payload to Kafka and marks the row PROCESSED
type KafkaEventPublisher struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &KafkaEventPublisher{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent is at-least-once: a crash between the write and the status
// update republishes the event, and consumers dedupe on event_id.
func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, message *outbox.Message) error {
	logger := p.logger.With(
		"outbox_id", message.ID,
		"event_id", message.EventID.String(),
		"event_type", message.EventType,
	)

	if err := p.producer.Publish(ctx, string(message.Key()), message.Payload); err != nil {
		return fmt.Errorf("failed to publish outbox message %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Event published but outbox status update failed", "error", err)
		return fmt.Errorf("event for outbox %d published, but failed to mark it as PROCESSED: %w", message.ID, err)
	}

	logger.Debug("Outbox message published and marked as PROCESSED")
	return nil
}
