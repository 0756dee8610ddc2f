// Package consumer turns Kafka records from the transfer event topic into dispatches.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/event_dispatcher/service"
	"github.com/transfer-verification-engine/internal/platform/messaging/producers"
	"github.com/transfer-verification-engine/internal/platform/metrics"
)

const unknownEventType = "UNKNOWN"

var errMalformedEvent = errors.New("event is missing event_id or type")

// TransferEventHandler handles transfer lifecycle events read from Kafka
type TransferEventHandler struct {
	dispatchService service.DispatchService
	dlq             producers.DeadLetterPublisher
	logger          *slog.Logger
}

// NewTransferEventHandler creates a new handler. dlq may be nil.
func NewTransferEventHandler(
	logger *slog.Logger,
	dispatchService service.DispatchService,
	dlq producers.DeadLetterPublisher,
) *TransferEventHandler {
	return &TransferEventHandler{
		dispatchService: dispatchService,
		dlq:             dlq,
		logger:          logger,
	}
}

// HandleMessage returns nil when the offset may be committed
func (h *TransferEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	event, err := decodeEvent(value)
	if err != nil {
		metrics.EventsConsumed.WithLabelValues(unknownEventType, metrics.OutcomeRejected).Inc()
		return h.deadLetter(ctx, key, value, err)
	}

	logger := h.logger.With(
		"event_id", event.EventID.String(),
		"event_type", event.Type,
	)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
		ctx = shared.WithCorrelationID(ctx, event.CorrelationID)
	}

	if err := h.dispatchService.Dispatch(ctx, event); err != nil {
		metrics.EventsConsumed.WithLabelValues(string(event.Type), metrics.OutcomeError).Inc()
		logger.Error("Failed to dispatch transfer event", "error", err)
		return fmt.Errorf("dispatching event %s failed: %w", event.EventID, err)
	}

	metrics.EventsConsumed.WithLabelValues(string(event.Type), metrics.OutcomeSuccess).Inc()
	return nil
}

func decodeEvent(value []byte) (*transfer.Event, error) {
	var event transfer.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer event: %w", err)
	}
	if event.EventID == uuid.Nil || event.Type == "" {
		return nil, errMalformedEvent
	}
	return &event, nil
}

// deadLetter parks an undecodable record. Without a DLQ the error is returned
// so the record is retried rather than silently dropped.
func (h *TransferEventHandler) deadLetter(ctx context.Context, key, value []byte, cause error) error {
	h.logger.Error("Received undecodable transfer event", "message_key", string(key), "error", cause)

	if h.dlq == nil {
		return cause
	}

	letter := producers.DeadLetter{Key: key, Payload: value, Reason: cause.Error()}
	if err := h.dlq.Park(ctx, letter); err != nil {
		h.logger.Error("Failed to park undecodable event",
			"message_key", string(key),
			"dlq_error", err,
			"original_error", cause,
		)
		return cause
	}

	return nil
}
