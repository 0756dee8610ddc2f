package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

type dispatchService struct {
	auditLog transfer.AuditLog
	notifier Notifier
	logger   *slog.Logger
}

// NewDispatchService builds the base dispatcher. auditLog may be nil when no
// audit store is configured.
func NewDispatchService(auditLog transfer.AuditLog, notifier Notifier, logger *slog.Logger) DispatchService {
	return &dispatchService{
		auditLog: auditLog,
		notifier: notifier,
		logger:   logger,
	}
}

// Dispatch records transfer events before notifying. OTP_ISSUED events have no
// transfer and are only delivered.
// Any error leaves the Kafka offset uncommitted, and the audit log drops the
// redelivered duplicate.
func (s *dispatchService) Dispatch(ctx context.Context, event *transfer.Event) error {
	logger := s.logger.With(
		"event_id", event.EventID.String(),
		"event_type", event.Type,
		"user_id", event.UserID.String(),
	)
	if event.CorrelationID != "" {
		logger = logger.With("correlation_id", event.CorrelationID)
	}
	if event.Reference != "" {
		logger = logger.With("reference", event.Reference)
	}

	if s.auditLog != nil && event.TransferID != uuid.Nil {
		if err := s.auditLog.Record(ctx, event); err != nil {
			logger.Error("Failed to record event in audit log", "error", err)
			return fmt.Errorf("failed to record event %s: %w", event.EventID, err)
		}
	}

	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.Error("Failed to notify user", "error", err)
		return fmt.Errorf("failed to notify for event %s: %w", event.EventID, err)
	}

	logger.Info("Dispatched transfer event")
	return nil
}
