// Package service fans committed transfer events out to the audit trail and
// to the notification collaborator.
package service

import (
	"context"

	"github.com/transfer-verification-engine/internal/domain/transfer"
)

// DispatchService handles one transfer event taken off the bus
type DispatchService interface {
	Dispatch(ctx context.Context, event *transfer.Event) error
}

// Notifier delivers an event to the user. OTP_ISSUED events carry the code to deliver.
type Notifier interface {
	Notify(ctx context.Context, event *transfer.Event) error
}
