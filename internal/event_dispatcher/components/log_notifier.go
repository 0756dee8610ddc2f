package components

import (
	"context"
	"log/slog"
	"strings"

	"github.com/transfer-verification-engine/internal/domain/transfer"
)

// LogNotifier stands in for the external delivery channel by writing each
// notification to the structured log.
type LogNotifier struct {
	logger     *slog.Logger
	revealCode bool
}

// NewLogNotifier masks OTP codes unless revealCode is set
func NewLogNotifier(logger *slog.Logger, revealCode bool) *LogNotifier {
	return &LogNotifier{
		logger:     logger,
		revealCode: revealCode,
	}
}

func (n *LogNotifier) Notify(ctx context.Context, event *transfer.Event) error {
	attrs := []any{
		"event_id", event.EventID.String(),
		"event_type", event.Type,
		"user_id", event.UserID.String(),
	}

	switch event.Type {
	case transfer.EventOTPIssued:
		attrs = append(attrs, "purpose", event.Purpose, "code", n.maskCode(event.Code))
	case transfer.EventGateSatisfied:
		attrs = append(attrs, "reference", event.Reference, "gate", event.Gate)
	case transfer.EventTransferFailed, transfer.EventTransferReversed:
		attrs = append(attrs, "reference", event.Reference, "amount", event.Amount, "currency", event.Currency, "reason", event.Reason)
	default:
		attrs = append(attrs, "reference", event.Reference, "amount", event.Amount, "fee", event.Fee, "currency", event.Currency)
	}

	n.logger.InfoContext(ctx, "Notification delivered", attrs...)
	return nil
}

func (n *LogNotifier) maskCode(code string) string {
	if n.revealCode {
		return code
	}
	return strings.Repeat("*", len(code))
}
