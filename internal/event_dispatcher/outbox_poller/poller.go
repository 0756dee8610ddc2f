// Package outbox_poller relays committed outbox rows to Kafka.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/outbox"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/platform/metrics"
)

// Poller processes pending outbox messages
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        EventPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
	retention        time.Duration
	purgeInterval    time.Duration
	now              func() time.Time
}

const defaultPurgeInterval = time.Hour

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher EventPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
		retention:        cfg.Retention,
		purgeInterval:    defaultPurgeInterval,
		now:              time.Now,
	}
}

// Start polls until ctx is cancelled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"retention", p.retention.String(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// A nil channel never fires, which disables purging
	var purgeC <-chan time.Time
	if p.retention > 0 {
		purgeTicker := time.NewTicker(p.purgeInterval)
		defer purgeTicker.Stop()
		purgeC = purgeTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		case <-purgeC:
			if err := p.purgeProcessed(ctx); err != nil {
				p.logger.Error("Error purging processed outbox messages", "error", err)
			}
		}
	}
}

// purgeProcessed drops delivered rows older than the retention window
func (p *Poller) purgeProcessed(ctx context.Context) error {
	cutoff := p.now().Add(-p.retention)
	purged, err := p.outboxRepo.PurgeProcessed(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to purge outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if purged > 0 {
		metrics.OutboxPublished.WithLabelValues(metrics.OutcomePurged).Add(float64(purged))
		p.logger.Info("Purged processed outbox messages", "count", purged, "cutoff", cutoff)
	}
	return nil
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger.With("outbox_id", msg.ID, "event_type", msg.EventType)
		if msg.TransferID != nil {
			logger = logger.With("transfer_id", msg.TransferID.String())
		}
		if event, err := msg.GetEvent(); err == nil && event.CorrelationID != "" {
			logger = logger.With("correlation_id", event.CorrelationID)
		}

		if err := p.publisher.PublishEvent(ctx, msg); err != nil {
			metrics.OutboxPublished.WithLabelValues(metrics.OutcomeError).Inc()
			logger.Error("Failed to publish outbox message", "current_attempts", msg.Attempts, "error", err)

			if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
				logger.Error("Failed to increment attempts for outbox message", "error", errInc)
				continue
			}

			if msg.Attempts+1 >= p.maxRetryAttempts {
				metrics.OutboxPublished.WithLabelValues(metrics.OutcomeFailed).Inc()
				logger.Warn("Max retry attempts reached, marking outbox message as FAILED_TO_PUBLISH", "attempts_made", msg.Attempts+1)
				if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); errUpdate != nil {
					logger.Error("Failed to mark outbox message as FAILED_TO_PUBLISH", "error", errUpdate)
				}
			}
			continue
		}

		metrics.OutboxPublished.WithLabelValues(metrics.OutcomeSuccess).Inc()
		logger.Info("Published outbox message")
	}
	return nil
}
