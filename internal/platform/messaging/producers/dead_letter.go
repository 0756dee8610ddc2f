package producers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/transfer-verification-engine/internal/config"
)

// ErrDLQDisabled is returned when no DLQ topic is configured
var ErrDLQDisabled = errors.New("dead letter topic is not configured")

const maxReasonLength = 512

// DLQProducer copies undecodable transfer events to the dead letter topic.
// The payload is written byte for byte so the record can be replayed onto
// the event topic once fixed; the diagnosis travels in headers.
type DLQProducer struct {
	logger      *slog.Logger
	writer      KafkaWriter
	dlqTopic    string
	sourceTopic string
	now         func() time.Time
}

// NewDLQProducer returns a nil producer when cfg.DLQTopic is empty
func NewDLQProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*DLQProducer, error) {
	if cfg.DLQTopic == "" {
		logger.Info("Dead letter topic not configured, undecodable events will be retried")
		return nil, nil
	}

	if err := ensureTopic(ctx, cfg, cfg.DLQTopic, logger); err != nil {
		return nil, fmt.Errorf("failed to ensure dead letter topic %s exists: %w", cfg.DLQTopic, err)
	}

	return &DLQProducer{
		logger: logger,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.BrokerList()...),
			Topic:        cfg.DLQTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: cfg.MaxWait,
		},
		dlqTopic:    cfg.DLQTopic,
		sourceTopic: cfg.EventTopic,
		now:         time.Now,
	}, nil
}

// Park writes the letter and blocks until every in-sync replica has it, so
// the consumer only commits past records that are safely parked.
func (p *DLQProducer) Park(ctx context.Context, letter DeadLetter) error {
	if p == nil || p.writer == nil {
		return ErrDLQDisabled
	}

	reason := letter.Reason
	if len(reason) > maxReasonLength {
		reason = reason[:maxReasonLength]
	}

	msg := kafka.Message{
		Key:   letter.Key,
		Value: letter.Payload,
		Headers: []kafka.Header{
			{Key: HeaderDeadLetterReason, Value: []byte(reason)},
			{Key: HeaderSourceTopic, Value: []byte(p.sourceTopic)},
			{Key: HeaderParkedAt, Value: []byte(p.now().UTC().Format(time.RFC3339Nano))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to park transfer event",
			"topic", p.dlqTopic,
			"message_key", string(letter.Key),
			"error", err,
		)
		return fmt.Errorf("failed to park event on %s: %w", p.dlqTopic, err)
	}

	p.logger.Warn("Parked transfer event",
		"topic", p.dlqTopic,
		"message_key", string(letter.Key),
		"payload_bytes", len(letter.Payload),
		"reason", reason,
	)
	return nil
}

func (p *DLQProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close dead letter writer for %s: %w", p.dlqTopic, err)
	}
	p.logger.Info("Closed dead letter producer", "topic", p.dlqTopic)
	return nil
}
