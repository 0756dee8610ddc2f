// Package producers writes transfer events and dead letters to Kafka.
package producers

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// Headers stamped on every parked record
const (
	HeaderDeadLetterReason = "dlq-reason"
	HeaderSourceTopic      = "dlq-source-topic"
	HeaderParkedAt         = "dlq-parked-at"
)

// MessagePublisher publishes serialized transfer events keyed by transfer id
type MessagePublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// DeadLetter is a consumed record the dispatcher gave up on
type DeadLetter struct {
	Key     []byte
	Payload []byte
	Reason  string
}

// DeadLetterPublisher parks records that can never be dispatched
type DeadLetterPublisher interface {
	Park(ctx context.Context, letter DeadLetter) error
	Close() error
}

// KafkaWriter is the part of *kafka.Writer the producers use
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ KafkaWriter = (*kafka.Writer)(nil)
