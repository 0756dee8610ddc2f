package producers

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/config"
)

var parkedAt = time.Date(2026, 10, 17, 12, 30, 0, 0, time.UTC)

func newTestDLQProducer(writer KafkaWriter) *DLQProducer {
	return &DLQProducer{
		logger:      newTestLogger(),
		writer:      writer,
		dlqTopic:    "transfer_events_dlq",
		sourceTopic: "transfer_events",
		now:         func() time.Time { return parkedAt },
	}
}

func headerMap(msg kafka.Message) map[string]string {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}

func TestDLQProducer_Park(t *testing.T) {
	ctx := context.Background()

	t.Run("PayloadIsKeptVerbatim", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		payload := []byte(`{"type":"TRANSFER_COMPL`)

		var written kafka.Message
		writer.On("WriteMessages", ctx, mock.AnythingOfType("[]kafka.Message")).
			Run(func(args mock.Arguments) { written = args.Get(1).([]kafka.Message)[0] }).
			Return(nil).Once()

		err := newTestDLQProducer(writer).Park(ctx, DeadLetter{
			Key:     []byte("9b0c6d3e"),
			Payload: payload,
			Reason:  "failed to unmarshal transfer event: unexpected end of JSON input",
		})
		require.NoError(t, err)
		writer.AssertExpectations(t)

		assert.Equal(t, "9b0c6d3e", string(written.Key))
		assert.Equal(t, payload, written.Value)
		assert.Equal(t, map[string]string{
			HeaderDeadLetterReason: "failed to unmarshal transfer event: unexpected end of JSON input",
			HeaderSourceTopic:      "transfer_events",
			HeaderParkedAt:         "2026-10-17T12:30:00Z",
		}, headerMap(written))
	})

	t.Run("LongReasonIsTruncated", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		writer.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
			return len(headerMap(msgs[0])[HeaderDeadLetterReason]) == maxReasonLength
		})).Return(nil).Once()

		err := newTestDLQProducer(writer).Park(ctx, DeadLetter{Key: []byte("k"), Reason: strings.Repeat("x", 2000)})
		require.NoError(t, err)
		writer.AssertExpectations(t)
	})

	t.Run("WriterErrorIsWrapped", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		writeErr := errors.New("not enough replicas")
		writer.On("WriteMessages", ctx, mock.Anything).Return(writeErr).Once()

		err := newTestDLQProducer(writer).Park(ctx, DeadLetter{Key: []byte("k"), Payload: []byte("garbage")})
		assert.ErrorIs(t, err, writeErr)
		assert.Contains(t, err.Error(), "transfer_events_dlq")
	})

	t.Run("NilProducerIsDisabled", func(t *testing.T) {
		var disabled *DLQProducer
		assert.ErrorIs(t, disabled.Park(ctx, DeadLetter{}), ErrDLQDisabled)
	})
}

func TestNewDLQProducer_WithoutTopic(t *testing.T) {
	producer, err := NewDLQProducer(context.Background(), newTestLogger(), &config.KafkaConfig{Brokers: "localhost:9092"})
	require.NoError(t, err)
	assert.Nil(t, producer)
	assert.NoError(t, producer.Close())
}

func TestDLQProducer_Close(t *testing.T) {
	t.Run("WriterClosed", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		writer.On("Close").Return(nil).Once()

		require.NoError(t, newTestDLQProducer(writer).Close())
		writer.AssertExpectations(t)
	})

	t.Run("WriterCloseError", func(t *testing.T) {
		writer := new(MockKafkaWriter)
		closeErr := errors.New("broker gone")
		writer.On("Close").Return(closeErr).Once()

		assert.ErrorIs(t, newTestDLQProducer(writer).Close(), closeErr)
	})
}
