package outbox_poller

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

func TestKafkaEventPublisher_PublishEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes payload keyed by transfer and marks processed", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		producer := new(MockMessagePublisher)
		msg := newOutboxMessage(t, 7, 0)

		producer.On("Publish", ctx, msg.TransferID.String(), json.RawMessage(msg.Payload)).Return(nil).Once()
		repo.On("UpdateStatus", ctx, int64(7), shared.OutboxStatusProcessed).Return(nil).Once()

		require.NoError(t, NewEventPublisher(repo, producer, newTestLogger()).PublishEvent(ctx, msg))
		producer.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("producer failure leaves the row pending", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		producer := new(MockMessagePublisher)
		msg := newOutboxMessage(t, 8, 1)
		publishErr := errors.New("leader not available")

		producer.On("Publish", ctx, mock.Anything, mock.Anything).Return(publishErr).Once()

		err := NewEventPublisher(repo, producer, newTestLogger()).PublishEvent(ctx, msg)
		assert.ErrorIs(t, err, publishErr)
		repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("status update failure is reported", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		producer := new(MockMessagePublisher)
		msg := newOutboxMessage(t, 9, 0)
		updateErr := errors.New("db error")

		producer.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		repo.On("UpdateStatus", ctx, int64(9), shared.OutboxStatusProcessed).Return(updateErr).Once()

		err := NewEventPublisher(repo, producer, newTestLogger()).PublishEvent(ctx, msg)
		require.Error(t, err)
		assert.ErrorIs(t, err, updateErr)
		assert.Contains(t, err.Error(), "published, but failed to mark it as PROCESSED")
	})
}
