package outbox_poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/outbox"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/platform/metrics"
)

func newOutboxMessage(t *testing.T, id int64, attempts int) *outbox.Message {
	t.Helper()
	tr := transfer.New(shared.TransferTypeDomestic, uuid.New(), uuid.New(), 12345, "USD")
	event := transfer.NewEvent(transfer.EventTransferInitiated, tr)
	event.CorrelationID = "corr-" + tr.ID.String()[:8]

	msg, err := outbox.NewMessage(event)
	require.NoError(t, err)
	msg.ID = id
	msg.Attempts = attempts
	return msg
}

func TestPoller_ProcessPendingMessages(t *testing.T) {
	cfg := &config.OutboxConfig{
		PollingInterval:  time.Second,
		BatchSize:        10,
		MaxRetryAttempts: 3,
	}

	tests := []struct {
		name       string
		setupMocks func(t *testing.T, repo *MockOutboxRepo, pub *MockEventPublisher)
		wantErr    string
	}{
		{
			name: "publishes every pending message",
			setupMocks: func(t *testing.T, repo *MockOutboxRepo, pub *MockEventPublisher) {
				m1, m2 := newOutboxMessage(t, 1, 0), newOutboxMessage(t, 2, 0)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m1, m2}, nil).Once()
				pub.On("PublishEvent", mock.Anything, m1).Return(nil).Once()
				pub.On("PublishEvent", mock.Anything, m2).Return(nil).Once()
			},
		},
		{
			name: "error getting pending messages",
			setupMocks: func(t *testing.T, repo *MockOutboxRepo, pub *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return(nil, errors.New("db error")).Once()
			},
			wantErr: "failed to get pending outbox messages",
		},
		{
			name: "no pending messages",
			setupMocks: func(t *testing.T, repo *MockOutboxRepo, pub *MockEventPublisher) {
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Once()
			},
		},
		{
			name: "failed publish counts an attempt and continues",
			setupMocks: func(t *testing.T, repo *MockOutboxRepo, pub *MockEventPublisher) {
				m1, m2 := newOutboxMessage(t, 1, 0), newOutboxMessage(t, 2, 0)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m1, m2}, nil).Once()
				pub.On("PublishEvent", mock.Anything, m1).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(1)).Return(nil).Once()
				pub.On("PublishEvent", mock.Anything, m2).Return(nil).Once()
			},
		},
		{
			name: "max retry attempts reached",
			setupMocks: func(t *testing.T, repo *MockOutboxRepo, pub *MockEventPublisher) {
				m := newOutboxMessage(t, 3, 2)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m}, nil).Once()
				pub.On("PublishEvent", mock.Anything, m).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(3)).Return(nil).Once()
				repo.On("UpdateStatus", mock.Anything, int64(3), shared.OutboxStatusFailedToPublish).Return(nil).Once()
			},
		},
		{
			name: "increment failure skips the status check",
			setupMocks: func(t *testing.T, repo *MockOutboxRepo, pub *MockEventPublisher) {
				m := newOutboxMessage(t, 4, 5)
				repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{m}, nil).Once()
				pub.On("PublishEvent", mock.Anything, m).Return(errors.New("broker down")).Once()
				repo.On("IncrementAttempts", mock.Anything, int64(4)).Return(errors.New("db error")).Once()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockOutboxRepo)
			pub := new(MockEventPublisher)
			tt.setupMocks(t, repo, pub)

			poller := NewPoller(cfg, repo, pub, newTestLogger())
			err := poller.processPendingMessages(context.Background())

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			repo.AssertExpectations(t)
			pub.AssertExpectations(t)
			repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, int64(4), mock.Anything)
		})
	}
}

func TestPoller_RecordsPublishMetrics(t *testing.T) {
	before := testutil.ToFloat64(metrics.OutboxPublished.WithLabelValues(metrics.OutcomeSuccess))

	repo := new(MockOutboxRepo)
	pub := new(MockEventPublisher)
	m := newOutboxMessage(t, 9, 0)
	repo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{m}, nil).Once()
	pub.On("PublishEvent", mock.Anything, m).Return(nil).Once()

	poller := NewPoller(&config.OutboxConfig{PollingInterval: time.Second, BatchSize: 5, MaxRetryAttempts: 3}, repo, pub, newTestLogger())
	require.NoError(t, poller.processPendingMessages(context.Background()))

	assert.Equal(t, before+1, testutil.ToFloat64(metrics.OutboxPublished.WithLabelValues(metrics.OutcomeSuccess)))
}

func TestPoller_StartStopsOnCancel(t *testing.T) {
	repo := new(MockOutboxRepo)
	repo.On("GetPending", mock.Anything, 10).Return([]*outbox.Message{}, nil).Maybe()

	poller := NewPoller(&config.OutboxConfig{PollingInterval: 5 * time.Millisecond, BatchSize: 10, MaxRetryAttempts: 3}, repo, new(MockEventPublisher), newTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}

func TestPoller_PurgeProcessed(t *testing.T) {
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	cfg := &config.OutboxConfig{PollingInterval: time.Second, BatchSize: 5, MaxRetryAttempts: 3, Retention: 48 * time.Hour}

	t.Run("DeletesRowsOlderThanRetention", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		repo.On("PurgeProcessed", mock.Anything, now.Add(-48*time.Hour)).Return(int64(12), nil).Once()

		poller := NewPoller(cfg, repo, new(MockEventPublisher), newTestLogger())
		poller.now = func() time.Time { return now }

		purged := metrics.OutboxPublished.WithLabelValues(metrics.OutcomePurged)
		before := testutil.ToFloat64(purged)

		require.NoError(t, poller.purgeProcessed(context.Background()))
		repo.AssertExpectations(t)
		assert.Equal(t, before+12, testutil.ToFloat64(purged))
	})

	t.Run("RepositoryError", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		repo.On("PurgeProcessed", mock.Anything, mock.Anything).Return(int64(0), errors.New("statement timeout")).Once()

		poller := NewPoller(cfg, repo, new(MockEventPublisher), newTestLogger())
		poller.now = func() time.Time { return now }

		err := poller.purgeProcessed(context.Background())
		assert.ErrorContains(t, err, "failed to purge outbox before 2026-10-15T08:00:00Z")
	})

	t.Run("StartRunsPurgeOnItsOwnTicker", func(t *testing.T) {
		repo := new(MockOutboxRepo)
		repo.On("GetPending", mock.Anything, 5).Return([]*outbox.Message{}, nil).Maybe()
		purgedCh := make(chan struct{}, 1)
		repo.On("PurgeProcessed", mock.Anything, mock.Anything).Return(int64(0), nil).
			Run(func(mock.Arguments) {
				select {
				case purgedCh <- struct{}{}:
				default:
				}
			})

		poller := NewPoller(&config.OutboxConfig{PollingInterval: time.Hour, BatchSize: 5, MaxRetryAttempts: 3, Retention: time.Hour}, repo, new(MockEventPublisher), newTestLogger())
		poller.purgeInterval = 5 * time.Millisecond

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go poller.Start(ctx)

		select {
		case <-purgedCh:
		case <-time.After(time.Second):
			t.Fatal("purge did not run")
		}
	})
}
