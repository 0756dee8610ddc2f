package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event *transfer.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockAuditLog struct {
	mock.Mock
}

func (m *MockAuditLog) Record(ctx context.Context, event *transfer.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockAuditLog) ListByTransfer(ctx context.Context, transferID uuid.UUID, limit, offset int) ([]*transfer.Event, error) {
	args := m.Called(ctx, transferID, limit, offset)
	events, _ := args.Get(0).([]*transfer.Event)
	return events, args.Error(1)
}

func (m *MockAuditLog) CountByTransfer(ctx context.Context, transferID uuid.UUID) (int64, error) {
	args := m.Called(ctx, transferID)
	return args.Get(0).(int64), args.Error(1)
}

type MockDispatchService struct {
	mock.Mock
}

func (m *MockDispatchService) Dispatch(ctx context.Context, event *transfer.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCompletedEvent() *transfer.Event {
	tr := transfer.New(shared.TransferTypeInternal, uuid.New(), uuid.New(), 2500, "USD")
	tr.Reference = "TRF-20261017-AAAAAAAAAA"
	event := transfer.NewEvent(transfer.EventTransferCompleted, tr)
	event.CorrelationID = "corr-1"
	return event
}
