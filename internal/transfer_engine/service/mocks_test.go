package service_test

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
)

type MockGateValidator struct {
	mock.Mock
}

func (m *MockGateValidator) Validate(ctx context.Context, userID uuid.UUID, gate shared.Gate, value string) error {
	args := m.Called(ctx, userID, gate, value)
	return args.Error(0)
}

type MockSettlementLedger struct {
	mock.Mock
}

func (m *MockSettlementLedger) Settle(ctx context.Context, transferID uuid.UUID) (*ledger.Entry, error) {
	args := m.Called(ctx, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Entry), args.Error(1)
}

func (m *MockSettlementLedger) Reverse(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error) {
	args := m.Called(ctx, transferID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

type MockOTPIssuer struct {
	mock.Mock
}

func (m *MockOTPIssuer) Issue(ctx context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error) {
	args := m.Called(ctx, userID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.OneTimeCode), args.Error(1)
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
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transfer.Event), args.Error(1)
}

func (m *MockAuditLog) CountByTransfer(ctx context.Context, transferID uuid.UUID) (int64, error) {
	args := m.Called(ctx, transferID)
	return args.Get(0).(int64), args.Error(1)
}

// sequenceReferences hands out fixed references, then repeats the last one
type sequenceReferences struct {
	refs []string
	next int
}

func (s *sequenceReferences) Generate(time.Time) string {
	ref := s.refs[min(s.next, len(s.refs)-1)]
	s.next++
	return ref
}
