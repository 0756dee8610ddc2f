package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/api_gateway/middleware"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

// envelope mirrors Response with raw data so each test can decode its own shape
type envelope struct {
	Data          json.RawMessage `json:"data"`
	Error         *ErrorInfo      `json:"error,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Meta          *MetaInfo       `json:"meta,omitempty"`
}

type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) Initiate(ctx context.Context, request *service.InitiateRequest) (*transfer.Transfer, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) SubmitGate(ctx context.Context, userID, transferID uuid.UUID, gate shared.Gate, value string) (*service.SubmitResult, error) {
	args := m.Called(ctx, userID, transferID, gate, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitResult), args.Error(1)
}

func (m *MockTransferService) Fail(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error) {
	args := m.Called(ctx, transferID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) Reverse(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error) {
	args := m.Called(ctx, transferID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) Get(ctx context.Context, transferID uuid.UUID) (*transfer.Transfer, error) {
	args := m.Called(ctx, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) GetByReference(ctx context.Context, reference string) (*transfer.Transfer, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transfer.Transfer), args.Error(1)
}

func (m *MockTransferService) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transfer.Transfer, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*transfer.Transfer), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransferService) ListEvents(ctx context.Context, transferID uuid.UUID, limit, offset int) ([]*transfer.Event, int64, error) {
	args := m.Called(ctx, transferID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*transfer.Event), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransferService) IssueOTP(ctx context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error) {
	args := m.Called(ctx, userID, purpose)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*verification.OneTimeCode), args.Error(1)
}

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	args := m.Called(ctx, userID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*account.Account), args.Error(1)
}

func (m *MockAccountService) ListLedger(ctx context.Context, userID, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	args := m.Called(ctx, userID, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*ledger.Entry), args.Get(1).(int64), args.Error(2)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestRouter returns a router that treats every request as coming from userID
func setupTestRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func newTestTransfer(userID uuid.UUID) *transfer.Transfer {
	t := transfer.New(shared.TransferTypeWire, userID, uuid.New(), 100000, "USD")
	t.Reference = "TRF-20261017-7Q2M9KD4XA"
	t.Beneficiary = &transfer.Beneficiary{Name: "Acme GmbH", AccountNumber: "DE89370400440532013000", SwiftCode: "COBADEFFXXX"}
	return t
}
