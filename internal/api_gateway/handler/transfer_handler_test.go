package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

func TestTransferHandler_Initiate(t *testing.T) {
	userID := uuid.New()
	sourceID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/transfers", handler.Initiate)

		created := newTestTransfer(userID)
		mockService.On("Initiate", mock.Anything, mock.MatchedBy(func(req *service.InitiateRequest) bool {
			return req.UserID == userID &&
				req.Type == shared.TransferTypeWire &&
				req.SourceAccountID == sourceID &&
				req.Currency == "USD" &&
				req.Beneficiary != nil && req.Beneficiary.SwiftCode == "COBADEFFXXX"
		})).Return(created, nil)

		w, resp := doJSON(t, router, http.MethodPost, "/transfers", InitiateTransferRequest{
			Type:            "wire",
			SourceAccountID: sourceID.String(),
			Amount:          100000,
			Currency:        "usd",
			Beneficiary:     &BeneficiaryRequest{Name: "Acme GmbH", AccountNumber: "DE89370400440532013000", SwiftCode: "COBADEFFXXX"},
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var got TransferResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, created.ID.String(), got.ID)
		assert.Equal(t, "PENDING", got.Status)
		assert.Equal(t, "TRF-20261017-7Q2M9KD4XA", got.Reference)
		mockService.AssertExpectations(t)
	})

	t.Run("InternalWithDestination", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/transfers", handler.Initiate)

		destID := uuid.New()
		created := transfer.New(shared.TransferTypeInternal, userID, sourceID, 500, "USD")
		created.DestinationAccountID = &destID
		mockService.On("Initiate", mock.Anything, mock.MatchedBy(func(req *service.InitiateRequest) bool {
			return req.DestinationAccountID != nil && *req.DestinationAccountID == destID && req.Beneficiary == nil
		})).Return(created, nil)

		w, resp := doJSON(t, router, http.MethodPost, "/transfers", InitiateTransferRequest{
			Type:                 "INTERNAL",
			SourceAccountID:      sourceID.String(),
			DestinationAccountID: destID.String(),
			Amount:               500,
			Currency:             "USD",
		})

		assert.Equal(t, http.StatusCreated, w.Code)
		var got TransferResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, destID.String(), got.DestinationAccountID)
		mockService.AssertExpectations(t)
	})

	t.Run("MalformedBody", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/transfers", handler.Initiate)

		w, resp := doJSON(t, router, http.MethodPost, "/transfers", map[string]interface{}{
			"type":              "WIRE",
			"source_account_id": "not-a-uuid",
			"currency":          "USD",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
		mockService.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
	})

	t.Run("RuleViolation", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/transfers", handler.Initiate)

		mockService.On("Initiate", mock.Anything, mock.Anything).Return(nil, shared.ErrInvalidAmount)

		w, resp := doJSON(t, router, http.MethodPost, "/transfers", InitiateTransferRequest{
			Type:            "WIRE",
			SourceAccountID: sourceID.String(),
			Amount:          0,
			Currency:        "USD",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_AMOUNT", resp.Error.Code)
	})

	t.Run("ForeignSourceAccount", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/transfers", handler.Initiate)

		mockService.On("Initiate", mock.Anything, mock.Anything).Return(nil, shared.ErrAccountNotOwned)

		w, _ := doJSON(t, router, http.MethodPost, "/transfers", InitiateTransferRequest{
			Type:            "WIRE",
			SourceAccountID: sourceID.String(),
			Amount:          100,
			Currency:        "USD",
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransferHandler_SubmitGate(t *testing.T) {
	userID := uuid.New()
	tr := newTestTransfer(userID)
	path := "/transfers/" + tr.ID.String() + "/gates/"

	newRouter := func(mockService *MockTransferService) http.Handler {
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/transfers/:id/gates/:gate", handler.SubmitGate)
		return router
	}

	t.Run("Accepted", func(t *testing.T) {
		mockService := new(MockTransferService)
		now := time.Now()
		advanced := *tr
		advanced.StampGate(shared.GatePIN, now)
		mockService.On("SubmitGate", mock.Anything, userID, tr.ID, shared.GatePIN, "1234").
			Return(&service.SubmitResult{Transfer: &advanced, NextGate: shared.GateIMF}, nil)

		w, resp := doJSON(t, newRouter(mockService), http.MethodPost, path+"pin", SubmitGateRequest{Value: "1234"})

		assert.Equal(t, http.StatusOK, w.Code)
		var got SubmitGateResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "IMF", got.NextGate)
		assert.False(t, got.Settled)
		assert.Equal(t, "PROCESSING", got.Transfer.Status)
		assert.NotEmpty(t, got.Transfer.Gates.PIN)
		assert.Nil(t, got.LedgerEntry)
		mockService.AssertExpectations(t)
	})

	t.Run("FinalGateSettles", func(t *testing.T) {
		mockService := new(MockTransferService)
		settled := *tr
		settled.MarkCompleted(2500, time.Now())
		entry := &ledger.Entry{ID: uuid.New(), TransferID: tr.ID, Kind: ledger.KindSettlement, Amount: tr.Amount, Fee: 2500, Currency: "USD", CreatedAt: time.Now()}
		mockService.On("SubmitGate", mock.Anything, userID, tr.ID, shared.GateOTP, "123456").
			Return(&service.SubmitResult{Transfer: &settled, Settled: true, LedgerEntry: entry}, nil)

		w, resp := doJSON(t, newRouter(mockService), http.MethodPost, path+"OTP", SubmitGateRequest{Value: "123456"})

		assert.Equal(t, http.StatusOK, w.Code)
		var got SubmitGateResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.True(t, got.Settled)
		assert.Empty(t, got.NextGate)
		require.NotNil(t, got.LedgerEntry)
		assert.Equal(t, entry.ID.String(), got.LedgerEntry.ID)
		assert.Equal(t, int64(102500), got.Transfer.TotalDebit)
	})

	t.Run("UnknownGate", func(t *testing.T) {
		mockService := new(MockTransferService)

		w, resp := doJSON(t, newRouter(mockService), http.MethodPost, path+"face", SubmitGateRequest{Value: "x"})

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_GATE", resp.Error.Code)
		mockService.AssertNotCalled(t, "SubmitGate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidTransferID", func(t *testing.T) {
		mockService := new(MockTransferService)

		w, _ := doJSON(t, newRouter(mockService), http.MethodPost, "/transfers/abc/gates/pin", SubmitGateRequest{Value: "1234"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("MissingValue", func(t *testing.T) {
		mockService := new(MockTransferService)

		w, _ := doJSON(t, newRouter(mockService), http.MethodPost, path+"pin", map[string]string{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	errorCases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"OutOfOrder", shared.ErrOutOfOrder, http.StatusConflict, "GATE_OUT_OF_ORDER"},
		{"Terminal", shared.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
		{"Mismatch", shared.ErrMismatch, http.StatusUnprocessableEntity, "VERIFICATION_FAILED"},
		{"NotConfigured", shared.ErrNotConfigured, http.StatusUnprocessableEntity, "FACTOR_NOT_CONFIGURED"},
		{"InsufficientFunds", shared.ErrInsufficientFunds, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS"},
		{"ForeignTransfer", transfer.ErrTransferNotFound{TransferID: tr.ID}, http.StatusNotFound, "NOT_FOUND"},
		{"Unexpected", errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockTransferService)
			mockService.On("SubmitGate", mock.Anything, userID, tr.ID, shared.GatePIN, "0000").Return(nil, tc.err)

			w, resp := doJSON(t, newRouter(mockService), http.MethodPost, path+"PIN", SubmitGateRequest{Value: "0000"})

			assert.Equal(t, tc.wantStatus, w.Code)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}

	t.Run("Throttled", func(t *testing.T) {
		mockService := new(MockTransferService)
		mockService.On("SubmitGate", mock.Anything, userID, tr.ID, shared.GatePIN, "0000").
			Return(nil, shared.TooManyAttemptsError{Key: "pin", RetryAfter: 90500 * time.Millisecond})

		w, resp := doJSON(t, newRouter(mockService), http.MethodPost, path+"pin", SubmitGateRequest{Value: "0000"})

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "91", w.Header().Get("Retry-After"))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "TOO_MANY_ATTEMPTS", resp.Error.Code)
	})
}

func TestTransferHandler_Get(t *testing.T) {
	userID := uuid.New()

	t.Run("Owned", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/transfers/:id", handler.Get)

		tr := newTestTransfer(userID)
		mockService.On("Get", mock.Anything, tr.ID).Return(tr, nil)

		w, resp := doJSON(t, router, http.MethodGet, "/transfers/"+tr.ID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got TransferResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, tr.ID.String(), got.ID)
		require.NotNil(t, got.Beneficiary)
		assert.Equal(t, "Acme GmbH", got.Beneficiary.Name)
	})

	t.Run("Foreign", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/transfers/:id", handler.Get)

		tr := newTestTransfer(uuid.New())
		mockService.On("Get", mock.Anything, tr.ID).Return(tr, nil)

		w, _ := doJSON(t, router, http.MethodGet, "/transfers/"+tr.ID.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Missing", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/transfers/:id", handler.Get)

		id := uuid.New()
		mockService.On("Get", mock.Anything, id).Return(nil, transfer.ErrTransferNotFound{TransferID: id})

		w, _ := doJSON(t, router, http.MethodGet, "/transfers/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTransferHandler_GetByReference(t *testing.T) {
	userID := uuid.New()
	mockService := new(MockTransferService)
	handler := NewTransferHandler(newTestLogger(), mockService)
	router := setupTestRouter(userID)
	router.GET("/transfers/by-reference/:reference", handler.GetByReference)

	owned := newTestTransfer(userID)
	foreign := newTestTransfer(uuid.New())
	foreign.Reference = "TRF-20261017-FOREIGN000"
	mockService.On("GetByReference", mock.Anything, owned.Reference).Return(owned, nil)
	mockService.On("GetByReference", mock.Anything, foreign.Reference).Return(foreign, nil)

	w, _ := doJSON(t, router, http.MethodGet, "/transfers/by-reference/"+owned.Reference, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = doJSON(t, router, http.MethodGet, "/transfers/by-reference/"+foreign.Reference, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransferHandler_List(t *testing.T) {
	userID := uuid.New()
	mockService := new(MockTransferService)
	handler := NewTransferHandler(newTestLogger(), mockService)
	router := setupTestRouter(userID)
	router.GET("/transfers", handler.List)

	transfers := []*transfer.Transfer{newTestTransfer(userID), newTestTransfer(userID)}
	mockService.On("ListByUser", mock.Anything, userID, 2, 2).Return(transfers, int64(5), nil)

	w, resp := doJSON(t, router, http.MethodGet, "/transfers?page=2&per_page=2", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var got []TransferResponse
	require.NoError(t, json.Unmarshal(resp.Data, &got))
	assert.Len(t, got, 2)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, 5, resp.Meta.TotalItems)

	w, _ = doJSON(t, router, http.MethodGet, "/transfers?per_page=500", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransferHandler_ListEvents(t *testing.T) {
	userID := uuid.New()
	tr := newTestTransfer(userID)

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/transfers/:id/events", handler.ListEvents)

		initiated := transfer.NewEvent(transfer.EventTransferInitiated, tr)
		mockService.On("Get", mock.Anything, tr.ID).Return(tr, nil)
		mockService.On("ListEvents", mock.Anything, tr.ID, 10, 0).Return([]*transfer.Event{initiated}, int64(1), nil)

		w, resp := doJSON(t, router, http.MethodGet, "/transfers/"+tr.ID.String()+"/events", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got []EventResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		require.Len(t, got, 1)
		assert.Equal(t, string(transfer.EventTransferInitiated), got[0].Type)
	})

	t.Run("ForeignTransferIsHidden", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(uuid.New())
		router.GET("/transfers/:id/events", handler.ListEvents)

		mockService.On("Get", mock.Anything, tr.ID).Return(tr, nil)

		w, _ := doJSON(t, router, http.MethodGet, "/transfers/"+tr.ID.String()+"/events", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockService.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestTransferHandler_IssueOTP(t *testing.T) {
	userID := uuid.New()

	t.Run("CodeIsNeverReturned", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/otp", handler.IssueOTP)

		code := verification.NewOneTimeCode(userID, "transfer", "482913", 10*time.Minute)
		mockService.On("IssueOTP", mock.Anything, userID, "transfer").Return(code, nil)

		w, resp := doJSON(t, router, http.MethodPost, "/otp", IssueOTPRequest{Purpose: "transfer"})

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.NotContains(t, w.Body.String(), "482913")
		var got OTPIssuedResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, "transfer", got.Purpose)
		assert.NotEmpty(t, got.ExpiresAt)
	})

	t.Run("EmptyBodyUsesDefaultPurpose", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/otp", handler.IssueOTP)

		code := verification.NewOneTimeCode(userID, "transfer", "111111", time.Minute)
		mockService.On("IssueOTP", mock.Anything, userID, "").Return(code, nil)

		w, _ := doJSON(t, router, http.MethodPost, "/otp", nil)

		assert.Equal(t, http.StatusAccepted, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Throttled", func(t *testing.T) {
		mockService := new(MockTransferService)
		handler := NewTransferHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.POST("/otp", handler.IssueOTP)

		mockService.On("IssueOTP", mock.Anything, userID, "").
			Return(nil, shared.TooManyAttemptsError{Key: "otp", RetryAfter: 30 * time.Second})

		w, _ := doJSON(t, router, http.MethodPost, "/otp", nil)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "30", w.Header().Get("Retry-After"))
	})
}
