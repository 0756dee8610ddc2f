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
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
)

func TestAccountHandler_GetByID(t *testing.T) {
	userID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/accounts/:id", handler.GetByID)

		now := time.Now()
		acc := &account.Account{
			ID:        uuid.New(),
			UserID:    userID,
			OwnerName: "John Doe",
			Balance:   int64(10000),
			Currency:  "USD",
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		mockService.On("GetAccount", mock.Anything, userID, acc.ID).Return(acc, nil)

		w, resp := doJSON(t, router, http.MethodGet, "/accounts/"+acc.ID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got AccountResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		assert.Equal(t, acc.ID.String(), got.ID)
		assert.Equal(t, int64(10000), got.Balance)
		assert.True(t, got.Active)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidID", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/accounts/:id", handler.GetByID)

		w, resp := doJSON(t, router, http.MethodGet, "/accounts/invalid-uuid", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "Invalid account ID", resp.Error.Message)
	})

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/accounts/:id", handler.GetByID)

		id := uuid.New()
		mockService.On("GetAccount", mock.Anything, userID, id).Return(nil, account.ErrAccountNotFound{AccountID: id})

		w, resp := doJSON(t, router, http.MethodGet, "/accounts/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/accounts/:id", handler.GetByID)

		id := uuid.New()
		mockService.On("GetAccount", mock.Anything, userID, id).Return(nil, errors.New("database error"))

		w, _ := doJSON(t, router, http.MethodGet, "/accounts/"+id.String(), nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestAccountHandler_ListLedger(t *testing.T) {
	userID := uuid.New()
	accountID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/accounts/:id/ledger", handler.ListLedger)

		entries := []*ledger.Entry{
			{ID: uuid.New(), TransferID: uuid.New(), Kind: ledger.KindSettlement, TransferType: shared.TransferTypeWire, SourceAccountID: accountID, Amount: 1000, Fee: 25, Currency: "USD", Status: "POSTED", CreatedAt: time.Now()},
			{ID: uuid.New(), TransferID: uuid.New(), Kind: ledger.KindReversal, TransferType: shared.TransferTypeWire, SourceAccountID: accountID, Amount: 1000, Currency: "USD", Status: "POSTED", CreatedAt: time.Now()},
		}
		mockService.On("ListLedger", mock.Anything, userID, accountID, 10, 0).Return(entries, int64(2), nil)

		w, resp := doJSON(t, router, http.MethodGet, "/accounts/"+accountID.String()+"/ledger", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		var got []LedgerEntryResponse
		require.NoError(t, json.Unmarshal(resp.Data, &got))
		require.Len(t, got, 2)
		assert.Equal(t, "SETTLEMENT", got[0].Kind)
		assert.Equal(t, "REVERSAL", got[1].Kind)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, 1, resp.Meta.TotalPages)
	})

	t.Run("ForeignAccount", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/accounts/:id/ledger", handler.ListLedger)

		mockService.On("ListLedger", mock.Anything, userID, accountID, 10, 0).Return(nil, int64(0), account.ErrAccountNotFound{AccountID: accountID})

		w, _ := doJSON(t, router, http.MethodGet, "/accounts/"+accountID.String()+"/ledger", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("InvalidPagination", func(t *testing.T) {
		mockService := new(MockAccountService)
		handler := NewAccountHandler(newTestLogger(), mockService)
		router := setupTestRouter(userID)
		router.GET("/accounts/:id/ledger", handler.ListLedger)

		w, _ := doJSON(t, router, http.MethodGet, "/accounts/"+accountID.String()+"/ledger?page=0", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "ListLedger", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
