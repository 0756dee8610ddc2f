package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/transfer_engine/enginetest"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

func TestAccountService_GetAccount(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	acc := newAccount(t, owner, 7000, "USD")
	svc := service.NewAccountService(enginetest.NewAccountStore(acc), enginetest.NewLedgerStore())

	got, err := svc.GetAccount(ctx, owner, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7000), got.Balance)

	_, err = svc.GetAccount(ctx, uuid.New(), acc.ID)
	assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: acc.ID})

	_, err = svc.GetAccount(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, account.ErrAccountNotFound{})
}

func TestAccountService_ListLedger(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	acc := newAccount(t, owner, 7000, "USD")
	ledgers := enginetest.NewLedgerStore()
	svc := service.NewAccountService(enginetest.NewAccountStore(acc), ledgers)

	for i := 0; i < 3; i++ {
		require.NoError(t, ledgers.Create(ctx, &ledger.Entry{
			ID:              uuid.New(),
			TransferID:      uuid.New(),
			Kind:            ledger.KindSettlement,
			TransferType:    shared.TransferTypeWire,
			SourceAccountID: acc.ID,
			Amount:          1000,
			Currency:        "USD",
			Status:          "POSTED",
			CreatedAt:       time.Now(),
		}))
	}

	entries, total, err := svc.ListLedger(ctx, owner, acc.ID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, int64(3), total)

	_, _, err = svc.ListLedger(ctx, uuid.New(), acc.ID, 2, 0)
	assert.ErrorIs(t, err, account.ErrAccountNotFound{})
}
