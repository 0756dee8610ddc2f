package components

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/config"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFees() config.FeesConfig {
	return config.FeesConfig{
		shared.TransferTypeWire:     {Rate: decimal.RequireFromString("0.025"), Minimum: 2500},
		shared.TransferTypeDomestic: {Rate: decimal.RequireFromString("0.005")},
		shared.TransferTypeInternal: {Rate: decimal.Zero},
		shared.TransferTypeAccount:  {Rate: decimal.Zero},
	}
}

func testChains() config.GatesConfig {
	return config.GatesConfig{
		shared.TransferTypeWire:     {shared.GatePIN, shared.GateIMF, shared.GateTax, shared.GateCOT, shared.GateOTP},
		shared.TransferTypeDomestic: {shared.GatePIN, shared.GateOTP},
		shared.TransferTypeInternal: {shared.GatePIN, shared.GateOTP},
		shared.TransferTypeAccount:  {shared.GatePIN, shared.GateOTP},
	}
}

func newTestAccount(t *testing.T, userID uuid.UUID, balance int64) *account.Account {
	t.Helper()
	acc, err := account.NewAccount(userID, "Test User", balance, "USD")
	require.NoError(t, err)
	return acc
}

// verifiedTransfer builds a transfer with every gate of its chain stamped
func verifiedTransfer(transferType shared.TransferType, source *account.Account, dest *account.Account, amount int64) *transfer.Transfer {
	t := transfer.New(transferType, source.UserID, source.ID, amount, source.Currency)
	t.Reference = NewReferenceGenerator("TRF").Generate(time.Now())
	if dest != nil {
		id, user := dest.ID, dest.UserID
		t.DestinationAccountID = &id
		t.DestinationUserID = &user
	} else {
		t.Beneficiary = &transfer.Beneficiary{Name: "Acme GmbH", AccountNumber: "DE89370400440532013000", SwiftCode: "COBADEFFXXX"}
	}
	for _, gate := range testChains()[transferType] {
		t.StampGate(gate, time.Now())
	}
	return t
}

// validatorFunc adapts a function to service.GateValidator
type validatorFunc func(ctx context.Context, userID uuid.UUID, gate shared.Gate, value string) error

func (f validatorFunc) Validate(ctx context.Context, userID uuid.UUID, gate shared.Gate, value string) error {
	return f(ctx, userID, gate, value)
}
