package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
)

// TransferService drives a transfer from initiation through its gate chain to settlement
type TransferService interface {
	Initiate(ctx context.Context, request *InitiateRequest) (*transfer.Transfer, error)
	SubmitGate(ctx context.Context, userID, transferID uuid.UUID, gate shared.Gate, value string) (*SubmitResult, error)
	Fail(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error)
	Reverse(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error)
	Get(ctx context.Context, transferID uuid.UUID) (*transfer.Transfer, error)
	GetByReference(ctx context.Context, reference string) (*transfer.Transfer, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transfer.Transfer, int64, error)
	ListEvents(ctx context.Context, transferID uuid.UUID, limit, offset int) ([]*transfer.Event, int64, error)
	IssueOTP(ctx context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error)
}

// AccountService serves read access to a customer's accounts and postings
type AccountService interface {
	GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error)
	ListLedger(ctx context.Context, userID, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error)
}

// InitiateRequest describes a new transfer
type InitiateRequest struct {
	UserID               uuid.UUID
	Type                 shared.TransferType
	SourceAccountID      uuid.UUID
	DestinationAccountID *uuid.UUID
	Beneficiary          *transfer.Beneficiary
	Amount               int64
	Currency             string
	Description          string
}

// SubmitResult reports the transfer after a gate submission. NextGate is
// empty once the chain is complete; LedgerEntry is set when this call settled it.
type SubmitResult struct {
	Transfer    *transfer.Transfer
	NextGate    shared.Gate
	Settled     bool
	LedgerEntry *ledger.Entry
}

// GateValidator checks a submitted factor value for a user
type GateValidator interface {
	Validate(ctx context.Context, userID uuid.UUID, gate shared.Gate, value string) error
}

// GateResolver answers which gates a transfer type requires and in what order
type GateResolver interface {
	RequiredGates(transferType shared.TransferType) []shared.Gate
	NextGate(t *transfer.Transfer) (shared.Gate, bool)
	IsComplete(t *transfer.Transfer) bool
	Requires(transferType shared.TransferType, gate shared.Gate) bool
}

// FeeCalculator computes the fee retained on a transfer
type FeeCalculator interface {
	Fee(transferType shared.TransferType, amount int64) int64
}

// SettlementLedger moves money for a fully verified transfer
type SettlementLedger interface {
	Settle(ctx context.Context, transferID uuid.UUID) (*ledger.Entry, error)
	Reverse(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error)
}

// EventRecorder writes a lifecycle event to the outbox inside tx
type EventRecorder interface {
	Record(ctx context.Context, tx pgx.Tx, event *transfer.Event) error
}

// ReferenceGenerator produces human readable identifiers
type ReferenceGenerator interface {
	Generate(now time.Time) string
}

// OTPIssuer creates one-time codes and hands them to delivery
type OTPIssuer interface {
	Issue(ctx context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error)
}
