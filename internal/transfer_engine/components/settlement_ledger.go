package components

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/platform/metrics"
	"github.com/transfer-verification-engine/internal/platform/persistence"
	"github.com/transfer-verification-engine/internal/transfer_engine/service"
)

const entryStatusPosted = "POSTED"

// SettlementLedgerImpl moves money for verified transfers under row locks
type SettlementLedgerImpl struct {
	db           persistence.TxRunner
	transferRepo transfer.Repository
	accountRepo  account.Repository
	ledgerRepo   ledger.Repository
	events       service.EventRecorder
	fees         service.FeeCalculator
	resolver     service.GateResolver
	references   service.ReferenceGenerator
	logger       *slog.Logger
}

// NewSettlementLedger creates the settlement ledger
func NewSettlementLedger(
	db persistence.TxRunner,
	transferRepo transfer.Repository,
	accountRepo account.Repository,
	ledgerRepo ledger.Repository,
	events service.EventRecorder,
	fees service.FeeCalculator,
	resolver service.GateResolver,
	references service.ReferenceGenerator,
	logger *slog.Logger,
) service.SettlementLedger {
	return &SettlementLedgerImpl{
		db:           db,
		transferRepo: transferRepo,
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		events:       events,
		fees:         fees,
		resolver:     resolver,
		references:   references,
		logger:       logger,
	}
}

// lockOrder returns the accounts a transfer touches sorted by id, so two
// settlements over the same pair always lock in the same order
func lockOrder(t *transfer.Transfer) []uuid.UUID {
	ids := []uuid.UUID{t.SourceAccountID}
	if t.DestinationAccountID != nil && *t.DestinationAccountID != t.SourceAccountID {
		ids = append(ids, *t.DestinationAccountID)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}

func lockAccounts(ctx context.Context, accounts account.Repository, t *transfer.Transfer) (map[uuid.UUID]*account.Account, error) {
	locked := make(map[uuid.UUID]*account.Account, 2)
	for _, id := range lockOrder(t) {
		acc, err := accounts.LockForUpdate(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to lock account %s: %w", id, err)
		}
		locked[id] = acc
	}
	return locked, nil
}

func (l *SettlementLedgerImpl) loggerFor(ctx context.Context) *slog.Logger {
	if id := shared.CorrelationID(ctx); id != "" {
		return l.logger.With("correlation_id", id)
	}
	return l.logger
}

// Settle debits the source, credits the destination, posts the ledger entry
// and completes the transfer in one transaction. A business failure commits
// the FAILED status and its event, then returns InsufficientFunds or
// AccountInactive. Any other error rolls everything back.
func (l *SettlementLedgerImpl) Settle(ctx context.Context, transferID uuid.UUID) (*ledger.Entry, error) {
	logger := l.loggerFor(ctx)

	var (
		entry       *ledger.Entry
		settled     *transfer.Transfer
		businessErr error
	)

	err := l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transfers := l.transferRepo.WithTx(tx)
		accounts := l.accountRepo.WithTx(tx)
		ledgers := l.ledgerRepo.WithTx(tx)

		t, err := transfers.LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		settled = t

		if t.Status == shared.TransferStatusCompleted {
			existing, err := ledgers.GetByTransferID(ctx, t.ID, ledger.KindSettlement)
			if err != nil {
				return err
			}
			entry = existing
			return nil
		}
		if !t.Status.AwaitingGates() {
			return shared.ErrInvalidState
		}
		if !l.resolver.IsComplete(t) {
			return shared.ErrVerificationIncomplete
		}

		fee := l.fees.Fee(t.Type, t.Amount)
		total, err := transfer.TotalDebit(t.Amount, fee)
		if err != nil {
			return err
		}

		locked, err := lockAccounts(ctx, accounts, t)
		if err != nil {
			return err
		}

		for _, acc := range locked {
			if !acc.Active {
				businessErr = shared.ErrAccountInactive
				return l.fail(ctx, tx, transfers, t, shared.FailureReasonAccountInactive)
			}
		}

		source := locked[t.SourceAccountID]
		if source.Balance < total {
			businessErr = shared.ErrInsufficientFunds
			return l.fail(ctx, tx, transfers, t, shared.FailureReasonInsufficientFunds)
		}

		if err := accounts.Debit(ctx, source.ID, total); err != nil {
			if errors.As(err, &account.ErrInsufficientBalance{}) {
				businessErr = shared.ErrInsufficientFunds
				return l.fail(ctx, tx, transfers, t, shared.FailureReasonInsufficientFunds)
			}
			return err
		}

		if t.DestinationAccountID != nil {
			if err := accounts.Credit(ctx, *t.DestinationAccountID, t.Amount); err != nil {
				return err
			}
		}

		now := time.Now()
		entry = &ledger.Entry{
			ID:                   uuid.New(),
			Reference:            l.references.Generate(now),
			TransferID:           t.ID,
			Kind:                 ledger.KindSettlement,
			TransferType:         t.Type,
			SourceAccountID:      t.SourceAccountID,
			DestinationAccountID: t.DestinationAccountID,
			Amount:               t.Amount,
			Fee:                  fee,
			Currency:             t.Currency,
			Status:               entryStatusPosted,
			CreatedAt:            now,
		}
		if err := ledgers.Create(ctx, entry); err != nil {
			return err
		}

		t.MarkCompleted(fee, now)
		if err := transfers.Update(ctx, t); err != nil {
			return err
		}

		event := transfer.NewEvent(transfer.EventTransferCompleted, t)
		event.LedgerEntryID = &entry.ID
		return l.events.Record(ctx, tx, event)
	})
	if err != nil {
		metrics.Settlements.WithLabelValues(transferTypeLabel(settled), metrics.OutcomeError).Inc()
		logger.Error("Settlement rolled back", "transfer_id", transferID.String(), "error", err)
		return nil, err
	}

	if businessErr != nil {
		metrics.Settlements.WithLabelValues(transferTypeLabel(settled), metrics.OutcomeFailed).Inc()
		logger.Warn("Settlement failed", "transfer_id", transferID.String(), "reason", businessErr.Error())
		return nil, businessErr
	}

	metrics.Settlements.WithLabelValues(transferTypeLabel(settled), metrics.OutcomeCompleted).Inc()
	logger.Info("Transfer settled",
		"transfer_id", transferID.String(),
		"ledger_entry_id", entry.ID.String(),
		"amount", entry.Amount,
		"fee", entry.Fee,
	)
	return entry, nil
}

func transferTypeLabel(t *transfer.Transfer) string {
	if t == nil {
		return "unknown"
	}
	return string(t.Type)
}

func (l *SettlementLedgerImpl) fail(ctx context.Context, tx pgx.Tx, transfers transfer.Repository, t *transfer.Transfer, reason shared.FailureReason) error {
	t.MarkFailed(string(reason), time.Now())
	if err := transfers.Update(ctx, t); err != nil {
		return err
	}
	return l.events.Record(ctx, tx, transfer.NewEvent(transfer.EventTransferFailed, t))
}

// Reverse unwinds a completed transfer: the source gets back amount plus fee
// and an internal destination gives back amount. If the destination can no
// longer cover it nothing changes and InsufficientFunds is returned.
func (l *SettlementLedgerImpl) Reverse(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error) {
	logger := l.loggerFor(ctx)

	var reversed *transfer.Transfer
	err := l.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transfers := l.transferRepo.WithTx(tx)
		accounts := l.accountRepo.WithTx(tx)
		ledgers := l.ledgerRepo.WithTx(tx)

		t, err := transfers.LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if t.Status != shared.TransferStatusCompleted {
			return shared.ErrInvalidState
		}

		settlement, err := ledgers.GetByTransferID(ctx, t.ID, ledger.KindSettlement)
		if err != nil {
			return err
		}

		if _, err := lockAccounts(ctx, accounts, t); err != nil {
			return err
		}

		if t.DestinationAccountID != nil {
			if err := accounts.Debit(ctx, *t.DestinationAccountID, settlement.Amount); err != nil {
				if errors.As(err, &account.ErrInsufficientBalance{}) {
					return shared.ErrInsufficientFunds
				}
				return err
			}
		}
		if err := accounts.Credit(ctx, t.SourceAccountID, settlement.TotalDebit()); err != nil {
			return err
		}

		now := time.Now()
		entry := &ledger.Entry{
			ID:                   uuid.New(),
			Reference:            l.references.Generate(now),
			TransferID:           t.ID,
			Kind:                 ledger.KindReversal,
			TransferType:         t.Type,
			SourceAccountID:      t.SourceAccountID,
			DestinationAccountID: t.DestinationAccountID,
			Amount:               settlement.Amount,
			Fee:                  settlement.Fee,
			Currency:             settlement.Currency,
			Status:               entryStatusPosted,
			CreatedAt:            now,
		}
		if err := ledgers.Create(ctx, entry); err != nil {
			return err
		}

		t.MarkReversed(reason, now)
		if err := transfers.Update(ctx, t); err != nil {
			return err
		}

		event := transfer.NewEvent(transfer.EventTransferReversed, t)
		event.Reason = reason
		event.LedgerEntryID = &entry.ID
		if err := l.events.Record(ctx, tx, event); err != nil {
			return err
		}

		reversed = t
		return nil
	})
	if err != nil {
		logger.Error("Reversal rolled back", "transfer_id", transferID.String(), "error", err)
		return nil, err
	}

	logger.Info("Transfer reversed", "transfer_id", transferID.String(), "reason", reason)
	return reversed, nil
}
