package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
	"github.com/transfer-verification-engine/internal/platform/metrics"
	"github.com/transfer-verification-engine/internal/platform/persistence"
)

// Dependencies groups the collaborators of the transfer state machine
type Dependencies struct {
	DB                   persistence.TxRunner
	Transfers            transfer.Repository
	Accounts             account.Repository
	AuditLog             transfer.AuditLog
	Validator            GateValidator
	Resolver             GateResolver
	Fees                 FeeCalculator
	Settlement           SettlementLedger
	Events               EventRecorder
	References           ReferenceGenerator
	OTPIssuer            OTPIssuer
	MaxReferenceAttempts int
	Logger               *slog.Logger
}

type TransferServiceImpl struct {
	db                   persistence.TxRunner
	transfers            transfer.Repository
	accounts             account.Repository
	auditLog             transfer.AuditLog
	validator            GateValidator
	resolver             GateResolver
	fees                 FeeCalculator
	settlement           SettlementLedger
	events               EventRecorder
	references           ReferenceGenerator
	otpIssuer            OTPIssuer
	maxReferenceAttempts int
	logger               *slog.Logger
}

func NewTransferService(deps Dependencies) TransferService {
	attempts := deps.MaxReferenceAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &TransferServiceImpl{
		db:                   deps.DB,
		transfers:            deps.Transfers,
		accounts:             deps.Accounts,
		auditLog:             deps.AuditLog,
		validator:            deps.Validator,
		resolver:             deps.Resolver,
		fees:                 deps.Fees,
		settlement:           deps.Settlement,
		events:               deps.Events,
		references:           deps.References,
		otpIssuer:            deps.OTPIssuer,
		maxReferenceAttempts: attempts,
		logger:               deps.Logger,
	}
}

func (s *TransferServiceImpl) loggerFor(ctx context.Context) *slog.Logger {
	if id := shared.CorrelationID(ctx); id != "" {
		return s.logger.With("correlation_id", id)
	}
	return s.logger
}

func validCurrency(currency string) bool {
	if len(currency) != 3 {
		return false
	}
	for _, r := range currency {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Initiate validates the request and stores a PENDING transfer. Balances are
// only checked here, never mutated.
func (s *TransferServiceImpl) Initiate(ctx context.Context, request *InitiateRequest) (*transfer.Transfer, error) {
	logger := s.loggerFor(ctx)

	if !request.Type.IsValid() {
		return nil, shared.ErrInvalidTransferType
	}
	if request.Amount <= 0 {
		return nil, shared.ErrInvalidAmount
	}
	currency := strings.ToUpper(request.Currency)
	if !validCurrency(currency) {
		return nil, shared.ErrInvalidCurrency
	}

	source, err := s.accounts.GetByID(ctx, request.SourceAccountID)
	if err != nil {
		return nil, err
	}
	if !source.IsOwnedBy(request.UserID) {
		return nil, shared.ErrAccountNotOwned
	}
	if !source.Active {
		return nil, shared.ErrAccountInactive
	}
	if source.Currency != currency {
		return nil, shared.ErrCurrencyMismatch
	}

	t := transfer.New(request.Type, request.UserID, source.ID, request.Amount, currency)
	t.Description = request.Description
	if err := s.bindDestination(ctx, t, source, request); err != nil {
		return nil, err
	}

	total, err := transfer.TotalDebit(t.Amount, s.fees.Fee(t.Type, t.Amount))
	if err != nil {
		return nil, err
	}
	if !source.CanDebit(total) {
		return nil, shared.ErrInsufficientFunds
	}

	if err := s.create(ctx, t); err != nil {
		return nil, err
	}

	logger.Info("Transfer initiated",
		"transfer_id", t.ID.String(),
		"reference", t.Reference,
		"type", string(t.Type),
		"amount", t.Amount,
	)
	return t, nil
}

func (s *TransferServiceImpl) bindDestination(ctx context.Context, t *transfer.Transfer, source *account.Account, request *InitiateRequest) error {
	switch t.Type {
	case shared.TransferTypeWire, shared.TransferTypeDomestic:
		b := request.Beneficiary
		if b == nil || b.Name == "" || b.AccountNumber == "" {
			return fmt.Errorf("%w: beneficiary name and account number are required", shared.ErrInvalidDestination)
		}
		if t.Type == shared.TransferTypeWire && b.SwiftCode == "" {
			return fmt.Errorf("%w: wire transfers require a SWIFT code", shared.ErrInvalidDestination)
		}
		if t.Type == shared.TransferTypeDomestic && b.RoutingNumber == "" {
			return fmt.Errorf("%w: domestic transfers require a routing number", shared.ErrInvalidDestination)
		}
		beneficiary := *b
		t.Beneficiary = &beneficiary
		return nil
	}

	if request.DestinationAccountID == nil {
		return fmt.Errorf("%w: destination account is required", shared.ErrInvalidDestination)
	}
	destID := *request.DestinationAccountID
	if destID == source.ID {
		return fmt.Errorf("%w: destination must differ from source", shared.ErrInvalidDestination)
	}

	dest, err := s.accounts.GetByID(ctx, destID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			return fmt.Errorf("%w: destination account does not exist", shared.ErrInvalidDestination)
		}
		return err
	}

	switch t.Type {
	case shared.TransferTypeInternal:
		if dest.IsOwnedBy(t.UserID) {
			return fmt.Errorf("%w: internal transfers go to another customer", shared.ErrInvalidDestination)
		}
		destUser := dest.UserID
		t.DestinationUserID = &destUser
	case shared.TransferTypeAccount:
		if !dest.IsOwnedBy(t.UserID) {
			return fmt.Errorf("%w: account transfers stay between your own accounts", shared.ErrInvalidDestination)
		}
	}

	if !dest.Active {
		return shared.ErrAccountInactive
	}
	if dest.Currency != t.Currency {
		return shared.ErrCurrencyMismatch
	}

	t.DestinationAccountID = &destID
	return nil
}

// create inserts the transfer with its TRANSFER_INITIATED event, drawing a
// new reference whenever the previous one collided
func (s *TransferServiceImpl) create(ctx context.Context, t *transfer.Transfer) error {
	for attempt := 1; attempt <= s.maxReferenceAttempts; attempt++ {
		t.Reference = s.references.Generate(time.Now())

		err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
			if err := s.transfers.WithTx(tx).Create(ctx, t); err != nil {
				return err
			}
			return s.events.Record(ctx, tx, transfer.NewEvent(transfer.EventTransferInitiated, t))
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, transfer.ErrDuplicateReference{}) {
			return err
		}
		s.loggerFor(ctx).Warn("Transfer reference collided, retrying", "reference", t.Reference, "attempt", attempt)
	}

	return fmt.Errorf("failed to allocate a unique transfer reference after %d attempts", s.maxReferenceAttempts)
}

// SubmitGate verifies one factor of the transfer's chain and settles the
// transfer once the last gate passes
func (s *TransferServiceImpl) SubmitGate(ctx context.Context, userID, transferID uuid.UUID, gate shared.Gate, value string) (*SubmitResult, error) {
	logger := s.loggerFor(ctx).With("transfer_id", transferID.String(), "gate", string(gate))

	if !gate.IsValid() {
		return nil, shared.ErrInvalidGate
	}

	t, err := s.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !t.IsOwnedBy(userID) {
		return nil, transfer.ErrTransferNotFound{TransferID: transferID}
	}

	// A retried final submission finds the transfer already settled
	if t.Status == shared.TransferStatusCompleted && t.Gates.IsSatisfied(gate) {
		return &SubmitResult{Transfer: t, Settled: true}, nil
	}
	if !t.Status.AwaitingGates() {
		return nil, shared.ErrInvalidState
	}

	if t.Gates.IsSatisfied(gate) {
		return s.advance(ctx, t)
	}

	next, pending := s.resolver.NextGate(t)
	if !pending || gate != next {
		metrics.GateSubmissions.WithLabelValues(string(gate), metrics.OutcomeRejected).Inc()
		return nil, shared.ErrOutOfOrder
	}

	// The factor is checked while the transfer row is locked, so a duplicate
	// submission racing this one waits here and then finds the gate stamped.
	var rejected error
	err = s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transfers := s.transfers.WithTx(tx)

		locked, err := transfers.LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if !locked.Status.AwaitingGates() {
			return shared.ErrInvalidState
		}
		if locked.Gates.IsSatisfied(gate) {
			t = locked
			return nil
		}
		if next, _ := s.resolver.NextGate(locked); next != gate {
			return shared.ErrOutOfOrder
		}

		if err := s.validator.Validate(ctx, userID, gate, value); err != nil {
			rejected = err
			return err
		}

		locked.StampGate(gate, time.Now())
		if err := transfers.Update(ctx, locked); err != nil {
			return err
		}

		event := transfer.NewEvent(transfer.EventGateSatisfied, locked)
		event.Gate = gate
		if err := s.events.Record(ctx, tx, event); err != nil {
			return err
		}

		t = locked
		return nil
	})
	if rejected != nil {
		outcome := metrics.OutcomeRejected
		if errors.Is(rejected, shared.ErrTooManyAttempts) {
			outcome = metrics.OutcomeThrottled
		}
		metrics.GateSubmissions.WithLabelValues(string(gate), outcome).Inc()
		logger.Info("Gate rejected", "error", rejected)
		return nil, rejected
	}
	if err != nil {
		return nil, err
	}

	metrics.GateSubmissions.WithLabelValues(string(gate), metrics.OutcomeAccepted).Inc()
	logger.Info("Gate satisfied", "status", string(t.Status))

	return s.advance(ctx, t)
}

// advance reports the next gate, or settles when none is left
func (s *TransferServiceImpl) advance(ctx context.Context, t *transfer.Transfer) (*SubmitResult, error) {
	if next, pending := s.resolver.NextGate(t); pending {
		return &SubmitResult{Transfer: t, NextGate: next}, nil
	}

	entry, err := s.settlement.Settle(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	settled, err := s.transfers.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{Transfer: settled, Settled: true, LedgerEntry: entry}, nil
}

// Fail aborts a transfer that is still awaiting gates
func (s *TransferServiceImpl) Fail(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error) {
	if reason == "" {
		reason = string(shared.FailureReasonCancelled)
	}

	var failed *transfer.Transfer
	err := s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		transfers := s.transfers.WithTx(tx)

		t, err := transfers.LockForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if !t.Status.AwaitingGates() {
			return shared.ErrInvalidState
		}

		t.MarkFailed(reason, time.Now())
		if err := transfers.Update(ctx, t); err != nil {
			return err
		}
		if err := s.events.Record(ctx, tx, transfer.NewEvent(transfer.EventTransferFailed, t)); err != nil {
			return err
		}

		failed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.loggerFor(ctx).Info("Transfer failed", "transfer_id", transferID.String(), "reason", reason)
	return failed, nil
}

// Reverse unwinds a completed transfer
func (s *TransferServiceImpl) Reverse(ctx context.Context, transferID uuid.UUID, reason string) (*transfer.Transfer, error) {
	if reason == "" {
		reason = string(shared.FailureReasonCancelled)
	}
	return s.settlement.Reverse(ctx, transferID, reason)
}

func (s *TransferServiceImpl) Get(ctx context.Context, transferID uuid.UUID) (*transfer.Transfer, error) {
	return s.transfers.GetByID(ctx, transferID)
}

func (s *TransferServiceImpl) GetByReference(ctx context.Context, reference string) (*transfer.Transfer, error) {
	return s.transfers.GetByReference(ctx, reference)
}

// ListByUser returns one page of the user's transfers and the total count
func (s *TransferServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transfer.Transfer, int64, error) {
	transfers, err := s.transfers.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.transfers.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	return transfers, total, nil
}

// ListEvents returns the transfer's dispatched events from the audit projection
func (s *TransferServiceImpl) ListEvents(ctx context.Context, transferID uuid.UUID, limit, offset int) ([]*transfer.Event, int64, error) {
	if s.auditLog == nil {
		return nil, 0, errors.New("audit log is not configured")
	}

	events, err := s.auditLog.ListByTransfer(ctx, transferID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.auditLog.CountByTransfer(ctx, transferID)
	if err != nil {
		return nil, 0, err
	}

	return events, total, nil
}

func (s *TransferServiceImpl) IssueOTP(ctx context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error) {
	return s.otpIssuer.Issue(ctx, userID, purpose)
}
