package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/platform/persistence"
)

const transferColumns = `id, reference, transfer_type, user_id, source_account_id, destination_account_id, destination_user_id,
		beneficiary_name, beneficiary_account, beneficiary_routing, beneficiary_swift, beneficiary_bank_name,
		beneficiary_bank_address, beneficiary_country, amount, currency, fee, total_debit, status,
		pin_verified_at, imf_verified_at, tax_verified_at, cot_verified_at, otp_verified_at, description,
		completed_at, failed_at, failed_reason, reversed_at, reversal_reason, created_at, updated_at`

// TransferRepository implements the transfer.Repository interface for PostgreSQL
type TransferRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewTransferRepository creates a new PostgreSQL transfer repository
func NewTransferRepository(logger *slog.Logger, db *persistence.PostgresDB) transfer.Repository {
	return &TransferRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *TransferRepository) WithTx(tx pgx.Tx) transfer.Repository {
	return &TransferRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func scanTransfer(row pgx.Row) (*transfer.Transfer, error) {
	var t transfer.Transfer
	var name, acct, routing, swift, bank, bankAddr *string
	var country, description, failedReason, reversalReason *string
	err := row.Scan(
		&t.ID,
		&t.Reference,
		&t.Type,
		&t.UserID,
		&t.SourceAccountID,
		&t.DestinationAccountID,
		&t.DestinationUserID,
		&name,
		&acct,
		&routing,
		&swift,
		&bank,
		&bankAddr,
		&country,
		&t.Amount,
		&t.Currency,
		&t.Fee,
		&t.TotalDebit,
		&t.Status,
		&t.Gates.PIN,
		&t.Gates.IMF,
		&t.Gates.Tax,
		&t.Gates.COT,
		&t.Gates.OTP,
		&description,
		&t.CompletedAt,
		&t.FailedAt,
		&failedReason,
		&t.ReversedAt,
		&reversalReason,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if name != nil || acct != nil {
		t.Beneficiary = &transfer.Beneficiary{
			Name:          deref(name),
			AccountNumber: deref(acct),
			RoutingNumber: deref(routing),
			SwiftCode:     deref(swift),
			BankName:      deref(bank),
			BankAddress:   deref(bankAddr),
			Country:       deref(country),
		}
	}
	t.Description = deref(description)
	t.FailedReason = deref(failedReason)
	t.ReversalReason = deref(reversalReason)

	return &t, nil
}

// Create inserts a new transfer. A reference collision is reported as
// ErrDuplicateReference so the caller can retry with a fresh reference.
func (r *TransferRepository) Create(ctx context.Context, t *transfer.Transfer) error {
	query := `
		INSERT INTO transfers (` + transferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31, $32)
	`

	b := t.Beneficiary
	if b == nil {
		b = &transfer.Beneficiary{}
	}

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.Reference,
		t.Type,
		t.UserID,
		t.SourceAccountID,
		t.DestinationAccountID,
		t.DestinationUserID,
		nullable(b.Name),
		nullable(b.AccountNumber),
		nullable(b.RoutingNumber),
		nullable(b.SwiftCode),
		nullable(b.BankName),
		nullable(b.BankAddress),
		nullable(b.Country),
		t.Amount,
		t.Currency,
		t.Fee,
		t.TotalDebit,
		t.Status,
		t.Gates.PIN,
		t.Gates.IMF,
		t.Gates.Tax,
		t.Gates.COT,
		t.Gates.OTP,
		nullable(t.Description),
		t.CompletedAt,
		t.FailedAt,
		nullable(t.FailedReason),
		t.ReversedAt,
		nullable(t.ReversalReason),
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return transfer.ErrDuplicateReference{Reference: t.Reference}
		}
		r.logger.Error("Failed to create transfer", "reference", t.Reference, "error", err)
		return fmt.Errorf("failed to create transfer: %w", err)
	}

	return nil
}

// GetByID retrieves a transfer by its ID
func (r *TransferRepository) GetByID(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1
	`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrTransferNotFound{TransferID: id}
		}
		r.logger.Error("Failed to get transfer", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}

	return t, nil
}

// GetByReference retrieves a transfer by its human-readable reference
func (r *TransferRepository) GetByReference(ctx context.Context, reference string) (*transfer.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE reference = $1
	`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrTransferNotFound{Reference: reference}
		}
		r.logger.Error("Failed to get transfer by reference", "reference", reference, "error", err)
		return nil, fmt.Errorf("failed to get transfer by reference: %w", err)
	}

	return t, nil
}

// ListByUser returns a page of the user's transfers, newest first
func (r *TransferRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*transfer.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list transfers", "user_id", userID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*transfer.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transfers: %w", err)
	}

	return transfers, nil
}

// CountByUser counts the user's transfers for pagination
func (r *TransferRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM transfers WHERE user_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		r.logger.Error("Failed to count transfers", "user_id", userID.String(), "error", err)
		return 0, fmt.Errorf("failed to count transfers: %w", err)
	}

	return count, nil
}

// LockForUpdate obtains a row lock on the transfer. It must run inside a transaction.
func (r *TransferRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	query := `
		SELECT ` + transferColumns + `
		FROM transfers
		WHERE id = $1
		FOR UPDATE
	`

	t, err := scanTransfer(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transfer.ErrTransferNotFound{TransferID: id}
		}
		r.logger.Error("Failed to lock transfer for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock transfer for update: %w", err)
	}

	return t, nil
}

// Update persists the mutable lifecycle fields of a transfer
func (r *TransferRepository) Update(ctx context.Context, t *transfer.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $1, fee = $2, total_debit = $3,
			pin_verified_at = $4, imf_verified_at = $5, tax_verified_at = $6, cot_verified_at = $7, otp_verified_at = $8,
			completed_at = $9, failed_at = $10, failed_reason = $11, reversed_at = $12, reversal_reason = $13,
			updated_at = $14
		WHERE id = $15
	`

	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = time.Now()
	}

	result, err := r.querier.Exec(ctx, query,
		t.Status,
		t.Fee,
		t.TotalDebit,
		t.Gates.PIN,
		t.Gates.IMF,
		t.Gates.Tax,
		t.Gates.COT,
		t.Gates.OTP,
		t.CompletedAt,
		t.FailedAt,
		nullable(t.FailedReason),
		t.ReversedAt,
		nullable(t.ReversalReason),
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update transfer", "id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	if result.RowsAffected() == 0 {
		return transfer.ErrTransferNotFound{TransferID: t.ID}
	}

	return nil
}
