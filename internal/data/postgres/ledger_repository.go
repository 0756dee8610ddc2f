package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/platform/persistence"
)

const ledgerColumns = `id, reference, transfer_id, kind, transfer_type, source_account_id, destination_account_id,
		amount, fee, currency, status, created_at`

// LedgerRepository implements ledger.Repository for PostgreSQL
type LedgerRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewLedgerRepository creates a new PostgreSQL ledger repository
func NewLedgerRepository(logger *slog.Logger, db *persistence.PostgresDB) ledger.Repository {
	return &LedgerRepository{
		querier: db.Querier(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *LedgerRepository) WithTx(tx pgx.Tx) ledger.Repository {
	return &LedgerRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func scanEntry(row pgx.Row) (*ledger.Entry, error) {
	var e ledger.Entry
	err := row.Scan(
		&e.ID,
		&e.Reference,
		&e.TransferID,
		&e.Kind,
		&e.TransferType,
		&e.SourceAccountID,
		&e.DestinationAccountID,
		&e.Amount,
		&e.Fee,
		&e.Currency,
		&e.Status,
		&e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts an entry; the (transfer_id, kind) constraint turns a second
// settlement of the same transfer into ErrDuplicateEntry
func (r *LedgerRepository) Create(ctx context.Context, entry *ledger.Entry) error {
	query := `
		INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		entry.ID,
		entry.Reference,
		entry.TransferID,
		entry.Kind,
		entry.TransferType,
		entry.SourceAccountID,
		entry.DestinationAccountID,
		entry.Amount,
		entry.Fee,
		entry.Currency,
		entry.Status,
		entry.CreatedAt,
	)
	if err != nil {
		if persistence.IsUniqueViolation(err) {
			return ledger.ErrDuplicateEntry{TransferID: entry.TransferID, Kind: entry.Kind}
		}
		r.logger.Error("Failed to create ledger entry", "transfer_id", entry.TransferID.String(), "error", err)
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	return nil
}

// GetByTransferID returns the entry of the given kind for a transfer
func (r *LedgerRepository) GetByTransferID(ctx context.Context, transferID uuid.UUID, kind ledger.Kind) (*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE transfer_id = $1 AND kind = $2
	`

	entry, err := scanEntry(r.querier.QueryRow(ctx, query, transferID, kind))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound{TransferID: transferID, Kind: kind}
		}
		r.logger.Error("Failed to get ledger entry", "transfer_id", transferID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}

	return entry, nil
}

// GetByAccountID returns entries touching the account on either side, newest first
func (r *LedgerRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM ledger_entries
		WHERE source_account_id = $1 OR destination_account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, accountID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to get ledger entries", "account_id", accountID.String(), "error", err)
		return nil, fmt.Errorf("failed to get ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// CountByAccountID counts entries touching the account
func (r *LedgerRepository) CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM ledger_entries WHERE source_account_id = $1 OR destination_account_id = $1`

	var count int64
	if err := r.querier.QueryRow(ctx, query, accountID).Scan(&count); err != nil {
		r.logger.Error("Failed to count ledger entries", "account_id", accountID.String(), "error", err)
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}

	return count, nil
}
