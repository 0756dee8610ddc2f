package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository persists postings. Entries are immutable once written and a
// transfer has at most one entry per Kind.
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByTransferID(ctx context.Context, transferID uuid.UUID, kind Kind) (*Entry, error)
	// GetByAccountID pages through postings that touch the account, newest first
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)
	WithTx(tx pgx.Tx) Repository
}

// entryKey identifies a posting slot. Zero fields act as wildcards when the
// key is used as an errors.Is target.
type entryKey struct {
	TransferID uuid.UUID
	Kind       Kind
}

func (k entryKey) matches(target entryKey) bool {
	if target.TransferID != uuid.Nil && target.TransferID != k.TransferID {
		return false
	}
	return target.Kind == "" || target.Kind == k.Kind
}

// ErrEntryNotFound means the transfer has no posting of that kind yet
type ErrEntryNotFound struct {
	TransferID uuid.UUID
	Kind       Kind
}

func (e ErrEntryNotFound) Error() string {
	return fmt.Sprintf("no %s ledger entry for transfer %s", kindOrAny(e.Kind), e.TransferID)
}

func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	return ok && entryKey(e).matches(entryKey(t))
}

// ErrDuplicateEntry means the slot is taken: the transfer was already settled
// or already reversed
type ErrDuplicateEntry struct {
	TransferID uuid.UUID
	Kind       Kind
}

func (e ErrDuplicateEntry) Error() string {
	return fmt.Sprintf("transfer %s already has a %s ledger entry", e.TransferID, kindOrAny(e.Kind))
}

func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	return ok && entryKey(e).matches(entryKey(t))
}

func kindOrAny(k Kind) string {
	if k == "" {
		return "matching"
	}
	return string(k)
}
