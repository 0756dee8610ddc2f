package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transfer persistence operations
type Repository interface {
	Create(ctx context.Context, t *Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)
	GetByReference(ctx context.Context, reference string) (*Transfer, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Transfer, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// LockForUpdate acquires a row lock; callers must hold a transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Transfer, error)

	// Update persists status, gate timestamps and settlement fields
	Update(ctx context.Context, t *Transfer) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransferNotFound indicates a missing transfer
type ErrTransferNotFound struct {
	TransferID uuid.UUID
	Reference  string
}

func (e ErrTransferNotFound) Error() string {
	if e.Reference != "" {
		return "transfer not found: " + e.Reference
	}
	return "transfer not found: " + e.TransferID.String()
}

// Is matches any ErrTransferNotFound when the target carries no identifiers
func (e ErrTransferNotFound) Is(target error) bool {
	t, ok := target.(ErrTransferNotFound)
	if !ok {
		return false
	}
	if t.TransferID == uuid.Nil && t.Reference == "" {
		return true
	}
	return e.TransferID == t.TransferID && e.Reference == t.Reference
}

// ErrDuplicateReference indicates a reference collision on insert
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "duplicate transfer reference: " + e.Reference
}

// Is matches any ErrDuplicateReference when the target reference is empty
func (e ErrDuplicateReference) Is(target error) bool {
	t, ok := target.(ErrDuplicateReference)
	if !ok {
		return false
	}
	return t.Reference == "" || t.Reference == e.Reference
}
