package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Account, error)

	// LockForUpdate acquires a row lock; callers must hold a transaction
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)

	// Debit subtracts amount only while the balance covers it
	Debit(ctx context.Context, id uuid.UUID, amount int64) error
	Credit(ctx context.Context, id uuid.UUID, amount int64) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	WithTx(tx pgx.Tx) Repository
}

// ErrInsufficientBalance indicates a conditional debit matched no row
type ErrInsufficientBalance struct {
	AccountID uuid.UUID
}

func (e ErrInsufficientBalance) Error() string {
	return "insufficient balance on account: " + e.AccountID.String()
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is implements the errors.Is interface for ErrAccountNotFound
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}
