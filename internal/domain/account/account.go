package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrEmptyOwnerName        = errors.New("owner name cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Account is a customer balance held in this ledger
type Account struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	OwnerName string    `json:"owner_name"`
	Balance   int64     `json:"balance"` // Stored in cents/minor units
	Currency  string    `json:"currency"`
	Active    bool      `json:"active"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAccount opens an active account for a user
func NewAccount(userID uuid.UUID, ownerName string, initialBalance int64, currency string) (*Account, error) {
	if ownerName == "" {
		return nil, ErrEmptyOwnerName
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}
	if initialBalance < 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Account{
		ID:        uuid.New(),
		UserID:    userID,
		OwnerName: ownerName,
		Balance:   initialBalance,
		Currency:  currency,
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsOwnedBy reports whether the account belongs to the user
func (a *Account) IsOwnedBy(userID uuid.UUID) bool {
	return a.UserID == userID
}

// CanDebit checks if the account can cover the given positive total
func (a *Account) CanDebit(amount int64) bool {
	return a.Active && amount > 0 && a.Balance >= amount
}
