package shared

import (
	"errors"
	"fmt"
	"time"
)

// Verification and settlement errors surfaced unchanged to callers
var (
	ErrInvalidState           = errors.New("transfer is not in a state that accepts this operation")
	ErrOutOfOrder             = errors.New("gate submitted before its prerequisites")
	ErrNotConfigured          = errors.New("verification factor is not configured for this user")
	ErrMismatch               = errors.New("verification value does not match")
	ErrExpired                = errors.New("one-time code has expired")
	ErrAlreadyUsed            = errors.New("one-time code has already been used")
	ErrCodeNotFound           = errors.New("no one-time code issued")
	ErrTooManyAttempts        = errors.New("too many attempts")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAccountInactive        = errors.New("account is inactive")
	ErrVerificationIncomplete = errors.New("verification chain is not complete")
)

// Request validation errors raised at initiation
var (
	ErrInvalidTransferType = errors.New("invalid transfer type")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter code")
	ErrCurrencyMismatch    = errors.New("currency does not match account currency")
	ErrInvalidDestination  = errors.New("invalid transfer destination")
	ErrAccountNotOwned     = errors.New("account does not belong to user")
	ErrInvalidGate         = errors.New("invalid gate")
)

// TooManyAttemptsError carries the cool-down left before the key may be retried
type TooManyAttemptsError struct {
	Key        string
	RetryAfter time.Duration
}

func (e TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %s", e.RetryAfter.Round(time.Second))
}

// Is lets errors.Is match ErrTooManyAttempts
func (e TooManyAttemptsError) Is(target error) bool {
	return target == ErrTooManyAttempts
}
