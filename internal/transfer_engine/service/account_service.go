package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
)

type AccountServiceImpl struct {
	accounts account.Repository
	ledgers  ledger.Repository
}

func NewAccountService(accounts account.Repository, ledgers ledger.Repository) AccountService {
	return &AccountServiceImpl{
		accounts: accounts,
		ledgers:  ledgers,
	}
}

// GetAccount returns the account if it belongs to the user. Someone else's
// account is reported as not found.
func (s *AccountServiceImpl) GetAccount(ctx context.Context, userID, accountID uuid.UUID) (*account.Account, error) {
	acc, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !acc.IsOwnedBy(userID) {
		return nil, account.ErrAccountNotFound{AccountID: accountID}
	}
	return acc, nil
}

// ListLedger returns a page of postings touching the user's account
func (s *AccountServiceImpl) ListLedger(ctx context.Context, userID, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, int64, error) {
	if _, err := s.GetAccount(ctx, userID, accountID); err != nil {
		return nil, 0, err
	}

	entries, err := s.ledgers.GetByAccountID(ctx, accountID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.ledgers.CountByAccountID(ctx, accountID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
