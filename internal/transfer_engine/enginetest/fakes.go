// Package enginetest provides in-memory repositories for exercising the
// transfer engine without a database. Each store guards its rows with a
// mutex and applies conditional updates atomically, the way the Postgres
// statements do. Transactions are not isolated: ExecuteTx runs fn directly.
package enginetest

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfer-verification-engine/internal/domain/account"
	"github.com/transfer-verification-engine/internal/domain/ledger"
	"github.com/transfer-verification-engine/internal/domain/outbox"
	"github.com/transfer-verification-engine/internal/domain/shared"
	"github.com/transfer-verification-engine/internal/domain/transfer"
	"github.com/transfer-verification-engine/internal/domain/verification"
)

// TxRunner counts transactions and runs fn without a real transaction.
// With Serial set, transactions run one at a time, standing in for the row
// locks concurrent callers would queue on.
type TxRunner struct {
	Serial bool

	mu    sync.Mutex
	calls atomic.Int32
}

func (r *TxRunner) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	r.calls.Add(1)
	if r.Serial {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	return fn(nil)
}

// Calls returns how many transactions were started
func (r *TxRunner) Calls() int {
	return int(r.calls.Load())
}

// AccountStore is an in-memory account.Repository
type AccountStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]account.Account
}

func NewAccountStore(accounts ...*account.Account) *AccountStore {
	s := &AccountStore{accounts: make(map[uuid.UUID]account.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = *a
	}
	return s
}

func (s *AccountStore) Create(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = *a
	return nil
}

func (s *AccountStore) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &a, nil
}

func (s *AccountStore) ListByUser(_ context.Context, userID uuid.UUID) ([]*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*account.Account
	for _, a := range s.accounts {
		if a.UserID == userID {
			a := a
			out = append(out, &a)
		}
	}
	return out, nil
}

func (s *AccountStore) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return s.GetByID(ctx, id)
}

func (s *AccountStore) Debit(_ context.Context, id uuid.UUID, amount int64) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok || a.Balance < amount {
		return account.ErrInsufficientBalance{AccountID: id}
	}
	a.Balance -= amount
	a.Version++
	s.accounts[id] = a
	return nil
}

func (s *AccountStore) Credit(_ context.Context, id uuid.UUID, amount int64) error {
	if amount <= 0 {
		return account.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}
	a.Balance += amount
	a.Version++
	s.accounts[id] = a
	return nil
}

func (s *AccountStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return account.ErrAccountNotFound{AccountID: id}
	}
	a.Active = active
	s.accounts[id] = a
	return nil
}

func (s *AccountStore) WithTx(pgx.Tx) account.Repository { return s }

// Balance returns the stored balance of the account
func (s *AccountStore) Balance(id uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id].Balance
}

// TransferStore is an in-memory transfer.Repository
type TransferStore struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]transfer.Transfer
	taken     map[string]bool
	Updates   int
}

func NewTransferStore() *TransferStore {
	return &TransferStore{
		transfers: make(map[uuid.UUID]transfer.Transfer),
		taken:     make(map[string]bool),
	}
}

// Reserve marks a reference as already used so Create rejects it
func (s *TransferStore) Reserve(reference string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taken[reference] = true
}

func (s *TransferStore) Create(_ context.Context, t *transfer.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken[t.Reference] {
		return transfer.ErrDuplicateReference{Reference: t.Reference}
	}
	s.taken[t.Reference] = true
	s.transfers[t.ID] = *t
	return nil
}

func (s *TransferStore) GetByID(_ context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.transfers[id]
	if !ok {
		return nil, transfer.ErrTransferNotFound{TransferID: id}
	}
	return &t, nil
}

func (s *TransferStore) GetByReference(_ context.Context, reference string) (*transfer.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.transfers {
		if t.Reference == reference {
			return &t, nil
		}
	}
	return nil, transfer.ErrTransferNotFound{Reference: reference}
}

func (s *TransferStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*transfer.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*transfer.Transfer
	for _, t := range s.transfers {
		if t.UserID == userID {
			t := t
			all = append(all, &t)
		}
	}
	slices.SortFunc(all, func(a, b *transfer.Transfer) int { return b.CreatedAt.Compare(a.CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func (s *TransferStore) CountByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, t := range s.transfers {
		if t.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *TransferStore) LockForUpdate(ctx context.Context, id uuid.UUID) (*transfer.Transfer, error) {
	return s.GetByID(ctx, id)
}

func (s *TransferStore) Update(_ context.Context, t *transfer.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[t.ID]; !ok {
		return transfer.ErrTransferNotFound{TransferID: t.ID}
	}
	s.transfers[t.ID] = *t
	s.Updates++
	return nil
}

func (s *TransferStore) WithTx(pgx.Tx) transfer.Repository { return s }

// LedgerStore is an in-memory ledger.Repository
type LedgerStore struct {
	mu      sync.Mutex
	entries []ledger.Entry
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

func (s *LedgerStore) Create(_ context.Context, e *ledger.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.entries {
		if existing.TransferID == e.TransferID && existing.Kind == e.Kind {
			return ledger.ErrDuplicateEntry{TransferID: e.TransferID, Kind: e.Kind}
		}
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *LedgerStore) GetByTransferID(_ context.Context, transferID uuid.UUID, kind ledger.Kind) (*ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.TransferID == transferID && e.Kind == kind {
			return &e, nil
		}
	}
	return nil, ledger.ErrEntryNotFound{TransferID: transferID, Kind: kind}
}

func (s *LedgerStore) touches(e ledger.Entry, accountID uuid.UUID) bool {
	return e.SourceAccountID == accountID || (e.DestinationAccountID != nil && *e.DestinationAccountID == accountID)
}

func (s *LedgerStore) GetByAccountID(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ledger.Entry
	for _, e := range s.entries {
		if s.touches(e, accountID) {
			e := e
			out = append(out, &e)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	return out[offset:min(offset+limit, len(out))], nil
}

func (s *LedgerStore) CountByAccountID(_ context.Context, accountID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, e := range s.entries {
		if s.touches(e, accountID) {
			n++
		}
	}
	return n, nil
}

func (s *LedgerStore) WithTx(pgx.Tx) ledger.Repository { return s }

// Entries returns every entry posted for the transfer
func (s *LedgerStore) Entries(transferID uuid.UUID) []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Entry
	for _, e := range s.entries {
		if e.TransferID == transferID {
			out = append(out, e)
		}
	}
	return out
}

// OutboxStore is an in-memory outbox.Repository
type OutboxStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []*outbox.Message
}

func NewOutboxStore() *OutboxStore {
	return &OutboxStore{}
}

func (s *OutboxStore) Create(_ context.Context, m *outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m.ID = s.nextID
	stored := *m
	s.messages = append(s.messages, &stored)
	return nil
}

func (s *OutboxStore) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*outbox.Message
	for _, m := range s.messages {
		if m.Status == shared.OutboxStatusPending && len(out) < limit {
			stored := *m
			out = append(out, &stored)
		}
	}
	return out, nil
}

func (s *OutboxStore) find(id int64) *outbox.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *OutboxStore) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(id)
	if m == nil {
		return outbox.ErrMessageNotFound{ID: id}
	}
	m.Status = status
	return nil
}

func (s *OutboxStore) IncrementAttempts(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.find(id)
	if m == nil {
		return outbox.ErrMessageNotFound{ID: id}
	}
	m.IncrementAttempts()
	return nil
}

func (s *OutboxStore) PurgeProcessed(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.messages)
	s.messages = slices.DeleteFunc(s.messages, func(m *outbox.Message) bool {
		return m.Status == shared.OutboxStatusProcessed && m.LastAttemptAt != nil && m.LastAttemptAt.Before(cutoff)
	})
	return int64(before - len(s.messages)), nil
}

func (s *OutboxStore) WithTx(pgx.Tx) outbox.Repository { return s }

// EventTypes lists the recorded event types in insertion order
func (s *OutboxStore) EventTypes() []transfer.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transfer.EventType, 0, len(s.messages))
	for _, m := range s.messages {
		out = append(out, m.EventType)
	}
	return out
}

// Events decodes every recorded event
func (s *OutboxStore) Events() []*transfer.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*transfer.Event, 0, len(s.messages))
	for _, m := range s.messages {
		if e, err := m.GetEvent(); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// PINStore is an in-memory verification.PINRepository
type PINStore struct {
	mu     sync.Mutex
	hashes map[uuid.UUID]string
}

func NewPINStore() *PINStore {
	return &PINStore{hashes: make(map[uuid.UUID]string)}
}

func (s *PINStore) GetHash(_ context.Context, userID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[userID]
	if !ok {
		return "", verification.ErrFactorNotFound{UserID: userID, Factor: "pin"}
	}
	return h, nil
}

func (s *PINStore) SetHash(_ context.Context, userID uuid.UUID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hashes[userID] = hash
	return nil
}

// KnowledgeCodeStore is an in-memory verification.KnowledgeCodeRepository
type KnowledgeCodeStore struct {
	mu    sync.Mutex
	codes []verification.KnowledgeCode
}

func NewKnowledgeCodeStore() *KnowledgeCodeStore {
	return &KnowledgeCodeStore{}
}

func (s *KnowledgeCodeStore) GetActive(_ context.Context, userID uuid.UUID, gate shared.Gate) (*verification.KnowledgeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		c := s.codes[i]
		if c.UserID == userID && c.Type == gate && c.Active {
			return &c, nil
		}
	}
	return nil, verification.ErrFactorNotFound{UserID: userID, Factor: string(gate)}
}

func (s *KnowledgeCodeStore) DeactivateAll(_ context.Context, userID uuid.UUID, gate shared.Gate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.codes {
		if s.codes[i].UserID == userID && s.codes[i].Type == gate {
			s.codes[i].Active = false
		}
	}
	return nil
}

func (s *KnowledgeCodeStore) Create(_ context.Context, code *verification.KnowledgeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = append(s.codes, *code)
	return nil
}

func (s *KnowledgeCodeStore) WithTx(pgx.Tx) verification.KnowledgeCodeRepository { return s }

// ActiveCount counts active codes of the gate for the user
func (s *KnowledgeCodeStore) ActiveCount(userID uuid.UUID, gate shared.Gate) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.codes {
		if c.UserID == userID && c.Type == gate && c.Active {
			n++
		}
	}
	return n
}

// OTPStore is an in-memory verification.OTPRepository
type OTPStore struct {
	mu    sync.Mutex
	codes []*verification.OneTimeCode
}

func NewOTPStore() *OTPStore {
	return &OTPStore{}
}

func (s *OTPStore) Create(_ context.Context, code *verification.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *code
	s.codes = append(s.codes, &stored)
	return nil
}

func (s *OTPStore) InvalidateUnused(_ context.Context, userID uuid.UUID, purpose string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.UserID == userID && c.Purpose == purpose && !c.Used {
			c.Used = true
		}
	}
	return nil
}

func (s *OTPStore) GetLatest(_ context.Context, userID uuid.UUID, purpose string) (*verification.OneTimeCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		c := s.codes[i]
		if c.UserID == userID && c.Purpose == purpose {
			out := *c
			return &out, nil
		}
	}
	return nil, verification.ErrFactorNotFound{UserID: userID, Factor: "otp"}
}

func (s *OTPStore) find(id uuid.UUID) *verification.OneTimeCode {
	for _, c := range s.codes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *OTPStore) RecordFailedAttempt(_ context.Context, id uuid.UUID, maxAttempts int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(id)
	if c == nil || c.Used {
		return 0, shared.ErrAlreadyUsed
	}
	c.Attempts++
	if c.Attempts >= maxAttempts {
		c.Used = true
	}
	return c.Attempts, nil
}

func (s *OTPStore) Consume(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(id)
	if c == nil || c.Used {
		return false, nil
	}
	c.Used = true
	return true, nil
}

func (s *OTPStore) Invalidate(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c := s.find(id); c != nil {
		c.Used = true
	}
	return nil
}

func (s *OTPStore) WithTx(pgx.Tx) verification.OTPRepository { return s }

// Latest returns a copy of the newest code for the user, or nil
func (s *OTPStore) Latest(userID uuid.UUID) *verification.OneTimeCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.codes) - 1; i >= 0; i-- {
		if s.codes[i].UserID == userID {
			out := *s.codes[i]
			return &out
		}
	}
	return nil
}
