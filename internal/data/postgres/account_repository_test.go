package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/transfer-verification-engine/internal/domain/account"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountRowColumns = []string{"id", "user_id", "owner_name", "balance", "currency", "active", "version", "created_at", "updated_at"}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	acc, err := account.NewAccount(uuid.New(), "Test User", 1000, "USD")
	require.NoError(t, err)

	query := regexp.QuoteMeta(`INSERT INTO accounts (id, user_id, owner_name, balance, currency, active, version, created_at, updated_at)`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.UserID, acc.OwnerName, acc.Balance, acc.Currency, acc.Active, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		assert.NoError(t, repo.Create(ctx, acc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.UserID, acc.OwnerName, acc.Balance, acc.Currency, acc.Active, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.ErrorContains(t, err, "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	now := time.Now()
	expected := &account.Account{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		OwnerName: "Test User",
		Balance:   1000,
		Currency:  "USD",
		Active:    true,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `SELECT id, user_id, owner_name, balance, currency, active, version, created_at, updated_at FROM accounts WHERE id = \$1`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountRowColumns).
			AddRow(expected.ID, expected.UserID, expected.OwnerName, expected.Balance, expected.Currency, expected.Active, expected.Version, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(expected.ID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, expected.ID)
		assert.Nil(t, acc)
		var notFound account.ErrAccountNotFound
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, expected.ID, notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_ListByUser(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	userID := uuid.New()
	now := time.Now()

	rows := pgxmock.NewRows(accountRowColumns).
		AddRow(uuid.New(), userID, "Checking", int64(5000), "USD", true, 1, now, now).
		AddRow(uuid.New(), userID, "Savings", int64(9000), "USD", false, 3, now, now)
	mock.ExpectQuery(`FROM accounts WHERE user_id = \$1 ORDER BY created_at ASC`).WithArgs(userID).WillReturnRows(rows)

	accounts, err := repo.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "Checking", accounts[0].OwnerName)
	assert.False(t, accounts[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	now := time.Now()

	query := `FROM accounts WHERE id = \$1 FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountRowColumns).AddRow(id, uuid.New(), "Locked", int64(100), "EUR", true, 2, now, now)
		mock.ExpectQuery(query).WithArgs(id).WillReturnRows(rows)

		acc, err := repo.LockForUpdate(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(100), acc.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForUpdate(ctx, id)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: id})
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Debit(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()

	query := regexp.QuoteMeta(`SET balance = balance - $1, version = version + 1, updated_at = NOW() WHERE id = $2 AND balance >= $1`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(5000), id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, repo.Debit(ctx, id, 5000))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs(int64(5001), id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.Debit(ctx, id, 5001)
		var insufficient account.ErrInsufficientBalance
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, id, insufficient.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-positive amount never reaches the database", func(t *testing.T) {
		assert.ErrorIs(t, repo.Debit(ctx, id, 0), account.ErrInvalidAmount)
		assert.ErrorIs(t, repo.Debit(ctx, id, -5000), account.ErrInvalidAmount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_Credit(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()
	query := regexp.QuoteMeta(`SET balance = balance + $1`)

	mock.ExpectExec(query).WithArgs(int64(700), id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	assert.NoError(t, repo.Credit(ctx, id, 700))

	mock.ExpectExec(query).WithArgs(int64(700), id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	assert.ErrorIs(t, repo.Credit(ctx, id, 700), account.ErrAccountNotFound{})

	assert.ErrorIs(t, repo.Credit(ctx, id, -700), account.ErrInvalidAmount)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_SetActive(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &AccountRepository{querier: mock, logger: newTestLogger()}
	id := uuid.New()

	mock.ExpectExec(regexp.QuoteMeta(`SET active = $1`)).WithArgs(false, id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	assert.NoError(t, repo.SetActive(ctx, id, false))
	assert.NoError(t, mock.ExpectationsWereMet())
}
