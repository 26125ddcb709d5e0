package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nexgen/bankledger/internal/adapter/repository/memory"
	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
	"github.com/nexgen/bankledger/internal/usecase/mocks"
)

// fixture wires the use cases over the in-memory store.
type fixture struct {
	store     *memory.Store
	txManager usecase.TransactionManager
	accounts  *memory.AccountRepository
	users     *memory.UserRepository
	transfers *memory.TransferRepository
	entries   *memory.EntryRepository
	ledgerRep *memory.LedgerRepository
	idGen     *mocks.MockIDGenerator
	sink      *mocks.RecordingSink
	retrier   *mocks.CountingRetrier

	accountUC *usecase.AccountUseCase
	ledgerUC  *usecase.LedgerUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	f := &fixture{
		store:     s,
		txManager: memory.NewTxManager(s),
		accounts:  memory.NewAccountRepository(s),
		users:     memory.NewUserRepository(s),
		transfers: memory.NewTransferRepository(s),
		entries:   memory.NewEntryRepository(s),
		ledgerRep: memory.NewLedgerRepository(s),
		idGen:     &mocks.MockIDGenerator{},
		sink:      &mocks.RecordingSink{},
		retrier:   &mocks.CountingRetrier{},
	}
	f.build(f.accounts, f.txManager)
	return f
}

// build (re)creates the use cases, letting tests swap in failing collaborators.
func (f *fixture) build(accounts usecase.AccountRepository, txManager usecase.TransactionManager) {
	f.accountUC = usecase.NewAccountUseCase(
		txManager, accounts, f.users, f.entries, f.idGen,
		usecase.NewRandomAccountNumbers(""), nil, zerolog.Nop(), usecase.AccountOptions{},
	)
	f.ledgerUC = usecase.NewLedgerUseCase(
		txManager, accounts, f.users, f.transfers, f.entries, f.idGen,
		f.retrier, f.sink, nil, zerolog.Nop(),
	)
}

func (f *fixture) user(t *testing.T, id, email string) *domain.User {
	t.Helper()
	u := &domain.User{ID: id, Email: email, Name: id}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) account(t *testing.T, userID, number, currency string, balance string) *domain.Account {
	t.Helper()
	acc, err := f.accountUC.CreateAccount(context.Background(), usecase.CreateAccountInput{
		UserID:         userID,
		AccountNumber:  number,
		InitialBalance: decimal.RequireFromString(balance),
		Currency:       currency,
	})
	require.NoError(t, err)
	return acc
}

func (f *fixture) balance(t *testing.T, number string) decimal.Decimal {
	t.Helper()
	acc, err := f.accounts.GetByAccountNumber(context.Background(), number)
	require.NoError(t, err)
	return acc.Balance
}

func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	balances, entries, err := f.ledgerRep.CheckConsistency(context.Background())
	require.NoError(t, err)
	require.True(t, balances.Equal(entries), "balances %s != entries %s", balances, entries)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// failingAccounts wraps an AccountRepository and fails UpdateBalance on the
// nth call.
type failingAccounts struct {
	usecase.AccountRepository
	failOn int
	calls  int
	err    error
}

func (f *failingAccounts) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, version int64, at time.Time) error {
	f.calls++
	if f.calls == f.failOn {
		return f.err
	}
	return f.AccountRepository.UpdateBalance(ctx, tx, id, balance, version, at)
}
