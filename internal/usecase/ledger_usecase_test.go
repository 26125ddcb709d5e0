package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexgen/bankledger/internal/domain"
)

func TestLedger_Withdraw_Scenario(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "owner@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "35000.00")

	ok := f.ledgerUC.Withdraw(context.Background(), "NEX172720185", dec("500.0"))

	require.True(t, ok)
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("34500")))

	balances, withdrawals := f.sink.Snapshot()
	require.Len(t, withdrawals, 1)
	assert.Equal(t, domain.WithdrawalEvent{
		UserEmail:     "owner@example.com",
		AccountNumber: "NEX172720185",
		Amount:        "500.00",
		Currency:      "EUR",
	}, withdrawals[0])
	require.Len(t, balances, 1)
	assert.Equal(t, "34500.00", balances[0].NewBalance)
	f.requireConsistent(t)
}

func TestLedger_WithdrawFunds_Rejections(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "owner@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "100.00")

	tests := []struct {
		name    string
		number  string
		amount  string
		wantErr error
	}{
		{"insufficient funds", "NEX172720185", "100.01", domain.ErrInsufficientFunds},
		{"unknown account", "NEX000000001", "1", domain.ErrAccountNotFound},
		{"zero amount", "NEX172720185", "0", domain.ErrInvalidAmount},
		{"negative amount", "NEX172720185", "-5", domain.ErrInvalidAmount},
		{"sub-cent amount", "NEX172720185", "0.001", domain.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledgerUC.WithdrawFunds(context.Background(), tt.number, dec(tt.amount))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, f.ledgerUC.Withdraw(context.Background(), tt.number, dec(tt.amount)))
			assert.True(t, f.balance(t, "NEX172720185").Equal(dec("100")))
		})
	}

	_, withdrawals := f.sink.Snapshot()
	assert.Empty(t, withdrawals)
}

func TestLedger_WithdrawExactBalance(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "owner@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "100.00")

	acc, err := f.ledgerUC.WithdrawFunds(context.Background(), "NEX172720185", dec("100"))
	require.NoError(t, err)
	assert.True(t, acc.Balance.IsZero())
	assert.Equal(t, int64(1), acc.Version)
}

func TestLedger_Deposit(t *testing.T) {
	t.Run("credits and notifies", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "u1", "owner@example.com")
		f.account(t, "u1", "NEX172720185", "EUR", "0")

		require.True(t, f.ledgerUC.Deposit(context.Background(), "NEX172720185", dec("10.10")))
		require.True(t, f.ledgerUC.Deposit(context.Background(), "NEX172720185", dec("0.20")))

		assert.True(t, f.balance(t, "NEX172720185").Equal(dec("10.30")))
		balances, withdrawals := f.sink.Snapshot()
		assert.Len(t, balances, 2)
		assert.Empty(t, withdrawals)
		f.requireConsistent(t)
	})

	t.Run("account number is normalized like lookups", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "u1", "owner@example.com")
		f.account(t, "u1", "NEX172720185", "EUR", "100")

		_, err := f.accountUC.GetAccount(context.Background(), " nex172720185 ")
		require.NoError(t, err)

		require.True(t, f.ledgerUC.Deposit(context.Background(), " nex172720185 ", dec("5")))
		require.True(t, f.ledgerUC.Withdraw(context.Background(), "nex172720185", dec("20")))
		assert.True(t, f.balance(t, "NEX172720185").Equal(dec("85")))
	})

	t.Run("unknown account returns false", func(t *testing.T) {
		f := newFixture(t)
		assert.False(t, f.ledgerUC.Deposit(context.Background(), "NEX999999999", dec("1")))

		_, err := f.ledgerUC.DepositFunds(context.Background(), "NEX999999999", dec("1"))
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
		assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		f := newFixture(t)
		f.user(t, "u1", "owner@example.com")
		f.account(t, "u1", "NEX172720185", "EUR", "5")

		assert.False(t, f.ledgerUC.Deposit(context.Background(), "NEX172720185", dec("0")))
		assert.True(t, f.balance(t, "NEX172720185").Equal(dec("5")))
	})
}

func TestLedger_PersistenceFailureLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "owner@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "50")

	broken := &failingAccounts{AccountRepository: f.accounts, failOn: 1, err: errors.New("connection reset")}
	f.build(broken, f.txManager)

	_, err := f.ledgerUC.WithdrawFunds(context.Background(), "NEX172720185", dec("20"))

	require.ErrorIs(t, err, domain.ErrPersistenceFailure)
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("50")))
	f.requireConsistent(t)
	balances, _ := f.sink.Snapshot()
	assert.Empty(t, balances)
}

func TestLedger_ConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "owner@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "1000")

	const workers = 50
	amount := dec("35")

	var wg sync.WaitGroup
	var succeeded atomic.Int64
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if f.ledgerUC.Withdraw(context.Background(), "NEX172720185", amount) {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	// floor(1000/35) = 28
	assert.Equal(t, int64(28), succeeded.Load())
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("20")))
	f.requireConsistent(t)
}

func TestLedger_ConcurrentDepositsAreNotLost(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "owner@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "0")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.ledgerUC.Deposit(context.Background(), "NEX172720185", dec("2.50"))
		}()
	}
	wg.Wait()

	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("100")))
}

func TestLedger_UsesRetrier(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "owner@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "10")

	f.ledgerUC.Deposit(context.Background(), "NEX172720185", dec("1"))
	f.ledgerUC.Withdraw(context.Background(), "NEX172720185", dec("1"))

	assert.Equal(t, int64(2), f.retrier.Calls.Load())
}
