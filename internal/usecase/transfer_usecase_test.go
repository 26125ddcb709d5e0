package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

const (
	ibanA = "DE54500202220172720185"
	ibanB = "DE52500202220657984061"
)

func transferFixture(t *testing.T, balanceA, balanceB string) *fixture {
	t.Helper()
	f := newFixture(t)
	f.user(t, "u1", "a@example.com")
	f.user(t, "u2", "b@example.com")
	a := f.account(t, "u1", "NEX172720185", "EUR", balanceA)
	b := f.account(t, "u2", "NEX657984061", "EUR", balanceB)
	require.Equal(t, ibanA, a.IBAN)
	require.Equal(t, ibanB, b.IBAN)
	return f
}

func TestTransfer_Success(t *testing.T) {
	f := transferFixture(t, "35000.0", "100")

	res, err := f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: ibanA,
		ToIBAN:   ibanB,
		Amount:   dec("1000.0"),
		Currency: "EUR",
	})

	require.NoError(t, err)
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("34000")))
	assert.True(t, f.balance(t, "NEX657984061").Equal(dec("1100")))
	assert.True(t, res.From.Balance.Equal(dec("34000")))
	assert.True(t, res.To.Balance.Equal(dec("1100")))
	assert.Equal(t, domain.TransferKindTransfer, res.Transfer.Kind)

	stored, err := f.transfers.GetByID(context.Background(), res.Transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, ibanA, stored.FromIBAN)

	entries, err := f.entries.GetByReference(context.Background(), res.Transfer.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].Amount.Add(entries[1].Amount).IsZero())

	balances, _ := f.sink.Snapshot()
	assert.Len(t, balances, 2)
	f.requireConsistent(t)
}

func TestTransfer_Reverse(t *testing.T) {
	f := transferFixture(t, "10", "10")

	_, err := f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: ibanB, ToIBAN: ibanA, Amount: dec("10"), Currency: "EUR",
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t, "NEX657984061").IsZero())
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("20")))
}

func TestTransfer_PreconditionsLeaveBalancesUnchanged(t *testing.T) {
	tests := []struct {
		name     string
		input    usecase.TransferInput
		wantErr  error
		wantKind domain.ErrorKind
	}{
		{
			name:     "insufficient funds",
			input:    usecase.TransferInput{FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("40000.0"), Currency: "EUR"},
			wantErr:  domain.ErrInsufficientFunds,
			wantKind: domain.KindInsufficientFunds,
		},
		{
			name:     "currency mismatch",
			input:    usecase.TransferInput{FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("1000.0"), Currency: "USD"},
			wantErr:  domain.ErrCurrencyMismatch,
			wantKind: domain.KindCurrencyMismatch,
		},
		{
			name:     "zero amount",
			input:    usecase.TransferInput{FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("0"), Currency: "EUR"},
			wantErr:  domain.ErrInvalidAmount,
			wantKind: domain.KindInvalidArgument,
		},
		{
			name:     "negative amount",
			input:    usecase.TransferInput{FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("-1"), Currency: "EUR"},
			wantErr:  domain.ErrInvalidAmount,
			wantKind: domain.KindInvalidArgument,
		},
		{
			name:     "malformed currency",
			input:    usecase.TransferInput{FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("1"), Currency: "eur"},
			wantErr:  domain.ErrInvalidCurrency,
			wantKind: domain.KindInvalidArgument,
		},
		{
			name:     "malformed IBAN",
			input:    usecase.TransferInput{FromIBAN: "DE00500202220172720185", ToIBAN: ibanB, Amount: dec("1"), Currency: "EUR"},
			wantErr:  domain.ErrInvalidIBAN,
			wantKind: domain.KindInvalidArgument,
		},
		{
			name:     "unknown IBAN",
			input:    usecase.TransferInput{FromIBAN: ibanA, ToIBAN: "DE08500202220000000000", Amount: dec("1"), Currency: "EUR"},
			wantErr:  domain.ErrAccountNotFound,
			wantKind: domain.KindNotFound,
		},
		{
			name:     "same account",
			input:    usecase.TransferInput{FromIBAN: ibanA, ToIBAN: ibanA, Amount: dec("1"), Currency: "EUR"},
			wantErr:  domain.ErrSameAccount,
			wantKind: domain.KindInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := transferFixture(t, "35000.0", "500")

			_, err := f.ledgerUC.Transfer(context.Background(), tt.input)

			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantKind, domain.KindOf(err))
			assert.True(t, f.balance(t, "NEX172720185").Equal(dec("35000")))
			assert.True(t, f.balance(t, "NEX657984061").Equal(dec("500")))
			balances, _ := f.sink.Snapshot()
			assert.Empty(t, balances)
		})
	}
}

func TestTransfer_ValidationOrder(t *testing.T) {
	f := transferFixture(t, "1", "1")

	// Amount is checked before currency, currency before IBANs.
	_, err := f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: "bogus", ToIBAN: "bogus", Amount: dec("0"), Currency: "x",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: "bogus", ToIBAN: "bogus", Amount: dec("1"), Currency: "x",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	// Currency mismatch wins over insufficient funds.
	_, err = f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("5"), Currency: "USD",
	})
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

func TestTransfer_DestinationCurrencyMismatch(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", "a@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "100")
	f.account(t, "u1", "NEX657984061", "USD", "100")

	_, err := f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("1"), Currency: "EUR",
	})
	assert.ErrorIs(t, err, domain.ErrCurrencyMismatch)
}

func TestTransfer_FailureAfterDebitRollsBack(t *testing.T) {
	f := transferFixture(t, "100", "100")

	// first UpdateBalance (debit) succeeds, the credit fails
	broken := &failingAccounts{AccountRepository: f.accounts, failOn: 2, err: errors.New("disk full")}
	f.build(broken, f.txManager)

	_, err := f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("60"), Currency: "EUR",
	})

	require.ErrorIs(t, err, domain.ErrPersistenceFailure)
	assert.Equal(t, domain.KindPersistenceFailure, domain.KindOf(err))
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("100")))
	assert.True(t, f.balance(t, "NEX657984061").Equal(dec("100")))
	f.requireConsistent(t)
}

func TestTransfer_ConcurrentOppositeDirections(t *testing.T) {
	f := transferFixture(t, "1000", "1000")

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
				FromIBAN: ibanA, ToIBAN: ibanB, Amount: dec("7"), Currency: "EUR",
			})
		}()
		go func() {
			defer wg.Done()
			_, _ = f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
				FromIBAN: ibanB, ToIBAN: ibanA, Amount: dec("3"), Currency: "EUR",
			})
		}()
	}
	wg.Wait()

	total := f.balance(t, "NEX172720185").Add(f.balance(t, "NEX657984061"))
	assert.True(t, total.Equal(dec("2000")), "total not conserved: %s", total)
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("840")))
	f.requireConsistent(t)
}

func TestTransfer_AcceptsSpacedIBANs(t *testing.T) {
	f := transferFixture(t, "10", "0")

	_, err := f.ledgerUC.Transfer(context.Background(), usecase.TransferInput{
		FromIBAN: domain.FormatIBAN(ibanA), ToIBAN: ibanB, Amount: dec("10"), Currency: "EUR",
	})
	require.NoError(t, err)
	assert.True(t, f.balance(t, "NEX657984061").Equal(dec("10")))
}
