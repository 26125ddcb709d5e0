package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccount_ValidateDebit(t *testing.T) {
	tests := []struct {
		name        string
		balance     decimal.Decimal
		debitAmount decimal.Decimal
		expectError bool
	}{
		{
			name:        "debit more than balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(150),
			expectError: true,
		},
		{
			name:        "debit exact balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(100),
			expectError: false,
		},
		{
			name:        "debit less than balance",
			balance:     decimal.NewFromInt(100),
			debitAmount: decimal.NewFromInt(50),
			expectError: false,
		},
		{
			name:        "zero balance",
			balance:     decimal.Zero,
			debitAmount: decimal.RequireFromString("0.01"),
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := &Account{Balance: tt.balance}

			err := acc.ValidateDebit(tt.debitAmount)

			if tt.expectError && !errors.Is(err, ErrInsufficientFunds) {
				t.Errorf("expected ErrInsufficientFunds, got %v", err)
			}

			if !tt.expectError && err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestAccount_ApplyDebitCredit(t *testing.T) {
	acc := &Account{Balance: decimal.RequireFromString("100.10")}

	if got := acc.ApplyDebit(decimal.RequireFromString("0.10")); !got.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100, got %s", got)
	}
	if got := acc.ApplyCredit(decimal.RequireFromString("0.90")); !got.Equal(decimal.NewFromInt(101)) {
		t.Errorf("expected 101, got %s", got)
	}
	if !acc.Balance.Equal(decimal.RequireFromString("100.10")) {
		t.Errorf("apply must not mutate the account, got %s", acc.Balance)
	}
}

func TestAccount_Clone(t *testing.T) {
	acc := &Account{ID: "a", Balance: decimal.NewFromInt(5)}
	c := acc.Clone()
	c.Balance = decimal.NewFromInt(7)

	if !acc.Balance.Equal(decimal.NewFromInt(5)) {
		t.Errorf("clone shares state with original")
	}
}

func TestNewEntry(t *testing.T) {
	acc := &Account{ID: "acc", Balance: decimal.NewFromInt(50), Version: 3}
	e := NewEntry("e1", "ref", EntryKindWithdrawal, acc, decimal.NewFromInt(-20), acc.CreatedAt)

	if !e.AccountPreviousBalance.Equal(decimal.NewFromInt(50)) || !e.AccountCurrentBalance.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected balances: %s -> %s", e.AccountPreviousBalance, e.AccountCurrentBalance)
	}
	if e.AccountVersion != 4 {
		t.Errorf("expected version 4, got %d", e.AccountVersion)
	}
}

func TestNewBalanceChangedEvent(t *testing.T) {
	acc := &Account{ID: "acc", AccountNumber: "NEX1", Balance: decimal.NewFromInt(5), Currency: "EUR"}
	ev := NewBalanceChangedEvent(acc)
	if ev.NewBalance != "5.00" || ev.Currency != "EUR" || ev.AccountNumber != "NEX1" {
		t.Errorf("unexpected event: %+v", ev)
	}
}
