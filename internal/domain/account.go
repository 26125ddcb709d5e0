package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a customer account identified by its account number and IBAN.
type Account struct {
	ID            string
	AccountNumber string
	IBAN          string
	UserID        string
	Currency      string
	Balance       decimal.Decimal
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateDebit checks if account can be debited by amount.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}

// Clone returns a copy that shares no state with a.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
