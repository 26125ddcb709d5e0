package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind names the operation that produced an entry.
type EntryKind string

const (
	EntryKindOpening          EntryKind = "opening"
	EntryKindDeposit          EntryKind = "deposit"
	EntryKindWithdrawal       EntryKind = "withdrawal"
	EntryKindTransferDebit    EntryKind = "transfer_debit"
	EntryKindTransferCredit   EntryKind = "transfer_credit"
	EntryKindConversionDebit  EntryKind = "conversion_debit"
	EntryKindConversionCredit EntryKind = "conversion_credit"
)

// Entry is one signed balance movement on one account. Debits are negative.
type Entry struct {
	CreatedAt              time.Time
	ID                     string
	AccountID              string
	ReferenceID            string
	Kind                   EntryKind
	Amount                 decimal.Decimal
	AccountPreviousBalance decimal.Decimal
	AccountCurrentBalance  decimal.Decimal
	AccountVersion         int64
}

// NewEntry builds the entry for moving account from its current balance by amount.
// It does not touch account.
func NewEntry(id, referenceID string, kind EntryKind, account *Account, amount decimal.Decimal, at time.Time) *Entry {
	return &Entry{
		ID:                     id,
		AccountID:              account.ID,
		ReferenceID:            referenceID,
		Kind:                   kind,
		Amount:                 amount,
		AccountPreviousBalance: account.Balance,
		AccountCurrentBalance:  account.Balance.Add(amount),
		AccountVersion:         account.Version + 1,
		CreatedAt:              at,
	}
}
