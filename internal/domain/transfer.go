package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferKind distinguishes same-currency transfers from conversions.
type TransferKind string

const (
	TransferKindTransfer   TransferKind = "transfer"
	TransferKindConversion TransferKind = "conversion"
)

// Transfer records a money movement between two accounts. For a plain
// transfer CreditAmount equals Amount and Rate is one.
type Transfer struct {
	CreatedAt      time.Time
	ID             string
	Kind           TransferKind
	FromAccountID  string
	ToAccountID    string
	FromIBAN       string
	ToIBAN         string
	Amount         decimal.Decimal
	Currency       string
	CreditAmount   decimal.Decimal
	CreditCurrency string
	Rate           decimal.Decimal
}

// Validate validates transfer request.
func (t *Transfer) Validate() error {
	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}

	if t.Amount.LessThanOrEqual(decimal.Zero) || t.CreditAmount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	return nil
}
