package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound        = errors.New("account not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrInvalidAccountNumber   = errors.New("invalid account number")
	ErrAccountNumberExhausted = errors.New("could not allocate a unique account number")

	// IBAN errors
	ErrInvalidIBAN = errors.New("invalid IBAN")

	// Transfer errors
	ErrSameAccount      = errors.New("cannot transfer to same account")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrTransferNotFound = errors.New("transfer not found")

	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Storage errors
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrPersistenceFailure = errors.New("persistence failure")

	// Rate errors
	ErrRateUnavailable = errors.New("exchange rate unavailable")
)

// ErrorKind is the coarse classification callers branch on.
type ErrorKind string

const (
	KindUnknown            ErrorKind = "unknown"
	KindInvalidArgument    ErrorKind = "invalid_argument"
	KindNotFound           ErrorKind = "not_found"
	KindInsufficientFunds  ErrorKind = "insufficient_funds"
	KindCurrencyMismatch   ErrorKind = "currency_mismatch"
	KindDuplicateKey       ErrorKind = "duplicate_key"
	KindPersistenceFailure ErrorKind = "persistence_failure"
	KindUnavailable        ErrorKind = "unavailable"
)

// Checked in order; the first match wins, so more specific kinds come first.
var kindTable = []struct {
	kind ErrorKind
	errs []error
}{
	{KindNotFound, []error{ErrAccountNotFound, ErrUserNotFound, ErrTransferNotFound}},
	{KindInsufficientFunds, []error{ErrInsufficientFunds}},
	{KindCurrencyMismatch, []error{ErrCurrencyMismatch}},
	{KindDuplicateKey, []error{ErrDuplicateKey, ErrAccountNumberExhausted}},
	{KindInvalidArgument, []error{
		ErrInvalidAmount, ErrInvalidCurrency, ErrInvalidAccountNumber, ErrInvalidIBAN,
		ErrSameAccount, ErrInvalidEmail, ErrInvalidName, ErrAmountTooLarge, ErrAmountTooSmall,
		ErrInvalidIDFormat,
	}},
	{KindUnavailable, []error{ErrRateUnavailable}},
	{KindPersistenceFailure, []error{ErrPersistenceFailure}},
}

// KindOf classifies err by the sentinel it wraps.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, row := range kindTable {
		for _, target := range row.errs {
			if errors.Is(err, target) {
				return row.kind
			}
		}
	}
	return KindUnknown
}
