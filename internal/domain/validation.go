package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidName     = errors.New("invalid name")
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall  = errors.New("amount below minimum allowed")
	ErrInvalidEmail    = errors.New("invalid email format")
	ErrInvalidIDFormat = errors.New("invalid ID format")
)

// Validation constants
const (
	MaxNameLength          = 255
	MaxTransferAmount      = "1000000000000" // 1 trillion
	MinTransferAmount      = "0.01"
	AmountScale            = 2
	MinAccountNumberLength = 10
	MaxAccountNumberLength = 12
)

var (
	currencyRegex      = regexp.MustCompile(`^[A-Z]{3}$`)
	emailRegex         = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	accountNumberRegex = regexp.MustCompile(`^[A-Z0-9]+$`)
)

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(currency string) string {
	return strings.ToUpper(strings.TrimSpace(currency))
}

// ValidateCurrency checks the code is three upper-case letters. Callers
// normalize first when they accept lower-case input.
func ValidateCurrency(currency string) error {
	if !currencyRegex.MatchString(currency) {
		return fmt.Errorf("%w: %q", ErrInvalidCurrency, currency)
	}
	return nil
}

// ValidateAmount validates a movement amount: positive, at most two decimal
// places, within the allowed range.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	if !amount.Equal(amount.Round(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountScale)
	}

	minAmount, _ := decimal.NewFromString(MinTransferAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: minimum amount is %s", ErrAmountTooSmall, MinTransferAmount)
	}

	maxAmount, _ := decimal.NewFromString(MaxTransferAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxTransferAmount)
	}

	return nil
}

// ValidateInitialBalance allows zero but nothing negative.
func ValidateInitialBalance(balance decimal.Decimal) error {
	if balance.IsNegative() {
		return fmt.Errorf("%w: initial balance cannot be negative", ErrInvalidAmount)
	}
	if !balance.Equal(balance.Round(AmountScale)) {
		return fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, AmountScale)
	}
	return nil
}

// NormalizeAccountNumber trims and upper-cases a caller supplied number.
func NormalizeAccountNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// ValidateAccountNumber checks a caller supplied account number and that
// an IBAN can be derived from it.
func ValidateAccountNumber(number string) error {
	if len(number) < MinAccountNumberLength || len(number) > MaxAccountNumberLength {
		return fmt.Errorf("%w: must be %d-%d characters", ErrInvalidAccountNumber,
			MinAccountNumberLength, MaxAccountNumberLength)
	}
	if !accountNumberRegex.MatchString(number) {
		return fmt.Errorf("%w: only letters and digits allowed", ErrInvalidAccountNumber)
	}
	if _, err := GenerateIBAN(number); err != nil {
		return err
	}
	return nil
}

// ValidateName validates a display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}

	if len(name) > MaxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, MaxNameLength)
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 100
	const DefaultPageSize = 20

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
