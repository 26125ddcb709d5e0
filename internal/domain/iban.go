package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// IBAN layout for accounts issued by this bank.
const (
	CountryCode   = "DE"
	BankCode      = "50020222"
	AccountDigits = 10
	IBANLength    = 22
)

var ibanRegex = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[0-9]{8}[0-9]{10}$`)

// NormalizeAccountDigits keeps the digits of an account number and left-pads
// them to the ten digit field of the BBAN.
func NormalizeAccountDigits(accountNumber string) (string, error) {
	var b strings.Builder
	for _, r := range accountNumber {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: %q contains no digits", ErrInvalidAccountNumber, accountNumber)
	}

	digits := strings.TrimLeft(b.String(), "0")
	if len(digits) > AccountDigits {
		return "", fmt.Errorf("%w: %q does not fit in %d digits", ErrInvalidAccountNumber, accountNumber, AccountDigits)
	}

	return strings.Repeat("0", AccountDigits-len(digits)) + digits, nil
}

// CheckDigits computes the ISO 7064 MOD 97-10 check digits for a country and BBAN.
func CheckDigits(country, bban string) (string, error) {
	rem := 0
	for _, r := range bban + country + "00" {
		switch {
		case r >= '0' && r <= '9':
			rem = (rem*10 + int(r-'0')) % 97
		case r >= 'A' && r <= 'Z':
			rem = (rem*100 + int(r-'A') + 10) % 97
		default:
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidIBAN, r)
		}
	}
	return fmt.Sprintf("%02d", 98-rem), nil
}

// GenerateIBAN derives the German IBAN for an account number.
func GenerateIBAN(accountNumber string) (string, error) {
	digits, err := NormalizeAccountDigits(accountNumber)
	if err != nil {
		return "", err
	}

	bban := BankCode + digits
	check, err := CheckDigits(CountryCode, bban)
	if err != nil {
		return "", err
	}

	return CountryCode + check + bban, nil
}

// IsValidIBAN reports whether iban is well formed and its check digits match.
func IsValidIBAN(iban string) bool {
	if !ibanRegex.MatchString(iban) {
		return false
	}
	check, err := CheckDigits(iban[:2], iban[4:])
	if err != nil {
		return false
	}
	return check == iban[2:4]
}

// ValidateIBAN is IsValidIBAN with an error for callers that propagate one.
func ValidateIBAN(iban string) error {
	if !IsValidIBAN(iban) {
		return fmt.Errorf("%w: %q", ErrInvalidIBAN, iban)
	}
	return nil
}

// CompactIBAN strips spaces and upper-cases user input.
func CompactIBAN(iban string) string {
	return strings.ToUpper(strings.Join(strings.Fields(iban), ""))
}

// FormatIBAN renders an IBAN in groups of four for display.
func FormatIBAN(iban string) string {
	iban = CompactIBAN(iban)
	var b strings.Builder
	for i, r := range iban {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
