package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, ""},
		{"amount", ErrInvalidAmount, KindInvalidArgument},
		{"wrapped currency", fmt.Errorf("%w: %q", ErrInvalidCurrency, "eu"), KindInvalidArgument},
		{"malformed iban", ErrInvalidIBAN, KindInvalidArgument},
		{"unresolved iban", fmt.Errorf("%w: %w", ErrInvalidIBAN, ErrAccountNotFound), KindNotFound},
		{"user", ErrUserNotFound, KindNotFound},
		{"funds", ErrInsufficientFunds, KindInsufficientFunds},
		{"currency mismatch", ErrCurrencyMismatch, KindCurrencyMismatch},
		{"duplicate", ErrDuplicateKey, KindDuplicateKey},
		{"exhausted", ErrAccountNumberExhausted, KindDuplicateKey},
		{"persistence", fmt.Errorf("%w: %w", ErrPersistenceFailure, errors.New("conn reset")), KindPersistenceFailure},
		{"rate", ErrRateUnavailable, KindUnavailable},
		{"other", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}
