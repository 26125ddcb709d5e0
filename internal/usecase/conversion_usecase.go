package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
)

// ConvertInput represents input for converting part of a balance into another currency.
type ConvertInput struct {
	AccountNumber string
	ToCurrency    string
	Amount        decimal.Decimal
}

// ConversionUseCase moves money between a user's accounts in different
// currencies. Each user has at most one target account per currency; it is
// opened on first use.
type ConversionUseCase struct {
	ledger   *LedgerUseCase
	accounts *AccountUseCase
	rates    RateProvider
}

// NewConversionUseCase creates a new ConversionUseCase.
func NewConversionUseCase(ledger *LedgerUseCase, accounts *AccountUseCase, rates RateProvider) *ConversionUseCase {
	return &ConversionUseCase{
		ledger:   ledger,
		accounts: accounts,
		rates:    rates,
	}
}

// ConvertCurrency debits Amount from the account and credits Amount*rate,
// rounded to cents, to the owner's account in ToCurrency.
func (uc *ConversionUseCase) ConvertCurrency(ctx context.Context, input ConvertInput) (*TransferResult, error) {
	result, err := uc.convert(ctx, input)

	uc.ledger.observe(OpConversion, err).
		Str("account_number", input.AccountNumber).
		Str("to_currency", input.ToCurrency).
		Str("amount", input.Amount.String()).
		Msg("conversion")
	if err != nil {
		return nil, err
	}

	uc.ledger.notifyPair(ctx, result)
	return result, nil
}

func (uc *ConversionUseCase) convert(ctx context.Context, input ConvertInput) (*TransferResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	to := domain.NormalizeCurrency(input.ToCurrency)
	if err := domain.ValidateCurrency(to); err != nil {
		return nil, err
	}

	source, err := uc.accounts.GetAccount(ctx, input.AccountNumber)
	if err != nil {
		return nil, err
	}
	if source.Currency == to {
		return nil, fmt.Errorf("%w: account already holds %s", domain.ErrInvalidCurrency, to)
	}

	// Checked again under lock; this only avoids opening a target account
	// for a conversion that cannot succeed.
	if err := source.ValidateDebit(input.Amount); err != nil {
		return nil, err
	}

	// Rate lookup is remote, so it happens before any row is locked.
	rate, err := uc.rates.Rate(ctx, source.Currency, to)
	if err != nil {
		if domain.KindOf(err) == domain.KindUnknown {
			err = fmt.Errorf("%w: %w", domain.ErrRateUnavailable, err)
		}
		return nil, err
	}
	if !rate.IsPositive() {
		return nil, fmt.Errorf("%w: non-positive rate %s for %s/%s", domain.ErrRateUnavailable, rate, source.Currency, to)
	}

	credit := input.Amount.Mul(rate).Round(domain.AmountScale)

	target, err := uc.accounts.EnsureAccountInCurrency(ctx, source.UserID, to)
	if err != nil {
		return nil, err
	}

	return uc.ledger.move(ctx, movement{
		kind:           domain.TransferKindConversion,
		fromIBAN:       source.IBAN,
		toIBAN:         target.IBAN,
		amount:         input.Amount,
		currency:       source.Currency,
		creditAmount:   credit,
		creditCurrency: to,
		rate:           rate,
		debitKind:      domain.EntryKindConversionDebit,
		creditKind:     domain.EntryKindConversionCredit,
	})
}
