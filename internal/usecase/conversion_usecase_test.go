package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
	"github.com/nexgen/bankledger/internal/usecase/mocks"
)

func TestConvertCurrency_OpensTargetOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	f.user(t, "u1", "a@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "100")

	rates := mocks.NewMockRateProvider(ctrl)
	rates.EXPECT().Rate(gomock.Any(), "EUR", "USD").Return(dec("1.0857"), nil).Times(2)

	uc := usecase.NewConversionUseCase(f.ledgerUC, f.accountUC, rates)

	res, err := uc.ConvertCurrency(context.Background(), usecase.ConvertInput{
		AccountNumber: "NEX172720185",
		ToCurrency:    "usd",
		Amount:        dec("10"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TransferKindConversion, res.Transfer.Kind)
	assert.True(t, res.Transfer.CreditAmount.Equal(dec("10.86")))
	assert.Equal(t, "USD", res.To.Currency)
	assert.True(t, res.To.Balance.Equal(dec("10.86")))
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("90")))

	_, err = uc.ConvertCurrency(context.Background(), usecase.ConvertInput{
		AccountNumber: "NEX172720185",
		ToCurrency:    "USD",
		Amount:        dec("10"),
	})
	require.NoError(t, err)

	accounts, _ := f.accounts.ListByUser(context.Background(), "u1")
	require.Len(t, accounts, 2, "second conversion must reuse the USD account")
	for _, a := range accounts {
		if a.Currency == "USD" {
			assert.True(t, a.Balance.Equal(dec("21.72")))
		}
	}
	f.requireConsistent(t)
}

func TestConvertCurrency_Rejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	f.user(t, "u1", "a@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "5")

	rates := mocks.NewMockRateProvider(ctrl)
	rates.EXPECT().Rate(gomock.Any(), "EUR", "GBP").Return(dec("0"), errors.New("upstream 502"))

	uc := usecase.NewConversionUseCase(f.ledgerUC, f.accountUC, rates)

	_, err := uc.ConvertCurrency(context.Background(), usecase.ConvertInput{AccountNumber: "NEX172720185", ToCurrency: "EUR", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	_, err = uc.ConvertCurrency(context.Background(), usecase.ConvertInput{AccountNumber: "NEX172720185", ToCurrency: "GBP", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))

	_, err = uc.ConvertCurrency(context.Background(), usecase.ConvertInput{AccountNumber: "NEX172720185", ToCurrency: "USD", Amount: dec("6")})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = uc.ConvertCurrency(context.Background(), usecase.ConvertInput{AccountNumber: "NEX999999999", ToCurrency: "USD", Amount: dec("1")})
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("5")))
	accounts, _ := f.accounts.ListByUser(context.Background(), "u1")
	assert.Len(t, accounts, 1)
}

func TestConvertCurrency_ConcurrentFirstConversionsShareTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newFixture(t)
	f.user(t, "u1", "a@example.com")
	f.account(t, "u1", "NEX172720185", "EUR", "100")

	rates := mocks.NewMockRateProvider(ctrl)
	rates.EXPECT().Rate(gomock.Any(), "EUR", "USD").Return(dec("2"), nil).AnyTimes()

	uc := usecase.NewConversionUseCase(f.ledgerUC, f.accountUC, rates)

	const callers = 10
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = uc.ConvertCurrency(context.Background(), usecase.ConvertInput{
				AccountNumber: "NEX172720185",
				ToCurrency:    "USD",
				Amount:        dec("1"),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	accounts, _ := f.accounts.ListByUser(context.Background(), "u1")
	require.Len(t, accounts, 2)
	for _, a := range accounts {
		if a.Currency == "USD" {
			assert.True(t, a.Balance.Equal(dec("20")))
		}
	}
	assert.True(t, f.balance(t, "NEX172720185").Equal(dec("90")))
	f.requireConsistent(t)
}
