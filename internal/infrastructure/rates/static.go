package rates

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
)

// StaticProvider serves rates from a fixed table keyed "FROM:TO". The
// reverse direction is derived when only one side is listed.
type StaticProvider struct {
	rates map[string]decimal.Decimal
}

// NewStaticProvider creates a provider from rates.
func NewStaticProvider(rates map[string]decimal.Decimal) *StaticProvider {
	return &StaticProvider{rates: rates}
}

// DefaultRates is the table used when no rate service is configured.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"EUR:USD": decimal.RequireFromString("1.08"),
		"EUR:GBP": decimal.RequireFromString("0.85"),
		"EUR:CHF": decimal.RequireFromString("0.95"),
		"EUR:JPY": decimal.RequireFromString("161.50"),
	}
}

// Rate implements usecase.RateProvider.
func (p *StaticProvider) Rate(_ context.Context, from, to string) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if rate, ok := p.rates[from+":"+to]; ok {
		return rate, nil
	}
	if inverse, ok := p.rates[to+":"+from]; ok && !inverse.IsZero() {
		return decimal.NewFromInt(1).DivRound(inverse, 6), nil
	}

	return decimal.Zero, fmt.Errorf("%w: no %s/%s rate", domain.ErrRateUnavailable, from, to)
}
