package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when balances and entries disagree.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: balances do not equal entry totals")
)

// ReconciliationUseCase checks recorded balances against the journal.
type ReconciliationUseCase struct {
	accountRepo AccountRepository
	entryRepo   EntryRepository
	ledgerRepo  LedgerRepository
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		ledgerRepo:  ledgerRepo,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	AccountNumber     string
	RecordedBalance   decimal.Decimal
	CalculatedBalance decimal.Decimal
	Difference        decimal.Decimal
	IsReconciled      bool
	LastChecked       time.Time
}

// ReconcileAccount compares an account's balance with the sum of its entries.
func (uc *ReconciliationUseCase) ReconcileAccount(ctx context.Context, accountNumber string) (*ReconciliationResult, error) {
	account, err := uc.accountRepo.GetByAccountNumber(ctx, domain.NormalizeAccountNumber(accountNumber))
	if err != nil {
		return nil, err
	}

	calculated, err := uc.entryRepo.SumByAccount(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	diff := account.Balance.Sub(calculated)
	return &ReconciliationResult{
		AccountNumber:     account.AccountNumber,
		RecordedBalance:   account.Balance,
		CalculatedBalance: calculated,
		Difference:        diff,
		IsReconciled:      diff.IsZero(),
		LastChecked:       time.Now().UTC(),
	}, nil
}

// ConsistencyReport is the ledger-wide balance check.
type ConsistencyReport struct {
	TotalBalance decimal.Decimal
	TotalEntries decimal.Decimal
	Consistent   bool
	CheckedAt    time.Time
}

// CheckLedgerConsistency verifies that the sum of balances equals the sum of
// all entry amounts. An inconsistent ledger returns the report along with
// ErrInconsistentLedger.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) (*ConsistencyReport, error) {
	totalBalance, totalEntries, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		TotalBalance: totalBalance,
		TotalEntries: totalEntries,
		Consistent:   totalBalance.Equal(totalEntries),
		CheckedAt:    time.Now().UTC(),
	}
	if !report.Consistent {
		return report, fmt.Errorf("%w: balances=%s entries=%s difference=%s",
			ErrInconsistentLedger, totalBalance, totalEntries, totalBalance.Sub(totalEntries))
	}

	return report, nil
}
