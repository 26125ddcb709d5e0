package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
)

// EntryUseCase serves the journal: entries, transfers and historical balances.
type EntryUseCase struct {
	accountRepo  AccountRepository
	entryRepo    EntryRepository
	transferRepo TransferRepository
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(accountRepo AccountRepository, entryRepo EntryRepository, transferRepo TransferRepository) *EntryUseCase {
	return &EntryUseCase{
		accountRepo:  accountRepo,
		entryRepo:    entryRepo,
		transferRepo: transferRepo,
	}
}

// ListEntriesInput represents input for listing entries.
type ListEntriesInput struct {
	AccountNumber string
	Limit         int
	Offset        int
}

// ListEntries lists entries for an account, newest first.
func (uc *EntryUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.Entry, error) {
	account, err := uc.accountRepo.GetByAccountNumber(ctx, domain.NormalizeAccountNumber(input.AccountNumber))
	if err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)
	return uc.entryRepo.GetByAccount(ctx, account.ID, limit, offset)
}

// ListEntriesByReference lists the entries written by one operation.
func (uc *EntryUseCase) ListEntriesByReference(ctx context.Context, referenceID string) ([]*domain.Entry, error) {
	return uc.entryRepo.GetByReference(ctx, referenceID)
}

// GetTransfer retrieves a transfer or conversion record.
func (uc *EntryUseCase) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	return uc.transferRepo.GetByID(ctx, id)
}

// GetHistoricalBalance returns the balance at a specific point in time.
func (uc *EntryUseCase) GetHistoricalBalance(ctx context.Context, accountNumber string, at time.Time) (decimal.Decimal, error) {
	account, err := uc.accountRepo.GetByAccountNumber(ctx, domain.NormalizeAccountNumber(accountNumber))
	if err != nil {
		return decimal.Zero, err
	}
	return uc.entryRepo.GetBalanceAtTime(ctx, account.ID, at)
}
