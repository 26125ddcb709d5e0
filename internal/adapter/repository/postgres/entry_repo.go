package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/infrastructure/postgres/generated"
	"github.com/nexgen/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create creates a new entry.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	err := queriesFor(tx).CreateEntry(ctx, generated.CreateEntryParams{
		ID:                     entry.ID,
		AccountID:              entry.AccountID,
		ReferenceID:            entry.ReferenceID,
		Kind:                   string(entry.Kind),
		Amount:                 decimalToNumeric(entry.Amount),
		AccountPreviousBalance: decimalToNumeric(entry.AccountPreviousBalance),
		AccountCurrentBalance:  decimalToNumeric(entry.AccountCurrentBalance),
		AccountVersion:         entry.AccountVersion,
		CreatedAt:              timeToPgTimestamptz(entry.CreatedAt),
	})

	return mapError(err, nil)
}

// GetByReference retrieves the entries written by one operation.
func (r *EntryRepository) GetByReference(ctx context.Context, referenceID string) ([]*domain.Entry, error) {
	rows, err := r.queries.GetEntriesByReference(ctx, referenceID)
	if err != nil {
		return nil, mapError(err, nil)
	}

	return rowsToEntries(rows), nil
}

// GetByAccount retrieves entries by account ID, newest first.
func (r *EntryRepository) GetByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	rows, err := r.queries.GetEntriesByAccount(ctx, generated.GetEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, mapError(err, nil)
	}

	return rowsToEntries(rows), nil
}

// GetBalanceAtTime retrieves the balance at a specific time.
func (r *EntryRepository) GetBalanceAtTime(ctx context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	balance, err := r.queries.GetAccountBalanceAtTime(ctx, generated.GetAccountBalanceAtTimeParams{
		AccountID: accountID,
		CreatedAt: timeToPgTimestamptz(at),
	})
	if err != nil {
		return decimal.Zero, mapError(err, nil)
	}

	return numericToDecimal(balance), nil
}

// SumByAccount sums every entry amount of an account.
func (r *EntryRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	total, err := r.queries.SumEntriesByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, mapError(err, nil)
	}

	return numericToDecimal(total), nil
}

func rowsToEntries(rows []generated.Entry) []*domain.Entry {
	entries := make([]*domain.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, rowToEntry(row))
	}

	return entries
}
