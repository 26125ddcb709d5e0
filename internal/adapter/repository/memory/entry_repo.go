package memory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	s *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(s *Store) *EntryRepository {
	return &EntryRepository{s: s}
}

// Create stages an entry insert.
func (r *EntryRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	t, err := asTx(r.s, tx)
	if err != nil {
		return err
	}
	e := *entry
	return t.stage(stagedOp{
		apply: func() { r.s.entries = append(r.s.entries, &e) },
	})
}

// GetByReference lists the entries of one operation in insertion order.
func (r *EntryRepository) GetByReference(_ context.Context, referenceID string) ([]*domain.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Entry
	for _, e := range r.s.entries {
		if e.ReferenceID == referenceID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

// GetByAccount lists an account's entries newest first.
func (r *EntryRepository) GetByAccount(_ context.Context, accountID string, limit, offset int) ([]*domain.Entry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*domain.Entry
	skipped := 0
	for i := len(r.s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.s.entries[i]
		if e.AccountID != accountID {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

// GetBalanceAtTime returns the balance after the last entry at or before at.
func (r *EntryRepository) GetBalanceAtTime(_ context.Context, accountID string, at time.Time) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	balance := decimal.Zero
	for _, e := range r.s.entries {
		if e.AccountID == accountID && !e.CreatedAt.After(at) {
			balance = e.AccountCurrentBalance
		}
	}
	return balance, nil
}

// SumByAccount adds up every entry amount of an account.
func (r *EntryRepository) SumByAccount(_ context.Context, accountID string) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sum := decimal.Zero
	for _, e := range r.s.entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}
