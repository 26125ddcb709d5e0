package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// TransferRepository implements usecase.TransferRepository.
type TransferRepository struct {
	s *Store
}

// NewTransferRepository creates a new TransferRepository.
func NewTransferRepository(s *Store) *TransferRepository {
	return &TransferRepository{s: s}
}

// Create stages a transfer insert.
func (r *TransferRepository) Create(_ context.Context, tx usecase.Transaction, transfer *domain.Transfer) error {
	t, err := asTx(r.s, tx)
	if err != nil {
		return err
	}
	tr := *transfer
	return t.stage(stagedOp{
		check: func() error {
			if _, ok := r.s.transfers[tr.ID]; ok {
				return domain.ErrDuplicateKey
			}
			return nil
		},
		apply: func() { r.s.transfers[tr.ID] = &tr },
	})
}

// GetByID retrieves a transfer by ID.
func (r *TransferRepository) GetByID(_ context.Context, id string) (*domain.Transfer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transfers[id]
	if !ok {
		return nil, domain.ErrTransferNotFound
	}
	c := *t
	return &c, nil
}

// LedgerRepository implements usecase.LedgerRepository.
type LedgerRepository struct {
	s *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(s *Store) *LedgerRepository {
	return &LedgerRepository{s: s}
}

// CheckConsistency returns the sum of all balances and the sum of all entry amounts.
func (r *LedgerRepository) CheckConsistency(context.Context) (decimal.Decimal, decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	balances := decimal.Zero
	for _, a := range r.s.accounts {
		balances = balances.Add(a.Balance)
	}
	entries := decimal.Zero
	for _, e := range r.s.entries {
		entries = entries.Add(e.Amount)
	}
	return balances, entries, nil
}
