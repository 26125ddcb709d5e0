package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	s *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(s *Store) *AccountRepository {
	return &AccountRepository{s: s}
}

// Create inserts an account outside any unit of work.
func (r *AccountRepository) Create(_ context.Context, account *domain.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertAccount(account)
}

// CreateTx stages an account insert. Uniqueness is checked now and again at commit.
func (r *AccountRepository) CreateTx(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	t, err := asTx(r.s, tx)
	if err != nil {
		return err
	}

	r.s.mu.RLock()
	_, numberTaken := r.s.byNumber[account.AccountNumber]
	_, ibanTaken := r.s.byIBAN[account.IBAN]
	_, userExists := r.s.users[account.UserID]
	r.s.mu.RUnlock()

	switch {
	case !userExists:
		return domain.ErrUserNotFound
	case numberTaken || ibanTaken:
		return domain.ErrDuplicateKey
	}

	a := account.Clone()
	return t.stage(stagedOp{
		check: func() error {
			if _, ok := r.s.byNumber[a.AccountNumber]; ok {
				return domain.ErrDuplicateKey
			}
			if _, ok := r.s.byIBAN[a.IBAN]; ok {
				return domain.ErrDuplicateKey
			}
			if _, ok := r.s.users[a.UserID]; !ok {
				return domain.ErrUserNotFound
			}
			return nil
		},
		apply: func() { _ = r.s.insertAccount(a) },
	})
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.byIDLocked(id)
}

// GetByAccountNumber retrieves an account by account number.
func (r *AccountRepository) GetByAccountNumber(_ context.Context, accountNumber string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byNumber[accountNumber]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.byIDLocked(id)
}

// GetByIBAN retrieves an account by IBAN.
func (r *AccountRepository) GetByIBAN(_ context.Context, iban string) (*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byIBAN[iban]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.byIDLocked(id)
}

// GetByAccountNumberForUpdate locks the account until tx ends.
func (r *AccountRepository) GetByAccountNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Account, error) {
	t, err := asTx(r.s, tx)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	id, ok := r.s.byNumber[accountNumber]
	r.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	if err := t.lock(ctx, []string{id}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// GetByIBANsForUpdate locks the known accounts in ascending IBAN order.
func (r *AccountRepository) GetByIBANsForUpdate(ctx context.Context, tx usecase.Transaction, ibans []string) ([]*domain.Account, error) {
	t, err := asTx(r.s, tx)
	if err != nil {
		return nil, err
	}

	ordered := sortedCopy(ibans)
	ids := make([]string, 0, len(ordered))
	r.s.mu.RLock()
	for _, iban := range ordered {
		if id, ok := r.s.byIBAN[iban]; ok {
			ids = append(ids, id)
		}
	}
	r.s.mu.RUnlock()

	if err := t.lock(ctx, ids); err != nil {
		return nil, err
	}

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range ids {
		a, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, nil
}

// ListByUser lists a user's accounts, oldest first.
func (r *AccountRepository) ListByUser(_ context.Context, userID string) ([]*domain.Account, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var accounts []*domain.Account
	for _, a := range r.s.accounts {
		if a.UserID == userID {
			accounts = append(accounts, a.Clone())
		}
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].CreatedAt.Equal(accounts[j].CreatedAt) {
			return accounts[i].ID < accounts[j].ID
		}
		return accounts[i].CreatedAt.Before(accounts[j].CreatedAt)
	})
	return accounts, nil
}

// UpdateBalance stages a balance write. The row must be locked by tx.
func (r *AccountRepository) UpdateBalance(_ context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, version int64, updatedAt time.Time) error {
	t, err := asTx(r.s, tx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	_, held := t.held[id]
	t.mu.Unlock()
	if !held {
		return errors.New("memory: balance update without row lock")
	}

	return t.stage(stagedOp{
		check: func() error {
			if _, ok := r.s.accounts[id]; !ok {
				return domain.ErrAccountNotFound
			}
			if balance.IsNegative() {
				return domain.ErrInsufficientFunds
			}
			return nil
		},
		apply: func() {
			a := r.s.accounts[id]
			a.Balance = balance
			a.Version = version
			a.UpdatedAt = updatedAt
		},
	})
}

// byIDLocked must be called with s.mu held.
func (r *AccountRepository) byIDLocked(id string) (*domain.Account, error) {
	a, ok := r.s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}
