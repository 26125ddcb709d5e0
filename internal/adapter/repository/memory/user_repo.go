package memory

import (
	"context"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// UserRepository implements usecase.UserRepository.
type UserRepository struct {
	s *Store
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{s: s}
}

// Create inserts a user. Emails are unique.
func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return domain.ErrDuplicateKey
	}
	if _, ok := r.s.byEmail[user.Email]; ok {
		return domain.ErrDuplicateKey
	}

	u := *user
	r.s.users[u.ID] = &u
	r.s.byEmail[u.Email] = u.ID
	return nil
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

// GetByIDForUpdate locks the user until tx ends.
func (r *UserRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error) {
	t, err := asTx(r.s, tx)
	if err != nil {
		return nil, err
	}
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := t.lock(ctx, []string{userLockKey(id)}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// User locks share the row lock table with accounts.
func userLockKey(id string) string { return "user:" + id }

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	id, ok := r.s.byEmail[email]
	r.s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes a user with its accounts, their entries and the transfers
// touching them.
func (r *UserRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}

	removed := make(map[string]bool)
	for accID, a := range r.s.accounts {
		if a.UserID != id {
			continue
		}
		removed[accID] = true
		delete(r.s.accounts, accID)
		delete(r.s.byNumber, a.AccountNumber)
		delete(r.s.byIBAN, a.IBAN)
	}

	kept := r.s.entries[:0]
	for _, e := range r.s.entries {
		if !removed[e.AccountID] {
			kept = append(kept, e)
		}
	}
	r.s.entries = kept

	for tid, t := range r.s.transfers {
		if removed[t.FromAccountID] || removed[t.ToAccountID] {
			delete(r.s.transfers, tid)
		}
	}

	delete(r.s.byEmail, u.Email)
	delete(r.s.users, id)
	return nil
}
