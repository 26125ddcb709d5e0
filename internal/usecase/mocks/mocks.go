package mocks

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

// MockUserRepository is a map backed UserRepository whose methods can be overridden.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User

	CreateFunc     func(ctx context.Context, user *domain.User) error
	GetByIDFunc    func(ctx context.Context, id string) (*domain.User, error)
	LockFunc       func(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error)
	GetByEmailFunc func(ctx context.Context, email string) (*domain.User, error)
	DeleteFunc     func(ctx context.Context, id string) error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateKey
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.User, error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

// Len returns the number of stored users.
func (m *MockUserRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
	Committed    bool
	RolledBack   bool
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	m.Committed = true
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	if !m.Committed {
		m.RolledBack = true
	}
	return nil
}

// MockTxManager is a mock implementation of TransactionManager.
type MockTxManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func (m *MockTxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockIDGenerator returns prefix-1, prefix-2, ...
type MockIDGenerator struct {
	Prefix  string
	counter atomic.Int64
}

func (m *MockIDGenerator) Generate() string {
	prefix := m.Prefix
	if prefix == "" {
		prefix = "id"
	}
	return fmt.Sprintf("%s-%d", prefix, m.counter.Add(1))
}

// SequenceAccountNumbers replays Numbers and then repeats the last one.
type SequenceAccountNumbers struct {
	mu      sync.Mutex
	Numbers []string
	calls   int
}

func (s *SequenceAccountNumbers) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.Numbers) {
		i = len(s.Numbers) - 1
	}
	s.calls++
	return s.Numbers[i]
}

// Calls reports how many numbers were drawn.
func (s *SequenceAccountNumbers) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// RecordingSink collects notifications.
type RecordingSink struct {
	mu          sync.Mutex
	Balances    []domain.BalanceChangedEvent
	Withdrawals []domain.WithdrawalEvent
}

func (s *RecordingSink) BalanceChanged(_ context.Context, ev domain.BalanceChangedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Balances = append(s.Balances, ev)
}

func (s *RecordingSink) Withdrawal(_ context.Context, ev domain.WithdrawalEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Withdrawals = append(s.Withdrawals, ev)
}

// Snapshot returns copies of the recorded events.
func (s *RecordingSink) Snapshot() ([]domain.BalanceChangedEvent, []domain.WithdrawalEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.BalanceChangedEvent(nil), s.Balances...),
		append([]domain.WithdrawalEvent(nil), s.Withdrawals...)
}

// CountingRetrier runs the operation once and counts calls.
type CountingRetrier struct {
	Calls atomic.Int64
}

func (r *CountingRetrier) Retry(_ context.Context, operation func() error) error {
	r.Calls.Add(1)
	return operation()
}
