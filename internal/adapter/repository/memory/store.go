// Package memory is an in-process store with the same locking and
// visibility rules as the PostgreSQL adapter: rows read for update stay
// locked until the unit of work ends and writes become visible on commit.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/usecase"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Store holds all tables.
type Store struct {
	mu sync.RWMutex

	accounts map[string]*domain.Account
	byNumber map[string]string
	byIBAN   map[string]string
	rowLocks map[string]chan struct{}

	users   map[string]*domain.User
	byEmail map[string]string

	transfers map[string]*domain.Transfer
	entries   []*domain.Entry
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts:  make(map[string]*domain.Account),
		byNumber:  make(map[string]string),
		byIBAN:    make(map[string]string),
		rowLocks:  make(map[string]chan struct{}),
		users:     make(map[string]*domain.User),
		byEmail:   make(map[string]string),
		transfers: make(map[string]*domain.Transfer),
	}
}

func (s *Store) rowLock(id string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = make(chan struct{}, 1)
		s.rowLocks[id] = l
	}
	return l
}

// insertAccount must be called with s.mu held for writing.
func (s *Store) insertAccount(a *domain.Account) error {
	if _, ok := s.users[a.UserID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := s.byNumber[a.AccountNumber]; ok {
		return domain.ErrDuplicateKey
	}
	if _, ok := s.byIBAN[a.IBAN]; ok {
		return domain.ErrDuplicateKey
	}
	if _, ok := s.accounts[a.ID]; ok {
		return domain.ErrDuplicateKey
	}
	s.accounts[a.ID] = a.Clone()
	s.byNumber[a.AccountNumber] = a.ID
	s.byIBAN[a.IBAN] = a.ID
	return nil
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	s *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(s *Store) *TxManager {
	return &TxManager{s: s}
}

// Begin starts a new unit of work.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{s: m.s, held: make(map[string]chan struct{})}, nil
}

type stagedOp struct {
	check func() error
	apply func()
}

// Tx is a unit of work against a Store.
type Tx struct {
	s      *Store
	mu     sync.Mutex
	held   map[string]chan struct{}
	staged []stagedOp
	done   bool
}

func asTx(s *Store, tx usecase.Transaction) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t.s != s {
		return nil, errForeignTx
	}
	return t, nil
}

// lock takes the row locks for ids in the given order, skipping ones this
// tx already holds.
func (t *Tx) lock(ctx context.Context, ids []string) error {
	for _, id := range ids {
		t.mu.Lock()
		_, held := t.held[id]
		t.mu.Unlock()
		if held {
			continue
		}

		l := t.s.rowLock(id)
		select {
		case l <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		t.mu.Lock()
		t.held[id] = l
		t.mu.Unlock()
	}
	return nil
}

func (t *Tx) stage(op stagedOp) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errors.New("memory: transaction already finished")
	}
	t.staged = append(t.staged, op)
	return nil
}

// Commit applies every staged write or none of them.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return errors.New("memory: transaction already finished")
	}
	t.done = true
	defer t.release()

	if err := ctx.Err(); err != nil {
		return err
	}

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for _, op := range t.staged {
		if op.check == nil {
			continue
		}
		if err := op.check(); err != nil {
			return err
		}
	}
	for _, op := range t.staged {
		op.apply()
	}
	return nil
}

// Rollback discards staged writes. It is a no-op after Commit.
func (t *Tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.staged = nil
	t.release()
	return nil
}

// release must be called with t.mu held.
func (t *Tx) release() {
	for id, l := range t.held {
		<-l
		delete(t.held, id)
	}
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
