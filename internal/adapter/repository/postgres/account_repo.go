package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/infrastructure/postgres/generated"
	"github.com/nexgen/bankledger/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	queries *generated.Queries
}

// NewAccountRepository creates a new AccountRepository. db is usually a
// *pgxpool.Pool.
func NewAccountRepository(db generated.DBTX) *AccountRepository {
	return &AccountRepository{queries: generated.New(db)}
}

// Create inserts an account outside of any transaction.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	return r.create(ctx, r.queries, account)
}

// CreateTx inserts an account inside tx.
func (r *AccountRepository) CreateTx(ctx context.Context, tx usecase.Transaction, account *domain.Account) error {
	return r.create(ctx, queriesFor(tx), account)
}

func (r *AccountRepository) create(ctx context.Context, q *generated.Queries, account *domain.Account) error {
	err := q.CreateAccount(ctx, generated.CreateAccountParams{
		ID:            account.ID,
		AccountNumber: account.AccountNumber,
		Iban:          account.IBAN,
		UserID:        account.UserID,
		Currency:      account.Currency,
		Balance:       decimalToNumeric(account.Balance),
		Version:       account.Version,
		CreatedAt:     timeToPgTimestamptz(account.CreatedAt),
		UpdatedAt:     timeToPgTimestamptz(account.UpdatedAt),
	})

	return mapError(err, nil)
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByID(ctx, id)
	if err != nil {
		return nil, mapError(err, domain.ErrAccountNotFound)
	}

	return rowToAccount(row), nil
}

// GetByAccountNumber retrieves an account by its account number.
func (r *AccountRepository) GetByAccountNumber(ctx context.Context, accountNumber string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByNumber(ctx, accountNumber)
	if err != nil {
		return nil, mapError(err, domain.ErrAccountNotFound)
	}

	return rowToAccount(row), nil
}

// GetByIBAN retrieves an account by its compact IBAN.
func (r *AccountRepository) GetByIBAN(ctx context.Context, iban string) (*domain.Account, error) {
	row, err := r.queries.GetAccountByIBAN(ctx, iban)
	if err != nil {
		return nil, mapError(err, domain.ErrAccountNotFound)
	}

	return rowToAccount(row), nil
}

// GetByAccountNumberForUpdate retrieves an account with a FOR UPDATE lock.
func (r *AccountRepository) GetByAccountNumberForUpdate(ctx context.Context, tx usecase.Transaction, accountNumber string) (*domain.Account, error) {
	row, err := queriesFor(tx).GetAccountByNumberForUpdate(ctx, accountNumber)
	if err != nil {
		return nil, mapError(err, domain.ErrAccountNotFound)
	}

	return rowToAccount(row), nil
}

// GetByIBANsForUpdate locks the accounts behind ibans. The query orders by
// IBAN so concurrent transfers acquire row locks in the same order.
func (r *AccountRepository) GetByIBANsForUpdate(ctx context.Context, tx usecase.Transaction, ibans []string) ([]*domain.Account, error) {
	rows, err := queriesFor(tx).GetAccountsByIBANsForUpdate(ctx, ibans)
	if err != nil {
		return nil, mapError(err, nil)
	}

	return rowsToAccounts(rows), nil
}

// ListByUser lists a user's accounts, oldest first.
func (r *AccountRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	rows, err := r.queries.ListAccountsByUser(ctx, userID)
	if err != nil {
		return nil, mapError(err, nil)
	}

	return rowsToAccounts(rows), nil
}

// UpdateBalance writes a new balance and version.
func (r *AccountRepository) UpdateBalance(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, version int64, updatedAt time.Time) error {
	n, err := queriesFor(tx).UpdateAccountBalance(ctx, generated.UpdateAccountBalanceParams{
		ID:        id,
		Balance:   decimalToNumeric(balance),
		Version:   version,
		UpdatedAt: timeToPgTimestamptz(updatedAt),
	})
	if err != nil {
		return mapError(err, nil)
	}
	if n == 0 {
		return domain.ErrAccountNotFound
	}

	return nil
}
