package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
)

// AccountOptions tunes account creation.
type AccountOptions struct {
	// NumberAttempts bounds retries when a generated number collides.
	NumberAttempts  int
	DefaultCurrency string
}

// AccountUseCase handles account business logic.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	userRepo    UserRepository
	entryRepo   EntryRepository
	idGen       IDGenerator
	numbers     AccountNumberGenerator
	metrics     Metrics
	logger      zerolog.Logger
	opts        AccountOptions
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	userRepo UserRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
	numbers AccountNumberGenerator,
	metrics Metrics,
	logger zerolog.Logger,
	opts AccountOptions,
) *AccountUseCase {
	if opts.NumberAttempts <= 0 {
		opts.NumberAttempts = DefaultAccountNumberAttempts
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = DefaultCurrency
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		userRepo:    userRepo,
		entryRepo:   entryRepo,
		idGen:       idGen,
		numbers:     numbers,
		metrics:     metrics,
		logger:      logger.With().Str("component", "accounts").Logger(),
		opts:        opts,
	}
}

// CreateAccountInput represents input for creating an account. An empty
// AccountNumber asks for a generated one; an empty Currency uses the default.
type CreateAccountInput struct {
	UserID         string
	AccountNumber  string
	InitialBalance decimal.Decimal
	Currency       string
}

// CreateAccount opens an account for an existing user. The account row and
// its opening entry are written together.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, input CreateAccountInput) (*domain.Account, error) {
	if err := domain.ValidateInitialBalance(input.InitialBalance); err != nil {
		return nil, err
	}

	currency := uc.opts.DefaultCurrency
	if input.Currency != "" {
		currency = domain.NormalizeCurrency(input.Currency)
	}
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	var number string
	if input.AccountNumber != "" {
		number = domain.NormalizeAccountNumber(input.AccountNumber)
		if err := domain.ValidateAccountNumber(number); err != nil {
			return nil, err
		}
	}

	user, err := uc.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, persistenceErr("get user", err)
	}

	if number != "" {
		return uc.create(ctx, user.ID, number, currency, input.InitialBalance)
	}

	for attempt := 1; attempt <= uc.opts.NumberAttempts; attempt++ {
		candidate := uc.numbers.Next()
		account, err := uc.create(ctx, user.ID, candidate, currency, input.InitialBalance)
		if errors.Is(err, domain.ErrDuplicateKey) {
			uc.metrics.AccountNumberCollision()
			uc.logger.Debug().Str("account_number", candidate).Int("attempt", attempt).Msg("account number taken, drawing again")
			continue
		}
		return account, err
	}

	return nil, fmt.Errorf("%w: %d attempts", domain.ErrAccountNumberExhausted, uc.opts.NumberAttempts)
}

// OpenDefaultAccount opens the zero balance account every user starts with.
func (uc *AccountUseCase) OpenDefaultAccount(ctx context.Context, userID string) (*domain.Account, error) {
	return uc.CreateAccount(ctx, CreateAccountInput{
		UserID:         userID,
		InitialBalance: decimal.Zero,
		Currency:       uc.opts.DefaultCurrency,
	})
}

func (uc *AccountUseCase) create(ctx context.Context, userID, number, currency string, balance decimal.Decimal) (*domain.Account, error) {
	txCtx, cancel := txContext(ctx)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, persistenceErr("begin", err)
	}
	defer rollback(txCtx, tx)

	account, err := uc.insert(txCtx, tx, userID, number, currency, balance)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, persistenceErr("commit", err)
	}

	uc.created(account)
	return account, nil
}

// insert writes the account row and its opening entry inside tx.
func (uc *AccountUseCase) insert(ctx context.Context, tx Transaction, userID, number, currency string, balance decimal.Decimal) (*domain.Account, error) {
	iban, err := domain.GenerateIBAN(number)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateIBAN(iban); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:            uc.idGen.Generate(),
		AccountNumber: number,
		IBAN:          iban,
		UserID:        userID,
		Currency:      currency,
		Balance:       balance,
		Version:       0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.accountRepo.CreateTx(ctx, tx, account); err != nil {
		return nil, persistenceErr("create account", err)
	}

	opening := &domain.Entry{
		ID:                     uc.idGen.Generate(),
		AccountID:              account.ID,
		ReferenceID:            account.ID,
		Kind:                   domain.EntryKindOpening,
		Amount:                 balance,
		AccountPreviousBalance: decimal.Zero,
		AccountCurrentBalance:  balance,
		AccountVersion:         account.Version,
		CreatedAt:              now,
	}
	if err := uc.entryRepo.Create(ctx, tx, opening); err != nil {
		return nil, persistenceErr("create opening entry", err)
	}

	return account, nil
}

func (uc *AccountUseCase) created(account *domain.Account) {
	uc.metrics.AccountCreated(account.Currency)
	uc.logger.Info().
		Str("account_number", account.AccountNumber).
		Str("iban", account.IBAN).
		Str("user_id", account.UserID).
		Str("currency", account.Currency).
		Msg("account created")
}

// EnsureAccountInCurrency returns the user's oldest account in currency and
// opens a zero balance one when there is none. The owner row stays locked
// from the lookup to the insert, so concurrent callers open at most one.
func (uc *AccountUseCase) EnsureAccountInCurrency(ctx context.Context, userID, currency string) (*domain.Account, error) {
	currency = domain.NormalizeCurrency(currency)
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= uc.opts.NumberAttempts; attempt++ {
		candidate := uc.numbers.Next()
		account, err := uc.ensureOnce(ctx, userID, candidate, currency)
		if errors.Is(err, domain.ErrDuplicateKey) {
			uc.metrics.AccountNumberCollision()
			uc.logger.Debug().Str("account_number", candidate).Int("attempt", attempt).Msg("account number taken, drawing again")
			continue
		}
		return account, err
	}

	return nil, fmt.Errorf("%w: %d attempts", domain.ErrAccountNumberExhausted, uc.opts.NumberAttempts)
}

func (uc *AccountUseCase) ensureOnce(ctx context.Context, userID, number, currency string) (*domain.Account, error) {
	txCtx, cancel := txContext(ctx)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, persistenceErr("begin", err)
	}
	defer rollback(txCtx, tx)

	if _, err := uc.userRepo.GetByIDForUpdate(txCtx, tx, userID); err != nil {
		return nil, persistenceErr("lock user", err)
	}

	// Runs after the lock, so it sees any account a concurrent caller committed.
	existing, err := uc.FindAccountInCurrency(txCtx, userID, currency)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, persistenceErr("list accounts", err)
	}

	account, err := uc.insert(txCtx, tx, userID, number, currency, decimal.Zero)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, persistenceErr("commit", err)
	}

	uc.created(account)
	return account, nil
}

// GetAccount retrieves an account by account number.
func (uc *AccountUseCase) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return uc.accountRepo.GetByAccountNumber(ctx, domain.NormalizeAccountNumber(accountNumber))
}

// GetAccountByIBAN retrieves an account by IBAN; malformed input is rejected
// without a lookup.
func (uc *AccountUseCase) GetAccountByIBAN(ctx context.Context, iban string) (*domain.Account, error) {
	iban = domain.CompactIBAN(iban)
	if err := domain.ValidateIBAN(iban); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByIBAN(ctx, iban)
}

// ListAccountsByUser lists the accounts a user owns, oldest first.
func (uc *AccountUseCase) ListAccountsByUser(ctx context.Context, userID string) ([]*domain.Account, error) {
	if _, err := uc.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return uc.accountRepo.ListByUser(ctx, userID)
}

// FindAccountInCurrency returns the user's oldest account in currency, or
// ErrAccountNotFound.
func (uc *AccountUseCase) FindAccountInCurrency(ctx context.Context, userID, currency string) (*domain.Account, error) {
	accounts, err := uc.accountRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		if a.Currency == currency {
			return a, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}
