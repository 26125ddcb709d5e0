package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
)

// LedgerUseCase is the only component that mutates balances. Every mutation
// runs in one unit of work with the touched accounts locked, and notifies
// the sink only after commit.
type LedgerUseCase struct {
	txManager    TransactionManager
	accountRepo  AccountRepository
	userRepo     UserRepository
	transferRepo TransferRepository
	entryRepo    EntryRepository
	idGen        IDGenerator
	retrier      Retrier
	sink         NotificationSink
	metrics      Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// NewLedgerUseCase creates a new LedgerUseCase. retrier, sink and metrics may be nil.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	userRepo UserRepository,
	transferRepo TransferRepository,
	entryRepo EntryRepository,
	idGen IDGenerator,
	retrier Retrier,
	sink NotificationSink,
	metrics Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	if retrier == nil {
		retrier = noRetry{}
	}
	if sink == nil {
		sink = noopSink{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &LedgerUseCase{
		txManager:    txManager,
		accountRepo:  accountRepo,
		userRepo:     userRepo,
		transferRepo: transferRepo,
		entryRepo:    entryRepo,
		idGen:        idGen,
		retrier:      retrier,
		sink:         sink,
		metrics:      metrics,
		logger:       logger.With().Str("component", "ledger").Logger(),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Deposit credits amount to the account and reports success. The cause of a
// failure is logged; use DepositFunds to branch on it.
func (uc *LedgerUseCase) Deposit(ctx context.Context, accountNumber string, amount decimal.Decimal) bool {
	_, err := uc.DepositFunds(ctx, accountNumber, amount)
	return err == nil
}

// Withdraw debits amount if the balance covers it and reports success.
func (uc *LedgerUseCase) Withdraw(ctx context.Context, accountNumber string, amount decimal.Decimal) bool {
	_, err := uc.WithdrawFunds(ctx, accountNumber, amount)
	return err == nil
}

// DepositFunds credits amount to the account and returns its committed state.
func (uc *LedgerUseCase) DepositFunds(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error) {
	account, err := uc.mutate(ctx, accountNumber, amount, false, domain.EntryKindDeposit)

	uc.observe(OpDeposit, err).
		Str("account_number", accountNumber).
		Str("amount", amount.String()).
		Msg("deposit")
	if err != nil {
		return nil, err
	}

	uc.sink.BalanceChanged(ctx, domain.NewBalanceChangedEvent(account))
	return account, nil
}

// WithdrawFunds debits amount and returns the committed state, or
// ErrInsufficientFunds without touching the balance.
func (uc *LedgerUseCase) WithdrawFunds(ctx context.Context, accountNumber string, amount decimal.Decimal) (*domain.Account, error) {
	account, err := uc.mutate(ctx, accountNumber, amount, true, domain.EntryKindWithdrawal)

	uc.observe(OpWithdraw, err).
		Str("account_number", accountNumber).
		Str("amount", amount.String()).
		Msg("withdraw")
	if err != nil {
		return nil, err
	}

	uc.sink.BalanceChanged(ctx, domain.NewBalanceChangedEvent(account))
	uc.notifyWithdrawal(ctx, account, amount)
	return account, nil
}

// mutate credits or debits amount on one account.
func (uc *LedgerUseCase) mutate(ctx context.Context, accountNumber string, amount decimal.Decimal, debit bool, kind domain.EntryKind) (*domain.Account, error) {
	accountNumber = domain.NormalizeAccountNumber(accountNumber)
	if err := domain.ValidateAmount(amount); err != nil {
		return nil, err
	}
	delta := amount
	if debit {
		delta = amount.Neg()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *domain.Account
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		result, err = uc.mutateOnce(ctx, accountNumber, delta, kind)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *LedgerUseCase) mutateOnce(ctx context.Context, accountNumber string, delta decimal.Decimal, kind domain.EntryKind) (*domain.Account, error) {
	txCtx, cancel := txContext(ctx)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, persistenceErr("begin", err)
	}
	defer rollback(txCtx, tx)

	account, err := uc.accountRepo.GetByAccountNumberForUpdate(txCtx, tx, accountNumber)
	if err != nil {
		return nil, persistenceErr("lock account", err)
	}

	if delta.IsNegative() {
		if err := account.ValidateDebit(delta.Neg()); err != nil {
			return nil, err
		}
	}

	now := uc.now()
	entry := domain.NewEntry(uc.idGen.Generate(), uc.idGen.Generate(), kind, account, delta, now)
	if err := uc.entryRepo.Create(txCtx, tx, entry); err != nil {
		return nil, persistenceErr("create entry", err)
	}

	updated := applyEntry(account, entry)
	if err := uc.accountRepo.UpdateBalance(txCtx, tx, updated.ID, updated.Balance, updated.Version, now); err != nil {
		return nil, persistenceErr("update balance", err)
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, persistenceErr("commit", err)
	}

	return updated, nil
}

func (uc *LedgerUseCase) notifyWithdrawal(ctx context.Context, account *domain.Account, amount decimal.Decimal) {
	user, err := uc.userRepo.GetByID(ctx, account.UserID)
	if err != nil {
		uc.logger.Warn().Err(err).
			Str("account_number", account.AccountNumber).
			Msg("owner lookup failed, withdrawal notification skipped")
		return
	}

	uc.sink.Withdrawal(ctx, domain.WithdrawalEvent{
		UserEmail:     user.Email,
		AccountNumber: account.AccountNumber,
		Amount:        amount.StringFixed(domain.AmountScale),
		Currency:      account.Currency,
	})
}

// observe records the outcome metric and returns a log event at a level
// matching the outcome.
func (uc *LedgerUseCase) observe(op string, err error) *zerolog.Event {
	outcome := outcomeOf(err)
	uc.metrics.LedgerOperation(op, outcome)

	var ev *zerolog.Event
	switch outcome {
	case OutcomeCommitted:
		ev = uc.logger.Info()
	case OutcomeRejected:
		ev = uc.logger.Warn().Err(err)
	default:
		ev = uc.logger.Error().Err(err)
	}
	return ev.Str("operation", op).Str("outcome", outcome)
}

// applyEntry returns the account state after entry. The input is left as read
// so that a failed unit of work leaves nothing to undo.
func applyEntry(account *domain.Account, entry *domain.Entry) *domain.Account {
	updated := account.Clone()
	updated.Balance = entry.AccountCurrentBalance
	updated.Version = entry.AccountVersion
	updated.UpdatedAt = entry.CreatedAt
	return updated
}
