package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
)

// TransferInput represents input for a transfer between two IBANs.
type TransferInput struct {
	FromIBAN string
	ToIBAN   string
	Amount   decimal.Decimal
	Currency string
}

// TransferResult carries the transfer record and the committed state of both accounts.
type TransferResult struct {
	Transfer *domain.Transfer
	From     *domain.Account
	To       *domain.Account
}

// movement is a debit on one account paired with a credit on another.
type movement struct {
	kind           domain.TransferKind
	fromIBAN       string
	toIBAN         string
	amount         decimal.Decimal
	currency       string
	creditAmount   decimal.Decimal
	creditCurrency string
	rate           decimal.Decimal
	debitKind      domain.EntryKind
	creditKind     domain.EntryKind
}

// Transfer moves amount between two accounts identified by IBAN. Every
// precondition is checked before anything is written and both balances are
// saved in one unit of work.
func (uc *LedgerUseCase) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	start := uc.now()

	result, err := uc.transfer(ctx, input)

	uc.observe(OpTransfer, err).
		Str("from_iban", input.FromIBAN).
		Str("to_iban", input.ToIBAN).
		Str("amount", input.Amount.String()).
		Str("currency", input.Currency).
		Msg("transfer")
	if err != nil {
		return nil, err
	}

	amount, _ := input.Amount.Float64()
	uc.metrics.TransferCompleted(input.Currency, amount, uc.now().Sub(start))
	uc.notifyPair(ctx, result)
	return result, nil
}

func (uc *LedgerUseCase) transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateCurrency(input.Currency); err != nil {
		return nil, err
	}

	from := domain.CompactIBAN(input.FromIBAN)
	to := domain.CompactIBAN(input.ToIBAN)
	if !domain.IsValidIBAN(from) || !domain.IsValidIBAN(to) {
		return nil, fmt.Errorf("%w: %q -> %q", domain.ErrInvalidIBAN, input.FromIBAN, input.ToIBAN)
	}
	if from == to {
		return nil, domain.ErrSameAccount
	}

	return uc.move(ctx, movement{
		kind:           domain.TransferKindTransfer,
		fromIBAN:       from,
		toIBAN:         to,
		amount:         input.Amount,
		currency:       input.Currency,
		creditAmount:   input.Amount,
		creditCurrency: input.Currency,
		rate:           decimal.NewFromInt(1),
		debitKind:      domain.EntryKindTransferDebit,
		creditKind:     domain.EntryKindTransferCredit,
	})
}

// move runs m as one unit of work, retried on transient conflicts.
func (uc *LedgerUseCase) move(ctx context.Context, m movement) (*TransferResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *TransferResult
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		result, err = uc.moveOnce(ctx, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *LedgerUseCase) moveOnce(ctx context.Context, m movement) (*TransferResult, error) {
	txCtx, cancel := txContext(ctx)
	defer cancel()

	tx, err := uc.txManager.Begin(txCtx)
	if err != nil {
		return nil, persistenceErr("begin", err)
	}
	defer rollback(txCtx, tx)

	// Lock in ascending IBAN order so concurrent opposite transfers cannot deadlock.
	ibans := []string{m.fromIBAN, m.toIBAN}
	sort.Strings(ibans)

	accounts, err := uc.accountRepo.GetByIBANsForUpdate(txCtx, tx, ibans)
	if err != nil {
		return nil, persistenceErr("lock accounts", err)
	}

	byIBAN := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byIBAN[a.IBAN] = a
	}
	source, dest := byIBAN[m.fromIBAN], byIBAN[m.toIBAN]
	if source == nil || dest == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidIBAN, domain.ErrAccountNotFound)
	}

	if source.Currency != m.currency || dest.Currency != m.creditCurrency {
		return nil, fmt.Errorf("%w: %s -> %s for %s", domain.ErrCurrencyMismatch, source.Currency, dest.Currency, m.currency)
	}

	if err := source.ValidateDebit(m.amount); err != nil {
		return nil, err
	}

	now := uc.now()
	transfer := &domain.Transfer{
		ID:             uc.idGen.Generate(),
		Kind:           m.kind,
		FromAccountID:  source.ID,
		ToAccountID:    dest.ID,
		FromIBAN:       source.IBAN,
		ToIBAN:         dest.IBAN,
		Amount:         m.amount,
		Currency:       m.currency,
		CreditAmount:   m.creditAmount,
		CreditCurrency: m.creditCurrency,
		Rate:           m.rate,
		CreatedAt:      now,
	}
	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	if err := uc.transferRepo.Create(txCtx, tx, transfer); err != nil {
		return nil, persistenceErr("create transfer", err)
	}

	debit := domain.NewEntry(uc.idGen.Generate(), transfer.ID, m.debitKind, source, m.amount.Neg(), now)
	credit := domain.NewEntry(uc.idGen.Generate(), transfer.ID, m.creditKind, dest, m.creditAmount, now)

	for _, e := range []*domain.Entry{debit, credit} {
		if err := uc.entryRepo.Create(txCtx, tx, e); err != nil {
			return nil, persistenceErr("create entry", err)
		}
	}

	fromAfter := applyEntry(source, debit)
	toAfter := applyEntry(dest, credit)

	for _, a := range []*domain.Account{fromAfter, toAfter} {
		if err := uc.accountRepo.UpdateBalance(txCtx, tx, a.ID, a.Balance, a.Version, now); err != nil {
			return nil, persistenceErr("update balance", err)
		}
	}

	if err := tx.Commit(txCtx); err != nil {
		return nil, persistenceErr("commit", err)
	}

	return &TransferResult{Transfer: transfer, From: fromAfter, To: toAfter}, nil
}

func (uc *LedgerUseCase) notifyPair(ctx context.Context, result *TransferResult) {
	uc.sink.BalanceChanged(ctx, domain.NewBalanceChangedEvent(result.From))
	uc.sink.BalanceChanged(ctx, domain.NewBalanceChangedEvent(result.To))
}
