package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/domain"
	"github.com/nexgen/bankledger/internal/infrastructure/postgres/generated"
	"github.com/nexgen/bankledger/internal/usecase"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
	pgForeignKey      = "23503"
)

// queriesFor binds generated queries to the pgx transaction behind tx.
func queriesFor(tx usecase.Transaction) *generated.Queries {
	return generated.New(tx.(*Tx).PgxTx())
}

// mapError translates driver errors into domain errors. notFound is
// returned for pgx.ErrNoRows.
func mapError(err, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, pgErr.ConstraintName)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", domain.ErrInsufficientFunds, pgErr.ConstraintName)
		case pgForeignKey:
			return fmt.Errorf("%w: %s", domain.ErrUserNotFound, pgErr.ConstraintName)
		}
	}

	return err
}

func rowToAccount(row generated.Account) *domain.Account {
	return &domain.Account{
		ID:            row.ID,
		AccountNumber: row.AccountNumber,
		IBAN:          row.Iban,
		UserID:        row.UserID,
		Currency:      row.Currency,
		Balance:       numericToDecimal(row.Balance),
		Version:       row.Version,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func rowsToAccounts(rows []generated.Account) []*domain.Account {
	accounts := make([]*domain.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, rowToAccount(row))
	}

	return accounts
}

func rowToEntry(row generated.Entry) *domain.Entry {
	return &domain.Entry{
		ID:                     row.ID,
		AccountID:              row.AccountID,
		ReferenceID:            row.ReferenceID,
		Kind:                   domain.EntryKind(row.Kind),
		Amount:                 numericToDecimal(row.Amount),
		AccountPreviousBalance: numericToDecimal(row.AccountPreviousBalance),
		AccountCurrentBalance:  numericToDecimal(row.AccountCurrentBalance),
		AccountVersion:         row.AccountVersion,
		CreatedAt:              row.CreatedAt.Time,
	}
}

func rowToTransfer(row generated.Transfer) *domain.Transfer {
	return &domain.Transfer{
		ID:             row.ID,
		Kind:           domain.TransferKind(row.Kind),
		FromAccountID:  row.FromAccountID,
		ToAccountID:    row.ToAccountID,
		FromIBAN:       row.FromIban,
		ToIBAN:         row.ToIban,
		Amount:         numericToDecimal(row.Amount),
		Currency:       row.Currency,
		CreditAmount:   numericToDecimal(row.CreditAmount),
		CreditCurrency: row.CreditCurrency,
		Rate:           numericToDecimal(row.Rate),
		CreatedAt:      row.CreatedAt.Time,
	}
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
