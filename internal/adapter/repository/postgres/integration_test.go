package postgres_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexgen/bankledger/internal/adapter/repository/postgres"
	"github.com/nexgen/bankledger/internal/domain"
	infrapg "github.com/nexgen/bankledger/internal/infrastructure/postgres"
	"github.com/nexgen/bankledger/internal/usecase"
)

const migrationsPath = "../../../infrastructure/postgres/migrations"

type stack struct {
	pool      *pgxpool.Pool
	users     *usecase.UserUseCase
	accounts  *usecase.AccountUseCase
	ledger    *usecase.LedgerUseCase
	reconcile *usecase.ReconciliationUseCase
}

// newStack connects to DATABASE_URL, migrates and truncates the schema.
func newStack(t *testing.T) *stack {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	require.NoError(t, infrapg.RunMigrations(dbURL, migrationsPath, zerolog.Nop()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := infrapg.NewPoolWithConfig(ctx, infrapg.PoolConfig{DatabaseURL: dbURL, MaxConns: 10})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE TABLE entries, transfers, accounts, users CASCADE`)
	require.NoError(t, err)

	accountRepo := postgres.NewAccountRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	entryRepo := postgres.NewEntryRepository(pool)
	transferRepo := postgres.NewTransferRepository(pool)
	txManager := postgres.NewTxManager(pool)
	idGen := postgres.NewULIDGenerator()
	logger := zerolog.Nop()

	accounts := usecase.NewAccountUseCase(txManager, accountRepo, userRepo, entryRepo, idGen,
		usecase.NewRandomAccountNumbers("NEX"), nil, logger, usecase.AccountOptions{})

	return &stack{
		pool:     pool,
		users:    usecase.NewUserUseCase(userRepo, accounts, idGen, logger),
		accounts: accounts,
		ledger: usecase.NewLedgerUseCase(txManager, accountRepo, userRepo, transferRepo, entryRepo, idGen,
			postgres.NewRetrier(postgres.DefaultRetryConfig(), nil, logger), nil, nil, logger),
		reconcile: usecase.NewReconciliationUseCase(accountRepo, entryRepo, postgres.NewLedgerRepository(pool)),
	}
}

func (s *stack) register(t *testing.T, email string, deposit string) *domain.Account {
	t.Helper()

	reg, err := s.users.RegisterUser(context.Background(), usecase.RegisterUserInput{Email: email, Name: "Test User"})
	require.NoError(t, err)

	if deposit != "" {
		_, err = s.ledger.DepositFunds(context.Background(), reg.Account.AccountNumber, decimal.RequireFromString(deposit))
		require.NoError(t, err)
	}

	return reg.Account
}

func TestIntegrationTransferByIBAN(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	from := s.register(t, "alice@example.com", "100.00")
	to := s.register(t, "bob@example.com", "")

	res, err := s.ledger.Transfer(ctx, usecase.TransferInput{
		FromIBAN: domain.FormatIBAN(from.IBAN),
		ToIBAN:   to.IBAN,
		Amount:   decimal.RequireFromString("40.25"),
		Currency: "EUR",
	})
	require.NoError(t, err)
	assert.True(t, res.From.Balance.Equal(decimal.RequireFromString("59.75")))
	assert.True(t, res.To.Balance.Equal(decimal.RequireFromString("40.25")))

	_, err = s.ledger.Transfer(ctx, usecase.TransferInput{
		FromIBAN: to.IBAN,
		ToIBAN:   from.IBAN,
		Amount:   decimal.NewFromInt(1000),
		Currency: "EUR",
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	report, err := s.reconcile.CheckLedgerConsistency(ctx)
	require.NoError(t, err)
	assert.True(t, report.Consistent)
}

func TestIntegrationConcurrentOpposingTransfers(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	a := s.register(t, "a@example.com", "500.00")
	b := s.register(t, "b@example.com", "500.00")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.IBAN, b.IBAN
			if i%2 == 1 {
				from, to = to, from
			}
			_, err := s.ledger.Transfer(ctx, usecase.TransferInput{
				FromIBAN: from, ToIBAN: to, Amount: decimal.NewFromInt(10), Currency: "EUR",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	gotA, err := s.accounts.GetAccount(ctx, a.AccountNumber)
	require.NoError(t, err)
	gotB, err := s.accounts.GetAccount(ctx, b.AccountNumber)
	require.NoError(t, err)

	assert.True(t, gotA.Balance.Add(gotB.Balance).Equal(decimal.NewFromInt(1000)))
	assert.True(t, gotA.Balance.Equal(decimal.NewFromInt(500)))

	for _, acc := range []*domain.Account{gotA, gotB} {
		res, err := s.reconcile.ReconcileAccount(ctx, acc.AccountNumber)
		require.NoError(t, err)
		assert.True(t, res.IsReconciled, "account %s not reconciled", acc.AccountNumber)
	}
}

func TestIntegrationWithdrawNeverOverdraws(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()

	acc := s.register(t, "w@example.com", "50.00")

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.ledger.Withdraw(ctx, acc.AccountNumber, decimal.NewFromInt(10)) {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := s.accounts.GetAccount(ctx, acc.AccountNumber)
	require.NoError(t, err)
	assert.Equal(t, 5, ok)
	assert.True(t, got.Balance.IsZero())
}
