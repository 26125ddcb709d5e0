package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/nexgen/bankledger/internal/adapter/http"
	"github.com/nexgen/bankledger/internal/adapter/http/handler"
	"github.com/nexgen/bankledger/internal/adapter/http/middleware"
	"github.com/nexgen/bankledger/internal/adapter/repository/memory"
	postgresRepo "github.com/nexgen/bankledger/internal/adapter/repository/postgres"
	redisRepo "github.com/nexgen/bankledger/internal/adapter/repository/redis"
	"github.com/nexgen/bankledger/internal/infrastructure/config"
	"github.com/nexgen/bankledger/internal/infrastructure/logger"
	"github.com/nexgen/bankledger/internal/infrastructure/metrics"
	"github.com/nexgen/bankledger/internal/infrastructure/notifier"
	"github.com/nexgen/bankledger/internal/infrastructure/postgres"
	"github.com/nexgen/bankledger/internal/infrastructure/rates"
	"github.com/nexgen/bankledger/internal/infrastructure/redis"
	"github.com/nexgen/bankledger/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.close()

	lis, err := net.Listen("tcp", ":"+cfg.HTTPPort)
	if err != nil {
		return fmt.Errorf("listen on port %s: %w", cfg.HTTPPort, err)
	}
	return a.serve(ctx, lis)
}

// storage is the set of repositories behind the use cases.
type storage struct {
	txManager usecase.TransactionManager
	accounts  usecase.AccountRepository
	users     usecase.UserRepository
	transfers usecase.TransferRepository
	entries   usecase.EntryRepository
	ledger    usecase.LedgerRepository
	retrier   usecase.Retrier
	checks    map[string]handler.Check
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log zerolog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.StorageMemory {
		log.Warn().Msg("using in-memory storage; data is lost on restart")
		s := memory.New()
		return &storage{
			txManager: memory.NewTxManager(s),
			accounts:  memory.NewAccountRepository(s),
			users:     memory.NewUserRepository(s),
			transfers: memory.NewTransferRepository(s),
			entries:   memory.NewEntryRepository(s),
			ledger:    memory.NewLedgerRepository(s),
			checks:    map[string]handler.Check{},
			close:     func() {},
		}, nil
	}

	if cfg.RunMigrations {
		if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL:    cfg.DatabaseURL,
		MaxConns:       cfg.DatabaseMaxConns,
		MinConns:       cfg.DatabaseMinConns,
		ConnectTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	log.Info().Msg("connected to postgres")

	return &storage{
		txManager: postgresRepo.NewTxManager(pool),
		accounts:  postgresRepo.NewAccountRepository(pool),
		users:     postgresRepo.NewUserRepository(pool),
		transfers: postgresRepo.NewTransferRepository(pool),
		entries:   postgresRepo.NewEntryRepository(pool),
		ledger:    postgresRepo.NewLedgerRepository(pool),
		retrier: postgresRepo.NewRetrier(postgresRepo.RetryConfig{
			MaxRetries:      cfg.DBRetryMax,
			InitialInterval: cfg.DBRetryInitial,
			MaxElapsed:      cfg.DBRetryMaxElapsed,
		}, m, log),
		checks:    map[string]handler.Check{"postgres": pool.Ping},
		close:     pool.Close,
	}, nil
}

// newRateProvider picks the rate source: the static table when no API is
// configured, otherwise the HTTP API, behind the Redis cache when available.
func newRateProvider(cfg *config.Config, client goredis.Cmdable, m *metrics.Metrics, log zerolog.Logger) usecase.RateProvider {
	if cfg.RatesAPIURL == "" {
		return rates.NewStaticProvider(rates.DefaultRates())
	}

	var provider usecase.RateProvider = rates.NewHTTPProvider(cfg.RatesAPIURL, cfg.RatesTimeout)
	if client != nil {
		provider = rates.NewCachedProvider(provider, redisRepo.NewCache(client), cfg.RatesCacheTTL, m, log)
	}
	return provider
}

type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	handler    http.Handler
	dispatcher *notifier.Dispatcher
	limiter    *middleware.RateLimiter
	closers    []func()
}

func buildApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store, err := openStorage(ctx, cfg, m, log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.close)

	var redisClient *goredis.Client
	if cfg.RedisEnabled {
		redisClient, err = redis.NewClient(ctx, redis.ClientConfig{URL: cfg.RedisURL, DialTimeout: 5 * time.Second})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = redisClient.Close() })
		store.checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		log.Info().Msg("connected to redis")
	}

	publishers := notifier.MultiPublisher{notifier.NewLogPublisher(log)}
	var idempotency usecase.IdempotencyStore
	var rateClient goredis.Cmdable
	if redisClient != nil {
		publishers = append(publishers, notifier.NewRedisPublisher(redisClient, cfg.NotifyChannelPrefix))
		idempotency = redisRepo.NewIdempotencyStore(redisClient)
		rateClient = redisClient
	}
	a.dispatcher = notifier.NewDispatcher(notifier.Config{
		Publisher:  publishers,
		Logger:     log,
		Recorder:   m,
		BufferSize: cfg.NotifyBufferSize,
	})

	idGen := postgresRepo.NewULIDGenerator()

	accountUC := usecase.NewAccountUseCase(
		store.txManager, store.accounts, store.users, store.entries, idGen,
		usecase.NewRandomAccountNumbers(""), m, log,
		usecase.AccountOptions{NumberAttempts: cfg.AccountNumberAttempts, DefaultCurrency: cfg.DefaultCurrency},
	)
	ledgerUC := usecase.NewLedgerUseCase(
		store.txManager, store.accounts, store.users, store.transfers, store.entries, idGen,
		store.retrier, a.dispatcher, m, log,
	)
	userUC := usecase.NewUserUseCase(store.users, accountUC, idGen, log)
	conversionUC := usecase.NewConversionUseCase(ledgerUC, accountUC, newRateProvider(cfg, rateClient, m, log))
	entryUC := usecase.NewEntryUseCase(store.accounts, store.entries, store.transfers)
	reconciliationUC := usecase.NewReconciliationUseCase(store.accounts, store.entries, store.ledger)

	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m.RateLimitHits)
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		UserHandler:      handler.NewUserHandler(userUC),
		AccountHandler:   handler.NewAccountHandler(accountUC, ledgerUC),
		TransferHandler:  handler.NewTransferHandler(ledgerUC, conversionUC),
		EntryHandler:     handler.NewEntryHandler(entryUC),
		LedgerHandler:    handler.NewLedgerHandler(reconciliationUC),
		IBANHandler:      handler.NewIBANHandler(),
		HealthHandler:    handler.NewHealthHandler(store.checks),
		Logger:           log,
		Metrics:          m,
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		IdempotencyStore: idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      a.limiter,
	})

	return a, nil
}

// close releases connections in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// serve runs the HTTP server and the notification worker on lis until ctx
// is cancelled.
func (a *app) serve(ctx context.Context, lis net.Listener) error {
	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer stopWorker()
	go func() {
		if err := a.dispatcher.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			a.log.Error().Err(err).Msg("notification worker stopped")
		}
	}()

	if a.limiter != nil {
		go a.cleanupLimiters(ctx)
	}

	server := &http.Server{
		Handler:      a.handler,
		ReadTimeout:  a.cfg.HTTPReadTimeout,
		WriteTimeout: a.cfg.HTTPWriteTimeout,
		IdleTimeout:  a.cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", lis.Addr().String()).Str("storage", a.cfg.StorageDriver).Msg("starting server")
		if err := server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Requests are done; flush queued notifications before exiting.
	if err := a.dispatcher.Close(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("notifications not fully delivered")
	}

	a.log.Info().Msg("server stopped")
	return nil
}

func (a *app) cleanupLimiters(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.CleanupLimiters(time.Hour)
		}
	}
}
