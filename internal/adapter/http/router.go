package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/nexgen/bankledger/internal/adapter/http/handler"
	"github.com/nexgen/bankledger/internal/adapter/http/middleware"
	"github.com/nexgen/bankledger/internal/infrastructure/metrics"
	"github.com/nexgen/bankledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	UserHandler     *handler.UserHandler
	AccountHandler  *handler.AccountHandler
	TransferHandler *handler.TransferHandler
	EntryHandler    *handler.EntryHandler
	LedgerHandler   *handler.LedgerHandler
	IBANHandler     *handler.IBANHandler
	HealthHandler   *handler.HealthHandler

	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	// Optional
	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger).Wrap)
		}

		// Users
		r.Route("/users", func(r chi.Router) {
			r.Post("/", cfg.UserHandler.Register)
			r.Get("/{id}", cfg.UserHandler.Get)
			r.Get("/{id}/accounts", cfg.AccountHandler.ListByUser)
		})

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/iban/{iban}", cfg.AccountHandler.GetByIBAN)
			r.Get("/{number}", cfg.AccountHandler.Get)
			r.Post("/{number}/deposit", cfg.AccountHandler.Deposit)
			r.Post("/{number}/withdraw", cfg.AccountHandler.Withdraw)
			r.Get("/{number}/entries", cfg.EntryHandler.ListByAccount)
			r.Get("/{number}/balance/history", cfg.EntryHandler.HistoricalBalance)
			r.Get("/{number}/reconciliation", cfg.LedgerHandler.ReconcileAccount)
		})

		// Transfers
		r.Route("/transfers", func(r chi.Router) {
			r.Post("/", cfg.TransferHandler.Create)
			r.Get("/{id}", cfg.EntryHandler.GetTransfer)
			r.Get("/{id}/entries", cfg.EntryHandler.ListByTransfer)
		})

		r.Post("/conversions", cfg.TransferHandler.Convert)

		// IBAN codec
		r.Post("/ibans", cfg.IBANHandler.Generate)
		r.Get("/ibans/{iban}", cfg.IBANHandler.Validate)

		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)
	})

	return r
}
