package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultCurrency is used for the account opened at registration.
	DefaultCurrency = "EUR"

	// DefaultAccountNumberAttempts bounds retries on generated number collisions.
	DefaultAccountNumberAttempts = 5

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// Outcome labels for ledger metrics.
const (
	OutcomeCommitted = "committed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Operation labels for ledger metrics.
const (
	OpDeposit    = "deposit"
	OpWithdraw   = "withdraw"
	OpTransfer   = "transfer"
	OpConversion = "conversion"
)
