package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/nexgen/bankledger/internal/domain"
)

type noRetry struct{}

func (noRetry) Retry(_ context.Context, operation func() error) error { return operation() }

type noopMetrics struct{}

func (noopMetrics) LedgerOperation(string, string)                  {}
func (noopMetrics) TransferCompleted(string, float64, time.Duration) {}
func (noopMetrics) AccountCreated(string)                           {}
func (noopMetrics) AccountNumberCollision()                         {}

type noopSink struct{}

func (noopSink) BalanceChanged(context.Context, domain.BalanceChangedEvent) {}
func (noopSink) Withdrawal(context.Context, domain.WithdrawalEvent)         {}

// outcomeOf maps an operation error to its metrics label.
func outcomeOf(err error) string {
	switch domain.KindOf(err) {
	case "":
		return OutcomeCommitted
	case domain.KindPersistenceFailure, domain.KindUnknown:
		return OutcomeFailed
	default:
		return OutcomeRejected
	}
}

// persistenceErr tags storage errors that are not already domain errors.
func persistenceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if k := domain.KindOf(err); k != domain.KindUnknown {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrPersistenceFailure, op, err)
}

// txContext detaches the unit of work from caller cancellation and bounds it
// by the transaction timeout.
func txContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), DefaultTransactionTimeout)
}

// rollback ignores the error returned after a successful commit.
func rollback(ctx context.Context, tx Transaction) {
	_ = tx.Rollback(ctx)
}
