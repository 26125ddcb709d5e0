package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLSTATE codes a ledger unit of work may safely run again.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
)

// RetryConfig bounds the backoff applied to deadlocked or serialization-failed
// units of work. Zero fields take the defaults of DefaultRetryConfig.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// MaxElapsed should not exceed the per-operation transaction timeout.
	MaxElapsed time.Duration
}

// DefaultRetryConfig returns the settings used when none are configured.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 50 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsed:      10 * time.Second,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.InitialInterval <= 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.MaxElapsed <= 0 {
		c.MaxElapsed = d.MaxElapsed
	}
	return c
}

// RetryRecorder is told about every retried attempt. *metrics.Metrics satisfies it.
type RetryRecorder interface {
	DatabaseRetry(code string)
}

// Retrier implements usecase.Retrier on top of cenkalti/backoff.
type Retrier struct {
	cfg      RetryConfig
	recorder RetryRecorder
	logger   zerolog.Logger
}

// NewRetrier creates a Retrier. recorder may be nil.
func NewRetrier(cfg RetryConfig, recorder RetryRecorder, logger zerolog.Logger) *Retrier {
	return &Retrier{
		cfg:      cfg.withDefaults(),
		recorder: recorder,
		logger:   logger.With().Str("component", "retrier").Logger(),
	}
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// configured attempts or elapsed time run out. The last error is returned.
func (r *Retrier) Retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = r.cfg.MaxElapsed

	var policy backoff.BackOff = backoff.WithMaxRetries(b, uint64(r.cfg.MaxRetries))
	policy = backoff.WithContext(policy, ctx)

	notify := func(err error, wait time.Duration) {
		code := retryCode(err)
		if r.recorder != nil {
			r.recorder.DatabaseRetry(code)
		}
		r.logger.Warn().
			Err(err).
			Str("sqlstate", code).
			Dur("backoff", wait).
			Msg("retrying unit of work")
	}

	return backoff.RetryNotify(func() error {
		err := op()
		if err != nil && retryCode(err) == "" {
			return backoff.Permanent(err)
		}
		return err
	}, policy, notify)
}

// retryCode returns the SQLSTATE of a retryable error, or "" when err must
// not be retried.
func retryCode(err error) string {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return ""
	}
	switch pgErr.Code {
	case pgErrDeadlock, pgErrSerializationFailure:
		return pgErr.Code
	}
	return ""
}
