package rates

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nexgen/bankledger/internal/usecase"
)

// Recorder counts lookups by source. *metrics.Metrics satisfies it.
type Recorder interface {
	RateLookup(source string, err error)
}

// CachedProvider keeps rates from next in a usecase.Cache for ttl. Cache
// failures fall through to next.
type CachedProvider struct {
	next     usecase.RateProvider
	cache    usecase.Cache
	ttl      time.Duration
	recorder Recorder
	logger   zerolog.Logger
}

// NewCachedProvider creates a new CachedProvider. recorder may be nil.
func NewCachedProvider(next usecase.RateProvider, cache usecase.Cache, ttl time.Duration, recorder Recorder, logger zerolog.Logger) *CachedProvider {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &CachedProvider{
		next:     next,
		cache:    cache,
		ttl:      ttl,
		recorder: recorder,
		logger:   logger.With().Str("component", "rates").Logger(),
	}
}

// Rate implements usecase.RateProvider.
func (p *CachedProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	key := cacheKey(from, to)

	raw, err := p.cache.Get(ctx, key)
	switch {
	case err == nil:
		if rate, perr := decimal.NewFromString(string(raw)); perr == nil {
			p.recorder.RateLookup("cache", nil)
			return rate, nil
		}
		p.logger.Warn().Str("key", key).Msg("discarding unparsable cached rate")
	case !errors.Is(err, usecase.ErrCacheMiss):
		p.logger.Warn().Err(err).Str("key", key).Msg("rate cache read failed")
	}

	rate, err := p.next.Rate(ctx, from, to)
	p.recorder.RateLookup("upstream", err)
	if err != nil {
		return decimal.Zero, err
	}

	if err := p.cache.Set(ctx, key, []byte(rate.String()), p.ttl); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("rate cache write failed")
	}

	return rate, nil
}

func cacheKey(from, to string) string {
	return "rate:" + from + ":" + to
}

type nopRecorder struct{}

func (nopRecorder) RateLookup(string, error) {}
