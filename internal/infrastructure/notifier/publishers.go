package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nexgen/bankledger/internal/domain"
)

// LogPublisher is a simple publisher that logs events.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	p.logger.Info().
		Str("event_type", event.Type).
		Str("key", event.Key).
		RawJSON("payload", payload).
		Msg("notification")

	return nil
}

// RedisPublisher publishes events as JSON on Redis pub/sub channels.
// Balance changes go to <prefix>:balance:<accountID>, withdrawals to
// <prefix>:withdrawal.
type RedisPublisher struct {
	client redis.Cmdable
	prefix string
}

// NewRedisPublisher creates a new RedisPublisher.
func NewRedisPublisher(client redis.Cmdable, prefix string) *RedisPublisher {
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel for event.
func (p *RedisPublisher) Channel(event Event) string {
	switch event.Type {
	case domain.EventTypeBalanceChanged:
		return fmt.Sprintf("%s:balance:%s", p.prefix, event.Key)
	case domain.EventTypeWithdrawal:
		return p.prefix + ":withdrawal"
	default:
		return p.prefix + ":" + event.Type
	}
}

// Publish sends the event payload to its channel.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}

	return p.client.Publish(ctx, p.Channel(event), payload).Err()
}

// MultiPublisher fans an event out to every publisher and joins their errors.
type MultiPublisher []Publisher

// Publish implements Publisher.
func (m MultiPublisher) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
