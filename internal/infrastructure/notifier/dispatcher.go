package notifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexgen/bankledger/internal/domain"
)

const defaultPublishTimeout = 5 * time.Second

// Event is a committed ledger notification on its way to a Publisher.
type Event struct {
	Type string
	// Key identifies the subject, the account ID for balance changes.
	Key        string
	Payload    any
	OccurredAt time.Time
}

// Publisher defines the interface for publishing events to external systems.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder receives delivery outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	NotificationPublished(eventType string, err error)
	NotificationDropped(eventType string)
}

// Config for Dispatcher.
type Config struct {
	Publisher      Publisher
	Logger         zerolog.Logger
	Recorder       Recorder
	BufferSize     int           // Events held while the worker is busy
	PublishTimeout time.Duration // Per-event publish deadline
}

// Dispatcher implements usecase.NotificationSink. Events are queued without
// blocking the ledger and published by a single worker. A full queue drops
// the event.
type Dispatcher struct {
	publisher Publisher
	logger    zerolog.Logger
	recorder  Recorder
	timeout   time.Duration

	mu      sync.RWMutex
	closed  bool
	events  chan Event
	started atomic.Bool
	done    chan struct{}
}

// NewDispatcher creates a new Dispatcher. Call Start to begin delivery.
func NewDispatcher(cfg Config) *Dispatcher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}

	return &Dispatcher{
		publisher: cfg.Publisher,
		logger:    cfg.Logger.With().Str("component", "notifier").Logger(),
		recorder:  cfg.Recorder,
		timeout:   cfg.PublishTimeout,
		events:    make(chan Event, cfg.BufferSize),
		done:      make(chan struct{}),
	}
}

// BalanceChanged queues a balance update for the account's subscribers.
func (d *Dispatcher) BalanceChanged(_ context.Context, event domain.BalanceChangedEvent) {
	d.enqueue(Event{
		Type:       domain.EventTypeBalanceChanged,
		Key:        event.AccountID,
		Payload:    event,
		OccurredAt: time.Now().UTC(),
	})
}

// Withdrawal queues a withdrawal email request.
func (d *Dispatcher) Withdrawal(_ context.Context, event domain.WithdrawalEvent) {
	d.enqueue(Event{
		Type:       domain.EventTypeWithdrawal,
		Key:        event.AccountNumber,
		Payload:    event,
		OccurredAt: time.Now().UTC(),
	})
}

func (d *Dispatcher) enqueue(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(event, "dispatcher closed")
		return
	}

	select {
	case d.events <- event:
	default:
		d.drop(event, "buffer full")
	}
}

func (d *Dispatcher) drop(event Event, reason string) {
	d.recorder.NotificationDropped(event.Type)
	d.logger.Warn().
		Str("event_type", event.Type).
		Str("key", event.Key).
		Str("reason", reason).
		Msg("notification dropped")
}

// Start delivers queued events until Close is called or ctx is done. Events
// still queued when ctx ends are published before Start returns.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.started.CompareAndSwap(false, true) {
		return nil
	}
	defer close(d.done)

	d.logger.Info().Int("buffer", cap(d.events)).Msg("notifier started")

	for {
		select {
		case event, ok := <-d.events:
			if !ok {
				d.logger.Info().Msg("notifier stopped")
				return nil
			}
			d.publish(ctx, event)
		case <-ctx.Done():
			d.drain(ctx)
			d.logger.Info().Msg("notifier shutting down")
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	for {
		select {
		case event, ok := <-d.events:
			if !ok {
				return
			}
			d.publish(ctx, event)
		default:
			return
		}
	}
}

func (d *Dispatcher) publish(ctx context.Context, event Event) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	err := d.publisher.Publish(pubCtx, event)
	d.recorder.NotificationPublished(event.Type, err)
	if err != nil {
		d.logger.Error().
			Err(err).
			Str("event_type", event.Type).
			Str("key", event.Key).
			Msg("failed to publish notification")
	}
}

// Close stops accepting events and waits for the worker to flush the queue.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	// Never started: flush on the caller's goroutine.
	if d.started.CompareAndSwap(false, true) {
		d.drain(ctx)
		close(d.done)
		return nil
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type nopRecorder struct{}

func (nopRecorder) NotificationPublished(string, error) {}
func (nopRecorder) NotificationDropped(string)          {}
