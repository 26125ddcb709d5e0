package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bankledger"

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	LedgerOperations *prometheus.CounterVec
	TransferDuration prometheus.Histogram
	TransferAmount   *prometheus.HistogramVec

	// Account metrics
	AccountsCreated         *prometheus.CounterVec
	AccountNumberCollisions prometheus.Counter
	DatabaseRetries         *prometheus.CounterVec

	// Notification metrics
	NotificationsPublished *prometheus.CounterVec
	NotificationsDropped   *prometheus.CounterVec

	// Exchange rate metrics
	RateLookups *prometheus.CounterVec

	// API metrics
	HTTPRequests  *prometheus.CounterVec
	HTTPDuration  *prometheus.HistogramVec
	HTTPInFlight  prometheus.Gauge
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		LedgerOperations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ledger_operations_total",
				Help:      "Ledger operations by type and outcome",
			},
			[]string{"operation", "outcome"},
		),
		TransferDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transfer_duration_seconds",
			Help:      "Duration of committed transfers",
			Buckets:   prometheus.DefBuckets,
		}),
		TransferAmount: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transfer_amount",
				Help:      "Committed transfer amounts",
				Buckets:   []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"currency"},
		),

		AccountsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "accounts_created_total",
				Help:      "Accounts opened by currency",
			},
			[]string{"currency"},
		),
		AccountNumberCollisions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_number_collisions_total",
			Help:      "Generated account numbers that were already taken",
		}),
		DatabaseRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "database_retries_total",
				Help:      "Units of work retried after a deadlock or serialization failure",
			},
			[]string{"sqlstate"},
		),

		NotificationsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_published_total",
				Help:      "Notifications handed to a publisher by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		NotificationsDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_dropped_total",
				Help:      "Notifications dropped because the buffer was full",
			},
			[]string{"type"},
		),

		RateLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_lookups_total",
				Help:      "Exchange rate lookups by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		}),
		RateLimitHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}
}

// LedgerOperation implements usecase.Metrics.
func (m *Metrics) LedgerOperation(operation, outcome string) {
	m.LedgerOperations.WithLabelValues(operation, outcome).Inc()
}

// TransferCompleted implements usecase.Metrics.
func (m *Metrics) TransferCompleted(currency string, amount float64, duration time.Duration) {
	m.TransferAmount.WithLabelValues(currency).Observe(amount)
	m.TransferDuration.Observe(duration.Seconds())
}

// AccountCreated implements usecase.Metrics.
func (m *Metrics) AccountCreated(currency string) {
	m.AccountsCreated.WithLabelValues(currency).Inc()
}

// AccountNumberCollision implements usecase.Metrics.
func (m *Metrics) AccountNumberCollision() {
	m.AccountNumberCollisions.Inc()
}

// DatabaseRetry implements postgres.RetryRecorder.
func (m *Metrics) DatabaseRetry(code string) {
	m.DatabaseRetries.WithLabelValues(code).Inc()
}

// NotificationPublished counts a publish attempt.
func (m *Metrics) NotificationPublished(eventType string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.NotificationsPublished.WithLabelValues(eventType, outcome).Inc()
}

// NotificationDropped counts an event lost to a full buffer.
func (m *Metrics) NotificationDropped(eventType string) {
	m.NotificationsDropped.WithLabelValues(eventType).Inc()
}

// RateLookup counts an exchange rate lookup.
func (m *Metrics) RateLookup(source string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RateLookups.WithLabelValues(source, outcome).Inc()
}
