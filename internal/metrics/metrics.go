// Package metrics exposes the ledger's Prometheus counters. Every Record method
// is safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Order intake
	OrdersCreated          prometheus.Counter
	IntakeRejected         *prometheus.CounterVec
	OrderCodeFallbacks     *prometheus.CounterVec
	OrderCodeRetries       prometheus.Counter
	CompensationsRun       prometheus.Counter
	CompensationFailures   prometheus.Counter
	OrderStatusTransitions *prometheus.CounterVec

	// Commission and withdrawals
	CommissionsApplied    prometheus.Counter
	CommissionFailures    prometheus.Counter
	WithdrawalsRequested  prometheus.Counter
	WithdrawalsRejected   *prometheus.CounterVec
	WithdrawalTransitions *prometheus.CounterVec

	// Events
	EventsPublishFailed *prometheus.CounterVec
}

// New creates a new Metrics instance on its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders persisted",
		}),
		IntakeRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_intake_rejected_total",
				Help: "Order submissions rejected before persistence",
			},
			[]string{"reason"},
		),
		OrderCodeFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_code_fallbacks_total",
				Help: "Order codes allocated through the random-suffix fallback",
			},
			[]string{"cause"}, // counter_error, counter_exhausted, no_counter, regenerate
		),
		OrderCodeRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_code_insert_retries_total",
			Help: "Order inserts retried after a duplicate order code",
		}),
		CompensationsRun: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_compensations_total",
			Help: "Compensating order deletes after an item write failure",
		}),
		CompensationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "order_compensation_failures_total",
			Help: "Compensating order deletes that failed",
		}),
		OrderStatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_status_transitions_total",
				Help: "Order status changes by target status",
			},
			[]string{"status"},
		),

		CommissionsApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "commissions_applied_total",
			Help: "Commission snapshots written",
		}),
		CommissionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "commission_failures_total",
			Help: "Commission attributions that failed after a status change",
		}),
		WithdrawalsRequested: factory.NewCounter(prometheus.CounterOpts{
			Name: "withdrawals_requested_total",
			Help: "Withdrawal requests accepted",
		}),
		WithdrawalsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "withdrawals_rejected_total",
				Help: "Withdrawal requests refused by validation",
			},
			[]string{"reason"},
		),
		WithdrawalTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "withdrawal_transitions_total",
				Help: "Withdrawal status changes by target status",
			},
			[]string{"status"},
		),

		EventsPublishFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_publish_failed_total",
				Help: "Domain events that could not be published",
			},
			[]string{"type"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOrderCreated increments the created orders counter.
func (m *Metrics) RecordOrderCreated() {
	if m == nil {
		return
	}
	m.OrdersCreated.Inc()
}

// RecordIntakeRejected counts a rejected submission by error code.
func (m *Metrics) RecordIntakeRejected(reason string) {
	if m == nil {
		return
	}
	m.IntakeRejected.WithLabelValues(reason).Inc()
}

// RecordCodeFallback counts a random-suffix allocation.
func (m *Metrics) RecordCodeFallback(cause string) {
	if m == nil {
		return
	}
	m.OrderCodeFallbacks.WithLabelValues(cause).Inc()
}

// RecordCodeRetry counts an insert retried with a fresh code.
func (m *Metrics) RecordCodeRetry() {
	if m == nil {
		return
	}
	m.OrderCodeRetries.Inc()
}

// RecordCompensation counts a compensating delete and whether it failed.
func (m *Metrics) RecordCompensation(failed bool) {
	if m == nil {
		return
	}
	m.CompensationsRun.Inc()
	if failed {
		m.CompensationFailures.Inc()
	}
}

// RecordOrderTransition counts an order status change.
func (m *Metrics) RecordOrderTransition(status string) {
	if m == nil {
		return
	}
	m.OrderStatusTransitions.WithLabelValues(status).Inc()
}

// RecordCommissionApplied counts a written commission snapshot.
func (m *Metrics) RecordCommissionApplied() {
	if m == nil {
		return
	}
	m.CommissionsApplied.Inc()
}

// RecordCommissionFailure counts a failed attribution.
func (m *Metrics) RecordCommissionFailure() {
	if m == nil {
		return
	}
	m.CommissionFailures.Inc()
}

// RecordWithdrawalRequested counts an accepted withdrawal request.
func (m *Metrics) RecordWithdrawalRequested() {
	if m == nil {
		return
	}
	m.WithdrawalsRequested.Inc()
}

// RecordWithdrawalRejected counts a refused withdrawal request.
func (m *Metrics) RecordWithdrawalRejected(reason string) {
	if m == nil {
		return
	}
	m.WithdrawalsRejected.WithLabelValues(reason).Inc()
}

// RecordWithdrawalTransition counts a withdrawal status change.
func (m *Metrics) RecordWithdrawalTransition(status string) {
	if m == nil {
		return
	}
	m.WithdrawalTransitions.WithLabelValues(status).Inc()
}

// RecordPublishFailure counts an event that could not be published.
func (m *Metrics) RecordPublishFailure(eventType string) {
	if m == nil {
		return
	}
	m.EventsPublishFailed.WithLabelValues(eventType).Inc()
}
