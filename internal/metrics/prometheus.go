package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// bid outcome labels for bid_requests_total
const (
	BidStatusSuccess     = "success"
	BidStatusNoBid       = "no_bid"
	BidStatusInvalid     = "invalid"
	BidStatusBudgetError = "budget_error"
	BidStatusError       = "error"
)

// Metrics holds all the Prometheus metrics for our service. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Request counters
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight *prometheus.GaugeVec

	// Bidding metrics
	BidRequestsTotal    *prometheus.CounterVec
	BidLatency          prometheus.Histogram
	AdClicksTotal       *prometheus.CounterVec
	MissedOpportunities *prometheus.CounterVec
	BudgetDeductions    *prometheus.CounterVec
	BudgetResets        prometheus.Counter

	// Storage metrics
	CacheOperations *prometheus.CounterVec
	DatabaseQueries *prometheus.CounterVec
	DatabaseErrors  *prometheus.CounterVec

	// Health check metrics
	HealthCheckStatus *prometheus.GaugeVec
}

// NewPrometheusMetrics creates all metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in
// tests.
func NewPrometheusMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	metrics := &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidengine_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bidengine_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bidengine_http_requests_in_flight",
				Help: "Current number of HTTP requests being processed",
			},
			[]string{"method", "endpoint"},
		),

		BidRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bid_requests_total",
				Help: "Total bid requests received",
			},
			[]string{"status"},
		),

		// the SLO is p95 < 50ms, so resolution is concentrated below 100ms
		BidLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bid_latency_seconds",
				Help:    "Bid processing latency in seconds",
				Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.02, 0.03, 0.04, 0.05, 0.075, 0.1, 0.25, 0.5, 1},
			},
		),

		AdClicksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ad_clicks_total",
				Help: "Total ad clicks",
			},
			[]string{"campaign", "ad"},
		),

		MissedOpportunities: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidengine_missed_opportunities_total",
				Help: "Auctions won by a campaign that had no ads to serve",
			},
			[]string{"campaign"},
		),

		BudgetDeductions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidengine_budget_deductions_total",
				Help: "Budget deductions by result",
			},
			[]string{"result"},
		),

		BudgetResets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "bidengine_budget_resets_total",
				Help: "Completed daily budget resets",
			},
		),

		CacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidengine_cache_operations_total",
				Help: "Campaign cache operations by result",
			},
			[]string{"op", "result"},
		),

		DatabaseQueries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidengine_database_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"operation", "table"},
		),

		DatabaseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bidengine_database_errors_total",
				Help: "Total number of database errors",
			},
			[]string{"operation", "error_type"},
		),

		HealthCheckStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "bidengine_health_check_status",
				Help: "Health check status (1 = healthy, 0 = unhealthy)",
			},
			[]string{"check_type"},
		),
	}

	return metrics
}

// RecordHTTPRequest records an HTTP request with its duration and status
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// IncRequestsInFlight increments the in-flight requests counter
func (m *Metrics) IncRequestsInFlight(method, endpoint string) {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// DecRequestsInFlight decrements the in-flight requests counter
func (m *Metrics) DecRequestsInFlight(method, endpoint string) {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordBidRequest counts one bid request by outcome and observes its latency
func (m *Metrics) RecordBidRequest(status string, seconds float64) {
	if m == nil {
		return
	}
	m.BidRequestsTotal.WithLabelValues(status).Inc()
	m.BidLatency.Observe(seconds)
}

// RecordClick counts an ad click
func (m *Metrics) RecordClick(campaign, ad string) {
	if m == nil {
		return
	}
	m.AdClicksTotal.WithLabelValues(campaign, ad).Inc()
}

// RecordMissedOpportunity counts a winning campaign that had nothing to serve
func (m *Metrics) RecordMissedOpportunity(campaign string) {
	if m == nil {
		return
	}
	m.MissedOpportunities.WithLabelValues(campaign).Inc()
}

// RecordBudgetDeduction counts a deduction attempt by result
// (committed, exceeded, error)
func (m *Metrics) RecordBudgetDeduction(result string) {
	if m == nil {
		return
	}
	m.BudgetDeductions.WithLabelValues(result).Inc()
}

// RecordBudgetReset counts a completed daily reset
func (m *Metrics) RecordBudgetReset() {
	if m == nil {
		return
	}
	m.BudgetResets.Inc()
}

// RecordCacheOperation counts a cache operation (get, set, delete) by result
func (m *Metrics) RecordCacheOperation(op, result string) {
	if m == nil {
		return
	}
	m.CacheOperations.WithLabelValues(op, result).Inc()
}

// RecordDatabaseQuery records a database query
func (m *Metrics) RecordDatabaseQuery(operation, table string) {
	if m == nil {
		return
	}
	m.DatabaseQueries.WithLabelValues(operation, table).Inc()
}

// RecordDatabaseError records a database error
func (m *Metrics) RecordDatabaseError(operation, errorType string) {
	if m == nil {
		return
	}
	m.DatabaseErrors.WithLabelValues(operation, errorType).Inc()
}

// SetHealthCheckStatus sets the health check status
func (m *Metrics) SetHealthCheckStatus(checkType string, healthy bool) {
	if m == nil {
		return
	}
	status := 0.0
	if healthy {
		status = 1.0
	}
	m.HealthCheckStatus.WithLabelValues(checkType).Set(status)
}
