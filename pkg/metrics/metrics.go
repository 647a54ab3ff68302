package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RelayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total number of webhook notifications processed, by terminal stage (count)",
		},
		[]string{"stage"},
	)

	RelayProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_processing_duration_ms",
			Help:    "End-to-end pipeline processing duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"stage"},
	)

	RelayValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_validations_total",
			Help: "Total number of validation decisions, by individual check results (count)",
		},
		[]string{"status_pass", "moved_pass"},
	)

	CRMLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_lookups_total",
			Help: "Total number of CRM lead lookups (count)",
		},
		[]string{"status"},
	)

	CRMLookupDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_lookup_duration_ms",
			Help:    "Duration of CRM lead lookups in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	ForwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "downstream_forwards_total",
			Help: "Total number of downstream webhook forwards (count)",
		},
		[]string{"status"},
	)

	ForwardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "downstream_forward_duration_ms",
			Help:    "Duration of downstream webhook forwards in milliseconds",
			Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"status"},
	)

	UnparseableTimestampsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_unparseable_timestamps_total",
			Help: "Total number of moved-time values that could not be parsed (count)",
		},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)

	AuditEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Total number of decision audit events published (count)",
		},
		[]string{"status"},
	)

	AuditPublishDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "audit_publish_duration_ms",
			Help:    "Duration of audit event publishes in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"component"},
	)
)

func RegisterRelayMetrics() {
	prometheus.MustRegister(RelayRequestsTotal)
	prometheus.MustRegister(RelayProcessingDuration)
	prometheus.MustRegister(RelayValidationsTotal)
	prometheus.MustRegister(CRMLookupsTotal)
	prometheus.MustRegister(CRMLookupDuration)
	prometheus.MustRegister(ForwardsTotal)
	prometheus.MustRegister(ForwardDuration)
	prometheus.MustRegister(UnparseableTimestampsTotal)
}

func RegisterCircuitBreakerMetrics() {
	prometheus.MustRegister(CircuitBreakerState)
	prometheus.MustRegister(CircuitBreakerRequests)
	prometheus.MustRegister(CircuitBreakerFailures)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func RegisterAuditMetrics() {
	prometheus.MustRegister(AuditEventsTotal)
	prometheus.MustRegister(AuditPublishDuration)
	prometheus.MustRegister(RetryAttemptsTotal)
}

func ObserveRelayDuration(duration time.Duration, stage string) {
	RelayProcessingDuration.WithLabelValues(stage).Observe(float64(duration.Milliseconds()))
}

func ObserveCRMLookupDuration(duration time.Duration, status string) {
	CRMLookupDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveForwardDuration(duration time.Duration, status string) {
	ForwardDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncValidationDecision(statusPass, movedPass bool) {
	RelayValidationsTotal.WithLabelValues(boolLabel(statusPass), boolLabel(movedPass)).Inc()
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
