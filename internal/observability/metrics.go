package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks request duration
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "sentinela_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"path", "method", "status"},
	)

	// ActiveConnections tracks active connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sentinela_active_connections",
			Help: "Number of active connections",
		},
	)

	// OTPRequests tracks OTP issuance attempts by outcome and phone region
	OTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinela_otp_requests_total",
			Help: "Number of OTP issuance attempts",
		},
		[]string{"outcome", "region"},
	)

	// OTPVerifications tracks OTP verification attempts by outcome
	OTPVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinela_otp_verifications_total",
			Help: "Number of OTP verification attempts",
		},
		[]string{"outcome"},
	)

	// ReconcileRuns tracks reconciliation runs by trigger and outcome
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinela_reconcile_runs_total",
			Help: "Number of IP reconciliation runs",
		},
		[]string{"trigger", "outcome"},
	)

	// ReconcileMergedPairs tracks (user, IP) pairs merged into the store
	ReconcileMergedPairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinela_reconcile_merged_pairs_total",
			Help: "Number of (user, IP) pairs merged into the durable store",
		},
	)

	// ReconcileUserFailures tracks isolated per-user failures in batch runs
	ReconcileUserFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinela_reconcile_user_failures_total",
			Help: "Number of per-user profile update failures during reconciliation",
		},
	)

	// BlockedIPLookups tracks access-check decisions
	BlockedIPLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinela_blocked_ip_lookups_total",
			Help: "Number of blocked-IP lookups",
		},
		[]string{"result", "source"},
	)

	// CacheHits tracks cache hits/misses
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinela_cache_hits_total",
			Help: "Number of cache hits",
		},
		[]string{"operation"},
	)
)
