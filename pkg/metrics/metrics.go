package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "themanager_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// APIInFlight is the number of HTTP requests being served.
	APIInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "themanager_api_in_flight_requests",
			Help: "HTTP requests currently being served",
		},
	)

	// RemoteRequests counts calls made to the git hosting service by operation and
	// outcome (success|not_found|unprocessable|conflict|rejected|transient).
	RemoteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themanager_remote_requests_total",
			Help: "Total number of requests issued to the remote git service",
		},
		[]string{"operation", "outcome"},
	)

	// RemoteLatency measures remote call durations, including timeouts.
	RemoteLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "themanager_remote_request_seconds",
			Help:    "Remote git service request latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"operation"},
	)

	// SyncSteps counts reconciliation steps by entity, step and result (success|failure|noop|skipped).
	SyncSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themanager_sync_steps_total",
			Help: "Total number of reconciliation steps executed after commit",
		},
		[]string{"entity", "step", "result"},
	)

	// MaintenanceRuns counts scheduled cleanup jobs by job and result (success|failure).
	MaintenanceRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themanager_maintenance_runs_total",
			Help: "Total number of scheduled maintenance job runs",
		},
		[]string{"job", "result"},
	)

	// MergeRuns counts merge workflow runs by terminal result (done|failed|skipped).
	MergeRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "themanager_merge_runs_total",
			Help: "Total number of task merge workflow runs",
		},
		[]string{"result"},
	)
)
