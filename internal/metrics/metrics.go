// Package metrics holds the board's Prometheus instruments. They are served
// on /metrics by the status server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Queues
	QueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "msgboard_queue_depth",
			Help: "Number of pending work items per local queue",
		},
		[]string{"queue"}, // "text", "message"
	)

	QueueEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgboard_queue_evictions_total",
			Help: "Work items dropped because the local queue was full",
		},
		[]string{"queue"},
	)

	ItemsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgboard_items_rejected_total",
			Help: "Work items discarded by payload validation",
		},
		[]string{"queue"},
	)

	Renders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgboard_renders_total",
			Help: "Messages rendered by kind",
		},
		[]string{"kind"}, // "text", "structured"
	)

	// Remote service
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgboard_remote_requests_total",
			Help: "Requests to the remote queue service by method and outcome",
		},
		[]string{"method", "outcome"}, // outcome: "ok", "status", "transport"
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "msgboard_remote_request_duration_seconds",
			Help:    "Duration of single request attempts to the remote queue service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	RequestRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "msgboard_remote_retries_total",
			Help: "Request attempts that failed at the transport level",
		},
	)

	SessionRebuilds = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "msgboard_session_rebuilds_total",
			Help: "HTTP sessions discarded and rebuilt after transport failures",
		},
	)

	Polls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msgboard_polls_total",
			Help: "Poll cycles by result",
		},
		[]string{"result"}, // "ok", "error", "offline", "circuit_open"
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "msgboard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Board
	FreeMemoryBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "msgboard_free_memory_bytes",
			Help: "Free system memory reported at the last loop iteration",
		},
	)

	LoopPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "msgboard_loop_panics_total",
			Help: "Coordinator iterations aborted by a recovered panic",
		},
	)

	Enabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "msgboard_enabled",
			Help: "1 when the board renders queued items, 0 when disabled remotely",
		},
	)
)
