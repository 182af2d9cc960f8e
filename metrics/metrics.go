package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dharmic_store_operations_total",
			Help: "Document store operations by backend, operation and result",
		},
		[]string{"backend", "operation", "result"},
	)

	StoreChangesDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dharmic_store_changes_dispatched_total",
			Help: "Change notifications delivered to store subscribers",
		},
		[]string{"backend", "action"},
	)

	// Fan-out
	UpdatesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dharmic_updates_published_total",
			Help: "Update envelopes published by entity type",
		},
		[]string{"type"},
	)

	ListenerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dharmic_listener_failures_total",
			Help: "Update listeners that panicked or returned an error",
		},
		[]string{"component"},
	)

	DegradedUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dharmic_degraded_updates_total",
			Help: "Updates published in degraded mode by entity type",
		},
		[]string{"type"},
	)

	WebSocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dharmic_websocket_clients",
			Help: "Currently connected WebSocket clients",
		},
	)

	// Standings
	StandingsRecomputeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dharmic_standings_recompute_duration_seconds",
			Help:    "Time spent loading data and recomputing standings",
			Buckets: prometheus.DefBuckets,
		},
	)

	ScoreParseIssues = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dharmic_score_parse_issues_total",
			Help: "Completed matches whose score string failed to parse",
		},
	)

	PlayersRepaired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dharmic_players_repaired_total",
			Help: "Player copies rewritten by the reconciliation pass",
		},
		[]string{"kind"},
	)
)

// ObserveStoreOp records the outcome of a single store call.
func ObserveStoreOp(backend, op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	StoreOperations.WithLabelValues(backend, op, result).Inc()
}

// ObserveRecompute records a standings recompute started at start.
func ObserveRecompute(start time.Time) {
	StandingsRecomputeDuration.Observe(time.Since(start).Seconds())
}
