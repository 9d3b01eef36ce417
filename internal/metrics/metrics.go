package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Polling / cycle metrics ────────────────────────────────────────────

var (
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "poll",
		Name:      "fetch_total",
		Help:      "Total leaderboard fetch attempts per metric group.",
	}, []string{"group", "status"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "poll",
		Name:      "fetch_duration_seconds",
		Help:      "Duration of a leaderboard fetch per metric group in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"group"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "poll",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full poll cycle across all metrics in seconds.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	})

	CycleLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "poll",
		Name:      "cycle_last_success_timestamp",
		Help:      "Unix timestamp of the last completed poll cycle.",
	})

	SnapshotsInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "snapshot",
		Name:      "inserted_total",
		Help:      "Total clan metric snapshots appended to the store.",
	})

	SnapshotsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "snapshot",
		Name:      "pruned_total",
		Help:      "Total snapshots removed by retention cleanup.",
	})
)

// ── Alert delivery metrics ─────────────────────────────────────────────

var (
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts successfully delivered.",
	}, []string{"kind"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "alerts",
		Name:      "failed_total",
		Help:      "Total alert delivery failures.",
	}, []string{"kind"})

	AlertsDeduplicatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "alerts",
		Name:      "deduplicated_total",
		Help:      "Total alerts suppressed by deduplication.",
	}, []string{"kind"})
)

// ── Business metrics ───────────────────────────────────────────────────

var (
	TrackingEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "business",
		Name:      "tracking_enabled",
		Help:      "Whether watch alerting is currently enabled (1) or not (0).",
	})

	WatchedClans = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "business",
		Name:      "watched_clans",
		Help:      "Number of clans in the watch registry.",
	})

	WatchedPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "leaderboard_monitor",
		Subsystem: "business",
		Name:      "watched_players",
		Help:      "Number of players in the watch registry.",
	})
)
