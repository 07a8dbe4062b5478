package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statuswatch_checks_total",
			Help: "Total number of monitor checks by classified status",
		},
		[]string{"status"},
	)

	CheckDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "statuswatch_check_duration_seconds",
			Help:    "Observed response time of monitor checks",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 10},
		},
	)

	IncidentTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statuswatch_incident_transitions_total",
			Help: "Incidents opened or resolved by the detector",
		},
		[]string{"transition"}, // opened/resolved
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statuswatch_notifications_total",
			Help: "Notification delivery attempts",
		},
		[]string{"channel_type", "status"},
	)

	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "statuswatch_cycle_duration_seconds",
			Help:    "Duration of check cycles and retention sweeps",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"}, // check/sweep
	)

	CyclesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "statuswatch_cycles_skipped_total",
			Help: "Cycles skipped because another run held the lock",
		},
		[]string{"kind"},
	)

	HealthChecksDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "statuswatch_health_checks_deleted_total",
			Help: "Health check rows removed by the retention sweep",
		},
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "statuswatch_live_connections_active",
			Help: "Number of open live feed websocket connections",
		},
	)
)
