// Package metrics holds the Prometheus instruments the engine updates on
// every tick. All collectors register with the default registry, so
// importing this package and serving promhttp.Handler is enough.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rotatord_rotations_total",
			Help: "Cumulative number of successful job firings, by kind.",
		},
		[]string{"kind"},
	)

	RotationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rotatord_rotation_failures_total",
			Help: "Cumulative number of failed job firings, by kind and fault kind.",
		},
		[]string{"kind", "fault"},
	)

	JobsSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rotatord_jobs_skipped_total",
			Help: "Cumulative number of jobs skipped because they were not yet due.",
		})

	JobsQuarantinedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rotatord_jobs_quarantined_total",
			Help: "Cumulative number of jobs quarantined for a tick cycle after a fatal-for-tick fault.",
		})

	TriggerAlertsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rotatord_trigger_alerts_total",
			Help: "Cumulative number of trigger alerts fired, by window.",
		},
		[]string{"window"},
	)

	TickDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "rotatord_tick_duration_seconds",
			Help: "Wall-clock duration of one full tick pass.",
		})

	ConsecutiveFailures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rotatord_job_consecutive_failures",
			Help: "Current consecutive-failure count per job.",
		},
		[]string{"job_id"},
	)
)

func init() {
	prometheus.MustRegister(
		RotationsTotal,
		RotationFailuresTotal,
		JobsSkippedTotal,
		JobsQuarantinedTotal,
		TriggerAlertsTotal,
		TickDurationSeconds,
		ConsecutiveFailures,
	)
}
