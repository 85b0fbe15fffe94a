package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScanOutcomes counts check-in/check-out attempts by action and outcome.
	ScanOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Name:      "scan_outcomes_total",
		Help:      "Scan attempts by action and outcome.",
	}, []string{"action", "outcome"})

	// ImportRows counts CSV import rows by result.
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Name:      "import_rows_total",
		Help:      "Imported CSV rows by result.",
	}, []string{"result"})

	// NotifyFailures counts failed calls to the card/email service.
	NotifyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Name:      "notify_failures_total",
		Help:      "Failed notifier requests by kind.",
	}, []string{"kind"})

	// QueueDropped counts events the API could not enqueue.
	QueueDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gym",
		Name:      "queue_dropped_total",
		Help:      "Events dropped because the queue rejected them, by type.",
	}, []string{"type"})

	// StaleSessions tracks open visits past the freshness window.
	StaleSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gym",
		Name:      "stale_sessions",
		Help:      "Open attendance records older than the freshness window.",
	})
)
