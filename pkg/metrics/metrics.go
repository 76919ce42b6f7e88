package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InviteeTransitions counts committed invitee status transitions by target status.
	InviteeTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playerfinder_invitee_transitions_total",
			Help: "Total number of committed invitee status transitions",
		},
		[]string{"to"},
	)

	// RejectedTransitions counts transitions refused by the lifecycle rules (conflict, full, terminal).
	RejectedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playerfinder_rejected_transitions_total",
			Help: "Total number of transitions refused by lifecycle or quorum rules",
		},
		[]string{"reason"},
	)

	// RemindersAdvanced counts reminder schedule rows advanced by the dispatcher.
	RemindersAdvanced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playerfinder_reminders_advanced_total",
			Help: "Total number of reminder schedules advanced",
		},
	)

	// APILatency measures HTTP request latencies of the tracker stub.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playerfinder_api_latency_seconds",
			Help:    "Tracker API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
