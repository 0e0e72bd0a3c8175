package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// ComplaintTransitions counts status change attempts (result: applied|rejected).
	ComplaintTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_complaint_transitions_total",
			Help: "Complaint status transitions by target status and result",
		},
		[]string{"to", "result"},
	)

	// ComplaintsCreated counts accepted complaints per type.
	ComplaintsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_complaints_created_total",
			Help: "Complaints created by type",
		},
		[]string{"type"},
	)

	// NotificationDeliveries counts delivery sink invocations (result: sent|failed).
	NotificationDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_notification_deliveries_total",
			Help: "Notification delivery attempts by kind and result",
		},
		[]string{"kind", "result"},
	)

	// RemindersSent counts onboarding reminders recorded in the ledger.
	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "complaintdesk_onboarding_reminders_total",
			Help: "Onboarding reminders sent by stage and level",
		},
		[]string{"stage", "level"},
	)

	// JobDuration measures background job runtimes.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "complaintdesk_job_duration_seconds",
			Help:    "Background job duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"job", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "complaintdesk_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
