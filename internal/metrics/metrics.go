package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		},
	)

	OrdersConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_confirmed_total",
			Help: "Total number of orders confirmed",
		},
	)

	// VerificationFailures is labelled by reason: mismatch, already_confirmed, too_many_attempts.
	VerificationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_verification_failures_total",
			Help: "Total number of rejected verification attempts",
		},
		[]string{"reason"},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Total number of verification emails that could not be delivered",
		},
		[]string{"driver"},
	)
)
