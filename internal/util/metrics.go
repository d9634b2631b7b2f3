package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_total",
		Help: "Reservation attempts by resource kind and outcome",
	}, []string{"kind", "outcome"})

	CapacityRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_capacity_rejections_total",
		Help: "Reservations rejected for insufficient capacity",
	}, []string{"kind"})

	ReservationTxLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reservation_tx_latency_seconds",
		Help:    "Latency of the locking reservation transaction",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	UnitsReservedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_units_reserved_total",
		Help: "Rooms or seats reserved",
	}, []string{"kind"})

	ExpiryJobRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expiry_job_runs_total",
		Help: "Expiry job runs by job and result",
	}, []string{"job", "result"})

	ExpiryItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expiry_job_items_total",
		Help: "Items processed by expiry jobs by outcome",
	}, []string{"job", "outcome"})

	PaymentsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_applied_total",
		Help: "Payment callbacks applied by target",
	}, []string{"target"})

	NotificationsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Notifications that could not be handed off",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
