package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	signupsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signupd_signups_created_total",
		Help: "Signups created, by resulting status",
	}, []string{"status"})

	signupsBackstopDemoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signupd_signups_backstop_demoted_total",
		Help: "Signups demoted to the waitlist by the post-insert capacity recount",
	})

	promotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signupd_waitlist_promotions_total",
		Help: "Waitlisted signups promoted to a pending offer, by trigger",
	}, []string{"trigger"})

	offersResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signupd_offers_resolved_total",
		Help: "Pending offers resolved, by outcome",
	}, []string{"outcome"})

	txRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signupd_tx_retries_total",
		Help: "Transactions retried after a transient store failure, by operation",
	}, []string{"op"})

	notificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signupd_notification_failures_total",
		Help: "Outbound messages a sink failed to deliver",
	}, []string{"sink"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "signupd_sweep_duration_seconds",
		Help:    "Duration of one sweeper tick",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
	})
)
