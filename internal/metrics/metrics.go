// Package metrics exposes Prometheus counters for the visitor lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckIns counts successful visitor check-ins.
	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitordesk_checkins_total",
		Help: "Successful visitor check-ins.",
	})

	// CheckOuts counts successful visitor check-outs.
	CheckOuts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitordesk_checkouts_total",
		Help: "Successful visitor check-outs.",
	})

	// NotificationsSent counts delivered host-arrival emails.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitordesk_notifications_sent_total",
		Help: "Host arrival notifications delivered.",
	})

	// NotificationsFailed counts arrival emails that could not be sent or
	// were skipped because the host reference did not resolve.
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "visitordesk_notifications_failed_total",
		Help: "Host arrival notifications dropped after a terminal failure.",
	})
)
