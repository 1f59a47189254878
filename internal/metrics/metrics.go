// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	RoomsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "burnroom_rooms_created_total",
		Help: "Total number of rooms created.",
	})

	RoomsDestroyedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "burnroom_rooms_destroyed_total",
		Help: "Rooms torn down, by reason (destroyed, expired).",
	}, []string{"reason"})

	AdmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "burnroom_admissions_total",
		Help: "Passcode verifications, by result.",
	}, []string{"result"})

	MessagesAppendedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "burnroom_messages_appended_total",
		Help: "Total number of messages appended to room logs.",
	})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "burnroom_ws_connections",
		Help: "Current number of realtime subscribers.",
	})
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		RoomsCreatedTotal,
		RoomsDestroyedTotal,
		AdmissionsTotal,
		MessagesAppendedTotal,
		WSConnections,
	)
}
