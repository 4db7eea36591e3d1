// Package server exposes Prometheus collectors for connection, room, and
// broadcast activity.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connections_active",
		Help: "The current number of active WebSocket connections.",
	})
	totalConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_connections_total",
		Help: "The total number of WebSocket connections accepted.",
	})
	activeRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_rooms_active",
		Help: "The current number of rooms with at least one member.",
	})
	roomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_rooms_created_total",
		Help: "The total number of rooms created.",
	})
	eventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_events_received_total",
		Help: "The total number of events received from clients.",
	})
	eventsDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_events_delivered_total",
		Help: "The total number of events delivered to clients during broadcasts.",
	})
	rateLimitedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_events_rate_limited_total",
		Help: "The total number of events rejected by the per-connection rate limiter.",
	})
	staleConnectionsTerminated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_stale_connections_terminated_total",
		Help: "The total number of connections terminated by the liveness sweep.",
	})
)

// MetricsHandler returns the HTTP handler serving the Prometheus metrics
// endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
