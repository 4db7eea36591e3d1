// Package server wires HTTP handlers into a ServeMux for the RoomRelay
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application routes.
// It sets up handlers for the health check, the WebSocket endpoint, and the
// Prometheus metrics endpoint.
func SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", WebSocketHandler)
	mux.Handle("/metrics", MetricsHandler())
	return mux
}
