// Package server implements the core of the RoomRelay service: room lifecycle
// and membership, the event protocol spoken over WebSocket connections,
// room-scoped broadcasting, per-connection rate limiting, and liveness sweeps.
//
// The implementation is organized into specialized files for configuration,
// the room store, hub management, clients, event handling, routing, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows.
package server
