// Package server maps handler failures onto the error events reported back to
// the offending connection. Errors are always local to that connection and
// never broadcast to other room members.
package server

import "errors"

// Error codes carried by ErrorEvent. They mirror HTTP status semantics:
// invalid input, unknown room or message, and rate limiting.
const (
	CodeInvalidInput = 400
	CodeNotFound     = 404
	CodeRateLimited  = 429
)

// ErrRoomNotFound is returned by RoomStore operations addressing a room code
// that is not (or no longer) present.
var ErrRoomNotFound = errors.New("room not found")

// ErrorEvent is the single error shape sent to clients.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func newErrorEvent(message string, code int) ErrorEvent {
	return ErrorEvent{Type: EventError, Message: message, Code: code}
}
