// Package testhelpers provides common utilities and helper functions for testing the RoomRelay server.
//
// This package contains reusable test utilities that are shared across unit and integration tests.
// It provides functions for creating test servers, dialing WebSocket connections, exchanging
// protocol events, and asserting response properties to reduce code duplication in test files.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// CreateTestServer creates a test HTTP server with the given handler.
// It returns a running httptest.Server that should be closed after use.
func CreateTestServer(handler http.Handler) *httptest.Server {
	return httptest.NewServer(handler)
}

// AssertStatusCode checks if the HTTP response has the expected status code.
// It fails the test with a descriptive error message if the status codes don't match.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
// It fails the test with a descriptive error message if the content types don't match.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}

// MakeRequest creates and executes an HTTP request, returning the response.
// It includes a 5-second timeout and fails the test if the request cannot be
// created or executed successfully.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// ConnectWebSocket creates a WebSocket connection to the specified URL using
// the given Origin header.
func ConnectWebSocket(url, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(url, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendEvent marshals an event and sends it as one text frame.
func SendEvent(conn *websocket.Conn, event any) error {
	return conn.WriteJSON(event)
}

// ReceiveEvent reads the next event frame, failing after the timeout.
func ReceiveEvent(conn *websocket.Conn, timeout time.Duration) (map[string]any, error) {
	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}

	var event map[string]any
	err := conn.ReadJSON(&event)
	return event, err
}

// RequireEvent reads the next event and fails the test unless its type tag
// matches the expected one.
func RequireEvent(t *testing.T, conn *websocket.Conn, expectedType string, timeout time.Duration) map[string]any {
	t.Helper()

	event, err := ReceiveEvent(conn, timeout)
	if err != nil {
		t.Fatalf("Failed to receive %q event: %v", expectedType, err)
	}

	eventType, _ := event["type"].(string)
	if eventType != expectedType {
		t.Fatalf("Expected event type %q, got %q (event: %v)", expectedType, eventType, event)
	}

	return event
}

// ExpectNoEvent asserts that no event arrives on the connection within the
// given window.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	event, err := ReceiveEvent(conn, timeout)
	if err == nil {
		t.Fatalf("Expected no event, but received: %v", event)
	}
	if netErr, ok := err.(interface{ Timeout() bool }); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of events: %v", err)
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}
