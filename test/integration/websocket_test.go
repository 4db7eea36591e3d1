// Package integration contains integration tests for the RoomRelay server.
package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/Tyrowin/roomrelay/internal/server"
	"github.com/Tyrowin/roomrelay/test/testhelpers"
)

// TestWebSocketEndpointIntegration tests the WebSocket endpoint with full server integration.
// It verifies that connections can be established through a real HTTP server
// and that non-upgrade requests are rejected correctly.
func TestWebSocketEndpointIntegration(t *testing.T) {
	testServer := testhelpers.CreateTestServer(server.SetupRoutes())
	defer testServer.Close()
	configureServerForTest(t, testServer.URL, nil)

	wsURL := websocketURL(t, testServer.URL)

	t.Run("Successful WebSocket Connection", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
		if err != nil {
			t.Fatalf("Failed to connect to WebSocket: %v", err)
		}
		defer func() { _ = conn.Close() }()

		if err := testhelpers.CloseWebSocket(conn); err != nil {
			t.Errorf("Failed to close connection cleanly: %v", err)
		}
	})

	t.Run("Invalid HTTP Method", func(t *testing.T) {
		resp, err := http.Post(testServer.URL+"/ws", "text/plain", strings.NewReader("test"))
		if err != nil {
			t.Fatalf("Failed to make POST request: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("Expected status %d for POST request, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
		}
	})

	t.Run("GET Without WebSocket Headers", func(t *testing.T) {
		resp, err := http.Get(testServer.URL + "/ws")
		if err != nil {
			t.Fatalf("Failed to make GET request: %v", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status %d for GET without WebSocket headers, got %d", http.StatusBadRequest, resp.StatusCode)
		}
	})
}

// TestWebSocketOriginValidation verifies that upgrades from origins outside
// the configured allow-list are rejected.
func TestWebSocketOriginValidation(t *testing.T) {
	testServer := testhelpers.CreateTestServer(server.SetupRoutes())
	defer testServer.Close()
	configureServerForTest(t, testServer.URL, nil)

	wsURL := websocketURL(t, testServer.URL)

	t.Run("Allowed origin connects", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, testServer.URL)
		if err != nil {
			t.Fatalf("Expected connection from allowed origin to succeed: %v", err)
		}
		_ = conn.Close()
	})

	t.Run("Disallowed origin is rejected", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, "http://evil.example.com")
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected connection from disallowed origin to fail")
		}
	})

	t.Run("Missing origin is rejected", func(t *testing.T) {
		conn, err := testhelpers.ConnectWebSocket(wsURL, "")
		if err == nil {
			_ = conn.Close()
			t.Fatal("Expected connection without origin header to fail")
		}
	})
}
