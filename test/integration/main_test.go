// Package integration contains integration tests for the RoomRelay server.
//
// These tests verify that multiple components work together correctly by testing
// the complete system behavior with real HTTP servers, WebSocket connections,
// and end-to-end functionality. Integration tests ensure that the system works
// as expected when all components are assembled together.
package integration

import (
	"net/url"
	"os"
	"testing"

	"github.com/Tyrowin/roomrelay/internal/server"
)

func TestMain(m *testing.M) {
	// The global hub backs every connection in this suite; start it once.
	server.StartHub()
	os.Exit(m.Run())
}

// configureServerForTest applies a config that allows connections from the
// test server's origin, restoring defaults when the test finishes.
func configureServerForTest(t *testing.T, baseURL string, customize func(cfg *server.Config)) {
	t.Helper()
	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{baseURL}, cfg.AllowedOrigins...)
	if customize != nil {
		customize(cfg)
	}
	server.SetConfig(cfg)
	t.Cleanup(func() {
		server.SetConfig(nil)
	})
}

// websocketURL rewrites an httptest server URL into the ws:// endpoint.
func websocketURL(t *testing.T, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"
	return u.String()
}
