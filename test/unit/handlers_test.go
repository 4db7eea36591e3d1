// Package unit contains unit tests for individual components of the RoomRelay server.
package unit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Tyrowin/roomrelay/internal/server"
)

// TestHealthHandlerUnit tests the health handler function in isolation.
// It verifies that the handler responds correctly to different HTTP methods
// and returns the expected status code and response body.
func TestHealthHandlerUnit(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "GET request to health endpoint",
			method:         "GET",
			expectedStatus: http.StatusOK,
			expectedBody:   "RoomRelay server is running!",
		},
		{
			name:           "POST request to health endpoint",
			method:         "POST",
			expectedStatus: http.StatusOK,
			expectedBody:   "RoomRelay server is running!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, "/", http.NoBody)
			if err != nil {
				t.Fatal(err)
			}

			rr := httptest.NewRecorder()

			server.HealthHandler(rr, req)

			if status := rr.Code; status != tt.expectedStatus {
				t.Errorf("handler returned wrong status code: got %v want %v",
					status, tt.expectedStatus)
			}

			if rr.Body.String() != tt.expectedBody {
				t.Errorf("handler returned unexpected body: got %v want %v",
					rr.Body.String(), tt.expectedBody)
			}
		})
	}
}

// TestSetupRoutes tests the route setup function.
// It verifies that SetupRoutes returns a properly configured ServeMux
// with the health, WebSocket, and metrics routes registered.
func TestSetupRoutes(t *testing.T) {
	mux := server.SetupRoutes()

	if mux == nil {
		t.Fatal("SetupRoutes returned nil mux")
	}

	req, err := http.NewRequest("GET", "/", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	expected := "RoomRelay server is running!"
	if rr.Body.String() != expected {
		t.Errorf("handler returned unexpected body: got %v want %v",
			rr.Body.String(), expected)
	}
}

// TestMetricsRoute verifies that the Prometheus metrics endpoint is wired into
// the mux and serves a scrape successfully.
func TestMetricsRoute(t *testing.T) {
	mux := server.SetupRoutes()

	req, err := http.NewRequest("GET", "/metrics", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("metrics endpoint returned wrong status code: got %v want %v",
			status, http.StatusOK)
	}

	if rr.Body.Len() == 0 {
		t.Error("metrics endpoint returned empty body")
	}
}

// TestWebSocketHandlerRejectsNonGet verifies the upgrade endpoint only accepts
// GET requests.
func TestWebSocketHandlerRejectsNonGet(t *testing.T) {
	req, err := http.NewRequest("POST", "/ws", http.NoBody)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	server.WebSocketHandler(rr, req)

	if status := rr.Code; status != http.StatusMethodNotAllowed {
		t.Errorf("expected status %v for POST upgrade, got %v",
			http.StatusMethodNotAllowed, status)
	}
}

// TestCreateServer tests the server creation function.
// It verifies that CreateServer returns an HTTP server with the correct
// configuration including address, handler, and timeout settings.
func TestCreateServer(t *testing.T) {
	port := ":8080"
	mux := server.SetupRoutes()

	srv := server.CreateServer(port, mux)

	if srv.Addr != port {
		t.Errorf("Expected server addr %s, got %s", port, srv.Addr)
	}

	if srv.Handler != mux {
		t.Error("Server handler not set correctly")
	}

	expectedReadTimeout := 15 * time.Second
	expectedWriteTimeout := 15 * time.Second
	expectedIdleTimeout := 60 * time.Second

	if srv.ReadTimeout != expectedReadTimeout {
		t.Errorf("Expected ReadTimeout %v, got %v", expectedReadTimeout, srv.ReadTimeout)
	}

	if srv.WriteTimeout != expectedWriteTimeout {
		t.Errorf("Expected WriteTimeout %v, got %v", expectedWriteTimeout, srv.WriteTimeout)
	}

	if srv.IdleTimeout != expectedIdleTimeout {
		t.Errorf("Expected IdleTimeout %v, got %v", expectedIdleTimeout, srv.IdleTimeout)
	}
}
