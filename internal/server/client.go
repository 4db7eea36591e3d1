// Package server manages individual WebSocket clients, handling read/write
// pumps, session binding, rate limiting, and lifecycle control for each
// connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client represents one WebSocket connection in the relay. It carries the
// connection's session state: the user id and room code bound by a successful
// join, the liveness flag driven by the heartbeat sweep, and the fixed-window
// rate limiter consulted before dispatch.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	hub       *Hub
	addr      string
	sessionID string
	closed    bool

	mu       sync.Mutex
	userID   string
	roomCode string

	isAlive atomic.Bool
	pingReq chan struct{}

	maxMessageSize int64
	writeWait      time.Duration
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a new Client for the provided WebSocket connection. The
// session starts unbound: no user id, no room. The send channel is buffered
// so broadcasts never block the hub on a slow peer.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	c := &Client{
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		addr:           addr,
		sessionID:      uuid.NewString(),
		pingReq:        make(chan struct{}, 1),
		maxMessageSize: cfg.MaxMessageSize,
		writeWait:      cfg.WriteWait,
		rateLimiter:    newRateLimiter(cfg.RateLimit.MaxPerWindow, cfg.RateLimit.Window),
		rateLimit:      cfg.RateLimit,
	}
	c.isAlive.Store(true)
	return c
}

// GetSendChan returns the client's send channel for reading outgoing messages.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// bind records the session's room and user id after a successful join.
func (c *Client) bind(userID, roomCode string) {
	c.mu.Lock()
	c.userID = userID
	c.roomCode = roomCode
	c.mu.Unlock()
}

// binding returns the session's current user id and room code. Both are empty
// until a join succeeds.
func (c *Client) binding() (userID, roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.roomCode
}

// enqueue queues a payload for the write pump without blocking. It reports
// false when the buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// sendEvent marshals an outbound event and queues it for this connection only.
func (c *Client) sendEvent(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling event for %s: %v", c.addr, err)
		return
	}
	if !c.enqueue(payload) {
		log.Printf("Dropping event for %s: send buffer full", c.addr)
	}
}

// sendError reports a failure to the originating connection. Errors are never
// broadcast to other room members.
func (c *Client) sendError(message string, code int) {
	c.sendEvent(newErrorEvent(message, code))
}

// terminate force-closes the underlying connection. The read pump observes
// the closed connection and runs the normal disconnect teardown, so leave
// semantics apply exactly as for a client-initiated disconnect.
func (c *Client) terminate() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Error terminating connection from %s: %v", c.addr, err)
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

// setupReadConnection configures the read deadline and pong handler. A pong
// both extends the deadline and marks the session alive for the next sweep.
func (c *Client) setupReadConnection() {
	readWait := 2 * currentConfig().HeartbeatInterval
	if err := c.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		log.Printf("Error setting initial read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		c.isAlive.Store(true)
		if err := c.conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			log.Printf("Error setting read deadline in pong handler for %s: %v", c.addr, err)
		}
		return nil
	})
}

// handleReadError logs appropriate error messages based on the error type
// and returns true if the read loop should break.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, websocket.ErrReadLimit) {
		log.Printf("Message from %s exceeded maximum size of %d bytes", c.addr, c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure) {
		log.Printf("Client %s disconnected: %v", c.addr, err)
		return true
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		log.Printf("Client %s connection closed: %v", c.addr, err)
		return true
	}

	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig) {
		log.Printf("Unexpected WebSocket error from %s: %v", c.addr, err)
		return true
	}

	log.Printf("WebSocket read error from %s: %v", c.addr, err)
	return true
}

// checkRateLimit counts the inbound event against the fixed window and, on a
// violation, reports code 429 back to the sender. The connection stays open.
func (c *Client) checkRateLimit() bool {
	if c.rateLimiter != nil && !c.rateLimiter.allow() {
		log.Printf("Rate limit exceeded for %s (%d events per %s); discarding event",
			c.addr, c.rateLimit.MaxPerWindow, c.rateLimit.Window)
		rateLimitedEvents.Inc()
		c.sendError("Too many requests. Please slow down.", CodeRateLimited)
		return false
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		// Once the hub loop has exited there is no receiver for unregister;
		// shutdown has already torn the client down.
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		if err := c.conn.Close(); err != nil {
			if !isExpectedCloseError(err) {
				log.Printf("Error closing connection in readPump: %v", err)
			}
		}
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
			continue
		}

		eventsReceived.Inc()

		if !c.checkRateLimit() {
			continue
		}

		c.dispatch(rawMessage)
	}
}

func (c *Client) writePump() {
	defer c.closeConnection()

	for c.processWriteEvent() {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent() bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-c.pingReq:
		return c.writePing()
	case <-c.hub.ctx.Done():
		// Hub shutdown: the send channel will never be closed for us.
		return false
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling.
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error closing connection in writePump: %v", err)
		}
	}
}

// handleMessage processes outgoing messages and returns false if the connection should be closed.
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		log.Printf("Error setting write deadline for %s: %v", c.addr, err)
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client.
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			log.Printf("Error writing close message to %s: %v", c.addr, err)
		}
	}
	return false
}

// writeTextMessage writes a text message and any queued messages as separate
// frames; every event must arrive as a self-contained JSON document.
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		log.Printf("Error writing message to %s: %v", c.addr, err)
		return false
	}

	n := len(c.send)
	for i := 0; i < n; i++ {
		if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
			log.Printf("Error writing queued message to %s: %v", c.addr, err)
			return false
		}
	}

	return true
}

// writePing sends a liveness probe requested by the heartbeat sweep.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		log.Printf("Error setting write deadline for ping to %s: %v", c.addr, err)
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		log.Printf("Error writing ping message to %s: %v", c.addr, err)
		return false
	}
	return true
}
