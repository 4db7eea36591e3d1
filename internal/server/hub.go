// Package server coordinates client registration, room-scoped broadcast, and
// connection cleanup for the RoomRelay WebSocket system via the Hub type.
package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// RoomBroadcast is one fan-out request: a payload addressed to every eligible
// connection in a room, optionally skipping all connections bound to one
// user id. When CountEvent is set the payload is ignored and a member-count
// event of that type is built at delivery time, so the count always matches
// the membership the hub is fanning out to; a count captured earlier could be
// stale by the time the request reaches the front of the broadcast channel.
type RoomBroadcast struct {
	RoomCode   string
	Payload    []byte
	SkipUserID string
	CountEvent string
}

// Hub manages all WebSocket client connections, room-scoped broadcasting, and
// the periodic liveness sweep. It maintains client registration and ensures
// thread-safe operations through mutex protection; room state lives in the
// hub's RoomStore.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan RoomBroadcast
	register   chan *Client
	unregister chan *Client
	store      *RoomStore
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates and initializes a new Hub with an empty room store. The
// returned Hub is ready to manage WebSocket connections once Run is started.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan RoomBroadcast),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		store:      NewRoomStore(),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Store returns the hub's room store.
func (h *Hub) Store() *RoomStore {
	return h.store
}

// GetRegisterChan returns the channel used for registering new clients to the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients from the hub.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// GetBroadcastChan returns the channel used for submitting room broadcasts.
// This channel is write-only from the caller's perspective.
func (h *Hub) GetBroadcastChan() chan<- RoomBroadcast {
	return h.broadcast
}

// BroadcastToRoom marshals an event and submits it for fan-out to the given
// room. Connections bound to skipUserID are excluded when it is non-empty.
func (h *Hub) BroadcastToRoom(roomCode string, event any, skipUserID string) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling broadcast for room %s: %v", roomCode, err)
		return
	}

	select {
	case h.broadcast <- RoomBroadcast{RoomCode: roomCode, Payload: payload, SkipUserID: skipUserID}:
	case <-h.ctx.Done():
	}
}

// BroadcastMemberCount announces a room's member count with an event of the
// given type. The count itself is stamped during fan-out.
func (h *Hub) BroadcastMemberCount(roomCode, eventType string) {
	select {
	case h.broadcast <- RoomBroadcast{RoomCode: roomCode, CountEvent: eventType}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	// Hold the lock during the entire send operation so teardown cannot race
	// with an in-flight delivery.
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// Run starts the hub's main event loop, handling client registration,
// unregistration, room broadcasts, and the liveness sweep. This method should
// be called in a separate goroutine as it runs indefinitely.
func (h *Hub) Run() {
	defer close(h.done)

	heartbeat := time.NewTicker(currentConfig().HeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()

			totalConnections.Inc()
			activeConnections.Inc()
			log.Printf("Client registered from %s (session %s). Total clients: %d", client.addr, client.sessionID, clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				clientCount := len(h.clients)
				h.mutex.Unlock()
				// Close the channel after releasing the lock
				close(client.send)
				activeConnections.Dec()
				log.Printf("Client unregistered from %s. Total clients: %d", client.addr, clientCount)
				h.handleLeave(client)
			} else {
				h.mutex.Unlock()
			}

		case broadcastMsg := <-h.broadcast:
			h.handleBroadcast(broadcastMsg)

		case <-heartbeat.C:
			h.sweepStaleClients()
		}
	}
}

var hub = NewHub()

// handleLeave applies leave-room semantics for a connection that is going
// away: remove the member, announce the new count, and delete the room when
// it empties. Unbound sessions are a no-op.
func (h *Hub) handleLeave(client *Client) {
	userID, roomCode := client.binding()
	if userID == "" || roomCode == "" {
		return
	}

	remaining, removed, deleted := h.store.Leave(roomCode, userID)
	if !removed {
		return
	}

	log.Printf("User left: userId=%s, room=%s, usersCount=%d", userID, roomCode, remaining)

	if deleted {
		log.Printf("Room removed: %s", roomCode)
		return
	}

	h.handleBroadcast(RoomBroadcast{RoomCode: roomCode, CountEvent: EventUserLeft})
}

// handleBroadcast delivers a payload to every eligible connection in the
// target room. A broadcast addressed to a deleted room is silently dropped so
// in-flight events race harmlessly against room teardown.
func (h *Hub) handleBroadcast(broadcastMsg RoomBroadcast) {
	members, ok := h.store.MemberSnapshot(broadcastMsg.RoomCode)
	if !ok {
		return
	}

	payload := broadcastMsg.Payload
	if broadcastMsg.CountEvent != "" {
		var err error
		payload, err = json.Marshal(MemberCountEvent{Type: broadcastMsg.CountEvent, UsersCount: len(members)})
		if err != nil {
			log.Printf("Error marshaling %s for room %s: %v", broadcastMsg.CountEvent, broadcastMsg.RoomCode, err)
			return
		}
	}

	clients := h.getClientSnapshot()

	var clientsToRemove []*Client
	for _, client := range clients {
		userID, roomCode := client.binding()
		if roomCode != broadcastMsg.RoomCode {
			continue
		}
		if _, member := members[userID]; !member {
			continue
		}
		if broadcastMsg.SkipUserID != "" && userID == broadcastMsg.SkipUserID {
			continue
		}
		if h.safeSend(client, payload) {
			eventsDelivered.Inc()
		} else {
			clientsToRemove = append(clientsToRemove, client)
		}
	}

	h.removeFailedClients(clientsToRemove)
}

// getClientSnapshot returns a thread-safe snapshot of all current clients.
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// removeFailedClients removes clients whose send buffer rejected a delivery.
// Their connections are closed and leave semantics applied, so a stuck peer
// is indistinguishable from a disconnecting one.
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var removed []*Client
	for _, client := range clientsToRemove {
		if _, exists := h.clients[client]; exists {
			delete(h.clients, client)
			client.closed = true
			removed = append(removed, client)
			log.Printf("Client from %s removed due to full send buffer", client.addr)
		}
	}
	h.mutex.Unlock()

	// Close channels and connections after releasing the lock
	for _, client := range removed {
		close(client.send)
		client.terminate()
		activeConnections.Dec()
		h.handleLeave(client)
	}
}

// sweepStaleClients is the liveness sweep: any connection that has not
// answered the previous probe is terminated; everyone else is marked
// not-alive and probed again. A connection must miss one full probe-reply
// cycle before it is considered dead.
func (h *Hub) sweepStaleClients() {
	for _, client := range h.getClientSnapshot() {
		if !client.isAlive.Load() {
			log.Printf("Terminating stale connection from %s (session %s)", client.addr, client.sessionID)
			staleConnectionsTerminated.Inc()
			client.terminate()
			continue
		}

		client.isAlive.Store(false)
		select {
		case client.pingReq <- struct{}{}:
		default:
		}
	}
}

// shutdownClients gracefully closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all goroutines to complete.
// It returns after all client connections are closed and goroutines have finished,
// or when the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()

	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
