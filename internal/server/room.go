// Package server implements the room store: room lifecycle, membership
// tracking, and the per-room message log. All state is volatile and owned by
// a single process; rooms disappear when their last member leaves.
package server

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// MessageStatus tracks a message's delivery acknowledgement state. The only
// transition is sent -> seen and it never reverses.
type MessageStatus string

// Message status values.
const (
	MessageStatusSent MessageStatus = "sent"
	MessageStatusSeen MessageStatus = "seen"
)

// Message is one chat message in a room's log. Messages are immutable except
// for Status and are only ever discarded with their room.
type Message struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	SenderID  string        `json:"senderId"`
	Sender    string        `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
	Status    MessageStatus `json:"status"`
}

type room struct {
	code       string
	members    map[string]struct{}
	messages   []Message
	lastActive time.Time
}

// RoomStore owns the mapping from room code to room state. All access goes
// through its lock; callers never hold references into a room.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*room
	now   func() time.Time
}

// NewRoomStore creates an empty RoomStore.
func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*room),
		now:   time.Now,
	}
}

// newRoomCode generates a 6-character uppercase hex room code from 3 random
// bytes. Collisions are not checked; the space is treated as practically
// unique for the lifetime of a process.
func newRoomCode() string {
	var b [3]byte
	_, _ = rand.Read(b[:])
	return strings.ToUpper(hex.EncodeToString(b[:]))
}

// newMessageID generates an 8-character hex message id from 4 random bytes,
// unique within a room for practical purposes.
func newMessageID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

// Create allocates a fresh empty room and returns its code. It always
// succeeds.
func (s *RoomStore) Create() string {
	code := newRoomCode()

	s.mu.Lock()
	s.rooms[code] = &room{
		code:       code,
		members:    make(map[string]struct{}),
		messages:   make([]Message, 0),
		lastActive: s.now(),
	}
	s.mu.Unlock()

	roomsCreated.Inc()
	activeRooms.Inc()
	return code
}

// Join adds userID to the room's member set (idempotently) and returns a
// snapshot of the message log along with the resulting member count. It
// returns ErrRoomNotFound if no room with that code exists.
func (s *RoomStore) Join(code, userID string) ([]Message, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, 0, ErrRoomNotFound
	}

	r.members[userID] = struct{}{}
	r.lastActive = s.now()

	snapshot := make([]Message, len(r.messages))
	copy(snapshot, r.messages)

	return snapshot, len(r.members), nil
}

// Leave removes userID from the room's member set. It reports the remaining
// member count, whether the user was actually a member, and whether the room
// was deleted because its member set became empty. Leaving an unknown room or
// a room the user is not in is a no-op.
func (s *RoomStore) Leave(code, userID string) (remaining int, removed, deleted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return 0, false, false
	}
	if _, member := r.members[userID]; !member {
		return len(r.members), false, false
	}

	delete(r.members, userID)
	remaining = len(r.members)

	if remaining == 0 {
		delete(s.rooms, code)
		activeRooms.Dec()
		return 0, true, true
	}

	return remaining, true, false
}

// AppendMessage builds a Message with status "sent", appends it to the room's
// log, and returns it. It returns ErrRoomNotFound if the room does not exist.
func (s *RoomStore) AppendMessage(code, content, senderID, senderName string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return Message{}, ErrRoomNotFound
	}

	msg := Message{
		ID:        newMessageID(),
		Content:   content,
		SenderID:  senderID,
		Sender:    senderName,
		Timestamp: s.now(),
		Status:    MessageStatusSent,
	}

	r.messages = append(r.messages, msg)
	r.lastActive = s.now()

	return msg, nil
}

// MarkSeen transitions the message to "seen" and reports whether this call
// performed the transition. Missing rooms, missing messages, and already-seen
// messages all report false; the transition is monotonic and idempotent.
func (s *RoomStore) MarkSeen(code, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[code]
	if !ok {
		return false
	}

	for i := range r.messages {
		if r.messages[i].ID != messageID {
			continue
		}
		if r.messages[i].Status == MessageStatusSeen {
			return false
		}
		r.messages[i].Status = MessageStatusSeen
		return true
	}

	return false
}

// MemberSnapshot returns a copy of the room's member set, or ok=false if the
// room does not exist. The broadcast path uses it to filter connections
// without holding the store lock during delivery.
func (s *RoomStore) MemberSnapshot(code string) (map[string]struct{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return nil, false
	}

	members := make(map[string]struct{}, len(r.members))
	for id := range r.members {
		members[id] = struct{}{}
	}
	return members, true
}

// Exists reports whether a room with the given code is currently present.
func (s *RoomStore) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.rooms[code]
	return ok
}

// LastActive returns the room's last-activity timestamp. It is metadata for
// external expiry sweeps; nothing in the core acts on it.
func (s *RoomStore) LastActive(code string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[code]
	if !ok {
		return time.Time{}, false
	}
	return r.lastActive, true
}
