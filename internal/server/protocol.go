// Package server defines the event protocol exchanged with clients: a closed
// set of inbound event kinds decoded once at the dispatcher boundary, and the
// outbound event shapes produced by the handlers.
package server

import (
	"encoding/json"
	"fmt"
)

// Inbound event type tags.
const (
	EventCreateRoom  = "create-room"
	EventJoinRoom    = "join-room"
	EventSendMessage = "send-message"
	EventTyping      = "typing"
	EventSeenMessage = "seen-message"
)

// Outbound event type tags.
const (
	EventRoomCreated = "room-created"
	EventJoinedRoom  = "joined-room"
	EventNewMessage  = "new-message"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
	EventMessageSeen = "message-seen"
	EventError       = "error"
)

// JoinRoomEvent asks to join an existing room under a caller-supplied user id.
type JoinRoomEvent struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// SendMessageEvent carries a chat message addressed to a room.
type SendMessageEvent struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
}

// TypingEvent is a best-effort hint that a user is composing a message.
type TypingEvent struct {
	RoomCode string `json:"roomCode"`
	UserID   string `json:"userId"`
	Name     string `json:"name,omitempty"`
}

// SeenMessageEvent acknowledges that a user has seen a message.
type SeenMessageEvent struct {
	RoomCode  string `json:"roomCode"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}

// InboundEvent is the decoded form of one client frame. Exactly one of the
// payload pointers is set, matching Type; create-room carries no payload.
type InboundEvent struct {
	Type   string
	Join   *JoinRoomEvent
	Send   *SendMessageEvent
	Typing *TypingEvent
	Seen   *SeenMessageEvent
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeEvent parses a raw client frame into an InboundEvent. It fails on
// frames that are not JSON objects and on unrecognized type tags; required
// field presence is checked by the individual handlers, not here.
func DecodeEvent(raw []byte) (*InboundEvent, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}

	evt := &InboundEvent{Type: env.Type}

	switch env.Type {
	case EventCreateRoom:
		return evt, nil
	case EventJoinRoom:
		evt.Join = &JoinRoomEvent{}
		if err := json.Unmarshal(raw, evt.Join); err != nil {
			return nil, fmt.Errorf("invalid %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventSendMessage:
		evt.Send = &SendMessageEvent{}
		if err := json.Unmarshal(raw, evt.Send); err != nil {
			return nil, fmt.Errorf("invalid %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventTyping:
		evt.Typing = &TypingEvent{}
		if err := json.Unmarshal(raw, evt.Typing); err != nil {
			return nil, fmt.Errorf("invalid %s event: %w", env.Type, err)
		}
		return evt, nil
	case EventSeenMessage:
		evt.Seen = &SeenMessageEvent{}
		if err := json.Unmarshal(raw, evt.Seen); err != nil {
			return nil, fmt.Errorf("invalid %s event: %w", env.Type, err)
		}
		return evt, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

// RoomCreatedEvent replies to create-room with the freshly allocated code.
type RoomCreatedEvent struct {
	Type     string `json:"type"`
	RoomCode string `json:"roomCode"`
}

// JoinedRoomEvent replies to a successful join with the room's message log.
type JoinedRoomEvent struct {
	Type     string    `json:"type"`
	RoomCode string    `json:"roomCode"`
	Messages []Message `json:"messages"`
}

// NewMessageEvent carries an appended message to every member of the room.
type NewMessageEvent struct {
	Type    string  `json:"type"`
	Message Message `json:"message"`
}

// MemberCountEvent announces the room's member count after a join or leave.
// Type distinguishes user-joined from user-left.
type MemberCountEvent struct {
	Type       string `json:"type"`
	UsersCount int    `json:"usersCount"`
}

// TypingBroadcastEvent relays a typing hint to everyone except its sender.
type TypingBroadcastEvent struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

// MessageSeenEvent announces a message's sent -> seen transition to the room.
type MessageSeenEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"messageId"`
	UserID    string `json:"userId"`
}
