// Package server implements the per-event handlers: room creation and join,
// message sends, typing hints, and seen acknowledgements. Handlers run on the
// connection's read pump; room state is mutated through the store and fan-out
// is handed to the hub.
package server

import (
	"errors"
	"log"
	"strings"
)

// handleCreateRoom allocates a fresh room and replies with its code. Creating
// a room does not bind the creator to it; joining is a separate step.
func (c *Client) handleCreateRoom() {
	code := c.hub.store.Create()
	c.sendEvent(RoomCreatedEvent{Type: EventRoomCreated, RoomCode: code})
	log.Printf("Room created: %s", code)
}

// handleJoinRoom validates the request, admits the member, binds the session,
// replies with the room's message log, and announces the new member count to
// the room. Joining twice with the same id does not double-count.
func (c *Client) handleJoinRoom(evt *JoinRoomEvent) {
	if strings.TrimSpace(evt.RoomID) == "" {
		c.sendError("Invalid roomId", CodeInvalidInput)
		return
	}
	if strings.TrimSpace(evt.UserID) == "" {
		c.sendError("Invalid userId", CodeInvalidInput)
		return
	}

	messages, usersCount, err := c.hub.store.Join(evt.RoomID, evt.UserID)
	if err != nil {
		c.sendError("Room not found", CodeNotFound)
		return
	}

	c.bind(evt.UserID, evt.RoomID)

	c.sendEvent(JoinedRoomEvent{
		Type:     EventJoinedRoom,
		RoomCode: evt.RoomID,
		Messages: messages,
	})

	// The announced count is stamped by the hub at fan-out time; concurrent
	// joins to the same room would otherwise race their counts onto the
	// broadcast channel out of order.
	c.hub.BroadcastMemberCount(evt.RoomID, EventUserJoined)

	log.Printf("User joined: userId=%s, room=%s, usersCount=%d", evt.UserID, evt.RoomID, usersCount)
}

// handleSendMessage validates the payload, appends the message to the room's
// log, and broadcasts it to every member including the sender; clients
// reconcile their own echo by message id.
func (c *Client) handleSendMessage(evt *SendMessageEvent) {
	if strings.TrimSpace(evt.RoomCode) == "" ||
		strings.TrimSpace(evt.Message) == "" ||
		strings.TrimSpace(evt.UserID) == "" ||
		strings.TrimSpace(evt.Name) == "" {
		c.sendError("send-message missing roomCode, message, userId, or name", CodeInvalidInput)
		return
	}

	msg, err := c.hub.store.AppendMessage(evt.RoomCode, evt.Message, evt.UserID, evt.Name)
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			c.sendError("Room not found", CodeNotFound)
			return
		}
		c.sendError("Failed to send message", CodeInvalidInput)
		return
	}

	c.hub.BroadcastToRoom(evt.RoomCode, NewMessageEvent{
		Type:    EventNewMessage,
		Message: msg,
	}, "")

	log.Printf("Message from %s to room %s: %s", evt.UserID, evt.RoomCode, msg.ID)
}

// handleTyping relays a typing hint to the room, excluding every connection
// bound to the sender's id. Missing fields make this a silent no-op; a hint
// is never worth an error reply.
func (c *Client) handleTyping(evt *TypingEvent) {
	if evt.RoomCode == "" || evt.UserID == "" {
		return
	}

	c.hub.BroadcastToRoom(evt.RoomCode, TypingBroadcastEvent{
		Type:   EventTyping,
		UserID: evt.UserID,
		Name:   evt.Name,
	}, evt.UserID)
}

// handleSeenMessage transitions the message to seen and announces it to the
// whole room. Unknown rooms, unknown ids, and repeated acknowledgements are
// silent no-ops producing no broadcast.
func (c *Client) handleSeenMessage(evt *SeenMessageEvent) {
	if !c.hub.store.MarkSeen(evt.RoomCode, evt.MessageID) {
		return
	}

	c.hub.BroadcastToRoom(evt.RoomCode, MessageSeenEvent{
		Type:      EventMessageSeen,
		MessageID: evt.MessageID,
		UserID:    evt.UserID,
	}, "")
}
