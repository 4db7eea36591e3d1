// Package server routes decoded inbound events to their handlers. The
// dispatcher is the single point where malformed or unrecognized frames are
// dropped; they never reach a handler and never change connection state.
package server

import "log"

func (c *Client) dispatch(raw []byte) {
	evt, err := DecodeEvent(raw)
	if err != nil {
		log.Printf("Dropping event from %s: %v", c.addr, err)
		return
	}

	switch evt.Type {
	case EventCreateRoom:
		c.handleCreateRoom()
	case EventJoinRoom:
		c.handleJoinRoom(evt.Join)
	case EventSendMessage:
		c.handleSendMessage(evt.Send)
	case EventTyping:
		c.handleTyping(evt.Typing)
	case EventSeenMessage:
		c.handleSeenMessage(evt.Seen)
	}
}
