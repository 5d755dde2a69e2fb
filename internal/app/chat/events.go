/*
Package chat contains the real-time messaging core: connection sessions,
presence bookkeeping, group routing, and message dispatch.

This file defines the wire protocol. Every frame is a JSON object carrying a
named event, a structured payload, and an optional correlation id used to
route an acknowledgment back to the originating call.
*/
package chat

import (
	"encoding/json"
	"fmt"
)

// Client-to-server event names.
const (
	EventJoinRoom       = "join_room"
	EventLeaveRoom      = "leave_room"
	EventTyping         = "typing"
	EventSendMessage    = "send_message"
	EventPrivateMessage = "private_message"
)

// Server-to-client event names.
const (
	EventNewMessage  = "new_message"
	EventUserOnline  = "user_online"
	EventUserOffline = "user_offline"
	EventSocketError = "socket_error"
	EventAck         = "ack"
)

// Frame is an inbound client frame. The event tag is validated before
// dispatch; payload shape-sniffing is never used to pick a handler.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	AckID *int64          `json:"ackId,omitempty"`
}

// Envelope is an outbound server frame.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	AckID *int64 `json:"ackId,omitempty"`
}

// EncodeEvent marshals an outbound event frame.
func EncodeEvent(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", event, err)
	}
	return payload, nil
}

// JoinRoomPayload is the payload of join_room and leave_room frames.
type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
}

// TypingPayload is the inbound typing frame. Exactly one of RoomID and
// ReceiverID must be set.
type TypingPayload struct {
	RoomID     string `json:"roomId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	IsTyping   bool   `json:"isTyping"`
}

// TypingEvent is the relayed typing signal, tagged server-side with the
// sender's identity. It is ephemeral: never persisted, never acknowledged.
// Recipients own debouncing and timing out stale indicators.
type TypingEvent struct {
	RoomID     string `json:"roomId,omitempty"`
	ReceiverID string `json:"receiverId,omitempty"`
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	IsTyping   bool   `json:"isTyping"`
}

// SendMessagePayload is the inbound send_message frame.
type SendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content,omitempty"`
	FileURL string `json:"fileUrl,omitempty"`
}

// PrivateMessagePayload is the inbound private_message frame.
type PrivateMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content,omitempty"`
	FileURL    string `json:"fileUrl,omitempty"`
}

// PresenceEvent is the payload of user_online and user_offline events.
type PresenceEvent struct {
	UserID        string   `json:"userId"`
	OnlineUserIDs []string `json:"onlineUserIds"`
}

// SocketErrorEvent reports a connection-level fault to the client.
type SocketErrorEvent struct {
	Message string `json:"message"`
}

// AckError is the failure half of an acknowledgment.
type AckError struct {
	Code       int    `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

// AckResult is an acknowledgment payload, delivered only to the originating
// connection and correlated by the frame's ackId.
type AckResult struct {
	OK    bool      `json:"ok"`
	Data  any       `json:"data,omitempty"`
	Error *AckError `json:"error,omitempty"`
}
