/*
Package chat contains the real-time messaging core: connection sessions,
presence bookkeeping, group routing, and message dispatch.

This file defines the Client struct, representing one live WebSocket
connection. It runs the read/write pumps, relays inbound frames to the
Dispatcher or the Hub, and delivers acknowledgments back to its own wire.
Events are written in the order the Hub issued them for this connection.
*/
package chat

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"parley/internal/pkg/auth/jwt"
	"parley/internal/pkg/errs"
	"parley/internal/pkg/limiter"
	"parley/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client. Sized so
	// a maximum-length message survives JSON escaping: every content rune may
	// arrive as a surrogate pair of \uXXXX escapes (12 bytes each), plus the
	// frame envelope.
	maxMessageSize = 32768

	// sendQueueSize is the per-connection outbound buffer.
	sendQueueSize = 256

	// dispatchTimeout bounds a single store-backed operation. A slow store
	// only delays this connection's own acknowledgment.
	dispatchTimeout = 10 * time.Second

	// SendRateScope keys the admission gate in front of the Dispatcher.
	SendRateScope = "ws:send"

	// WsCloseCodeUnauthorized is the custom close code (4000-4999 range)
	// signalling a failed authentication handshake.
	WsCloseCodeUnauthorized = 4001
)

// Client represents an active WebSocket connection and its verified principal.
type Client struct {
	hub        *Hub
	dispatcher *Dispatcher
	sendGate   *limiter.FixedWindow

	// underlying WebSocket connection object.
	conn *websocket.Conn

	// principal is the identity verified during the handshake. Immutable.
	principal jwt.Principal

	// connID uniquely identifies this live connection. Never persisted.
	connID string

	// remoteAddr keys the send admission gate.
	remoteAddr string

	// groups is this connection's set of joined group memberships.
	// Owned by the Hub run loop after registration.
	groups map[string]struct{}

	// send queues outbound frames; its FIFO order is the connection's
	// delivery order.
	send     chan []byte
	sendOpen bool

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection.
func NewClient(hub *Hub, dispatcher *Dispatcher, sendGate *limiter.FixedWindow, conn *websocket.Conn, principal jwt.Principal, connID, remoteAddr string) *Client {
	clientLogger := logx.Logger().With().
		Str("user_id", principal.ID).
		Str("conn_id", connID).
		Logger()

	return &Client{
		hub:        hub,
		dispatcher: dispatcher,
		sendGate:   sendGate,
		conn:       conn,
		principal:  principal,
		connID:     connID,
		remoteAddr: remoteAddr,
		groups:     make(map[string]struct{}),
		send:       make(chan []byte, sendQueueSize),
		sendOpen:   true,
		logger:     clientLogger,
	}
}

// ReadPump reads frames from the WebSocket connection until it closes.
// It handles heartbeats (Pong) and performs cleanup on connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frameBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading frame (client close/going away)")
			}
			break
		}

		c.processInboundFrame(frameBytes)
	}
}

// cleanupOnDisconnect deregisters the connection when the ReadPump terminates.
// Closing the connection immediately cancels any further delivery to it.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Connection cleanup starting.")

	c.hub.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Error().Err(err).Msg("Connection close error")
	}
}

// processInboundFrame parses one raw frame and dispatches on its event tag.
func (c *Client) processInboundFrame(frameBytes []byte) {
	var frame Frame
	if err := json.Unmarshal(frameBytes, &frame); err != nil {
		c.logger.Warn().Err(err).Bytes("frame_bytes", frameBytes).Msg("Client sent invalid JSON")
		c.sendSocketError("invalid frame")
		return
	}

	switch frame.Event {
	case EventJoinRoom:
		c.handleJoinRoom(frame, true)

	case EventLeaveRoom:
		c.handleJoinRoom(frame, false)

	case EventTyping:
		c.handleTyping(frame)

	case EventSendMessage:
		c.handleSendMessage(frame)

	case EventPrivateMessage:
		c.handlePrivateMessage(frame)

	default:
		c.logger.Warn().Str("event", frame.Event).Msg("Client sent unsupported event")
		c.sendSocketError("unsupported event: " + frame.Event)
	}
}

// handleJoinRoom toggles one room membership. Each join/leave is acknowledged
// individually. Membership affects delivery only while the connection stays joined.
func (c *Client) handleJoinRoom(frame Frame, join bool) {
	var payload JoinRoomPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil || payload.RoomID == "" {
		c.failFrame(frame, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if join {
		c.hub.Join(c, RoomGroup(payload.RoomID))
	} else {
		c.hub.Leave(c, RoomGroup(payload.RoomID))
	}

	c.sendAck(frame.AckID, AckResult{OK: true})
}

// handleTyping relays an ephemeral typing signal to the target room or
// mailbox group. The server does not track typing state and never persists
// or acknowledges these frames.
func (c *Client) handleTyping(frame Frame) {
	var payload TypingPayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		c.sendSocketError("invalid typing payload")
		return
	}

	if (payload.RoomID == "") == (payload.ReceiverID == "") {
		c.sendSocketError("typing needs exactly one of roomId and receiverId")
		return
	}

	event := TypingEvent{
		RoomID:     payload.RoomID,
		ReceiverID: payload.ReceiverID,
		UserID:     c.principal.ID,
		UserName:   c.principal.Name,
		IsTyping:   payload.IsTyping,
	}

	var err error
	if payload.RoomID != "" {
		err = c.hub.Broadcast(RoomGroup(payload.RoomID), EventTyping, event)
	} else {
		err = c.hub.Broadcast(UserGroup(payload.ReceiverID), EventTyping, event)
	}

	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to relay typing event")
	}
}

// handleSendMessage runs a room send through the admission gate and the Dispatcher.
func (c *Client) handleSendMessage(frame Frame) {
	var payload SendMessagePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		c.failFrame(frame, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if customErr := c.admitSend(); customErr != nil {
		c.failFrame(frame, customErr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	message, customErr := c.dispatcher.SendRoomMessage(ctx, &c.principal, payload.RoomID, payload.Content, payload.FileURL)
	if customErr != nil {
		c.failFrame(frame, customErr)
		return
	}

	c.sendAck(frame.AckID, AckResult{OK: true, Data: message})
}

// handlePrivateMessage runs a direct-message send through the admission gate and the Dispatcher.
func (c *Client) handlePrivateMessage(frame Frame) {
	var payload PrivateMessagePayload
	if err := json.Unmarshal(frame.Data, &payload); err != nil {
		c.failFrame(frame, errs.NewError(errs.ErrInvalidParams))
		return
	}

	if customErr := c.admitSend(); customErr != nil {
		c.failFrame(frame, customErr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	message, customErr := c.dispatcher.SendDirectMessage(ctx, &c.principal, payload.ReceiverID, payload.Content, payload.FileURL)
	if customErr != nil {
		c.failFrame(frame, customErr)
		return
	}

	c.sendAck(frame.AckID, AckResult{OK: true, Data: message})
}

// admitSend applies the fixed-window admission gate in front of the
// Dispatcher. A rejected send mutates no state.
func (c *Client) admitSend() *errs.CustomError {
	if c.sendGate == nil {
		return nil
	}

	allowed, retryAfter := c.sendGate.Allow(SendRateScope, c.remoteAddr)
	if !allowed {
		return errs.NewRateLimitError(limiter.RetryAfterSeconds(retryAfter))
	}

	return nil
}

// failFrame reports a failed operation: as an acknowledgment when the frame
// carried a correlation id, as a socket_error otherwise. No Dispatcher
// failure path is ever silently swallowed.
func (c *Client) failFrame(frame Frame, customErr *errs.CustomError) {
	if frame.AckID != nil {
		c.sendAck(frame.AckID, AckResult{
			OK: false,
			Error: &AckError{
				Code:       customErr.Code,
				Message:    customErr.Message,
				RetryAfter: customErr.RetryAfterSec,
			},
		})
		return
	}

	c.sendSocketError(customErr.Message)
}

// sendAck delivers an acknowledgment to this connection only, correlated by
// the originating frame's ackId. Frames sent without an ackId are not acked.
func (c *Client) sendAck(ackID *int64, result AckResult) {
	if ackID == nil {
		return
	}

	payload, err := json.Marshal(Envelope{Event: EventAck, Data: result, AckID: ackID})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to encode ack")
		return
	}

	if !c.enqueue(payload) {
		c.logger.Warn().Msg("Failed to queue ack, send queue full")
	}
}

// sendSocketError delivers a socket_error event to this connection.
func (c *Client) sendSocketError(message string) {
	payload, err := EncodeEvent(EventSocketError, SocketErrorEvent{Message: message})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to encode socket_error")
		return
	}

	if !c.enqueue(payload) {
		c.logger.Warn().Msg("Failed to queue socket_error, send queue full")
	}
}

// enqueue places a payload on the send queue without blocking. It reports
// false when the queue is full or already closed.
func (c *Client) enqueue(payload []byte) bool {
	defer func() {
		// The queue can close concurrently with a late hub delivery.
		recover()
	}()

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the send queue. Called only from the Hub run loop or
// during hub shutdown.
func (c *Client) closeSend() {
	if c.sendOpen {
		c.sendOpen = false
		close(c.send)
	}
}

// WritePump writes queued frames to the WebSocket connection and keeps the
// heartbeat alive. It terminates when the send queue closes or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Connection close error in WritePump")
		}
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !c.writeQueuedFrame(payload, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingFrame() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the send queue.
// Returns false when the WritePump loop should terminate.
func (c *Client) writeQueuedFrame(payload []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close frame")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.logger.Error().Err(err).Msg("Error writing frame")
		return false
	}

	return true
}

// writePingFrame sends a periodic Ping to maintain the connection heartbeat.
// Returns false when the WritePump loop should terminate.
func (c *Client) writePingFrame() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Error().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
