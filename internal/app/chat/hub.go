/*
Package chat contains the real-time messaging core: connection sessions,
presence bookkeeping, group routing, and message dispatch.

This file defines the Hub, the routing fabric that owns the group membership
tables and the presence registry. Every mutation and every fan-out runs on a
single goroutine (the run loop), which is the single-writer discipline the
shared tables rely on: a broadcast always observes a consistent snapshot of a
group's members relative to the event that triggered it.
*/
package chat

import (
	"sync"

	"github.com/rs/zerolog"

	"parley/internal/pkg/logx"
)

// eventQueueBuffer sizes the queue feeding the run loop.
const eventQueueBuffer = 1024

// RoomGroup names the delivery group for a room.
func RoomGroup(roomID string) string {
	return "room:" + roomID
}

// UserGroup names a user's personal mailbox group. Every connection
// auto-joins its own mailbox so direct messages and user-addressed events
// reach all of that user's sessions.
func UserGroup(userID string) string {
	return "user:" + userID
}

// registerEvent asks the run loop to admit a connection.
type registerEvent struct {
	client *Client
}

// unregisterEvent asks the run loop to remove a connection.
type unregisterEvent struct {
	client *Client
}

// membershipChange asks the run loop to add or remove one group membership.
type membershipChange struct {
	client *Client
	group  string
	join   bool
}

// outboundEvent asks the run loop to deliver a payload to a set of groups,
// or to every registered connection when all is set.
type outboundEvent struct {
	groups  []string
	all     bool
	payload []byte
}

// Hub coordinates all live connections. It is constructed explicitly with
// empty state and shut down by draining connections and clearing registries;
// nothing here is an ambient singleton.
type Hub struct {
	presence *PresenceRegistry

	// conns and groups are owned by the run loop goroutine.
	conns  map[*Client]struct{}
	groups map[string]map[*Client]struct{}

	// events is the single FIFO queue feeding the run loop. Funneling every
	// operation through one channel gives operations issued back to back by
	// one caller a guaranteed processing order, so a join queued before a
	// broadcast is always visible to it.
	events chan any

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	logger zerolog.Logger
}

// NewHub constructs a Hub with empty registries.
func NewHub() *Hub {
	hubLogger := logx.Logger().With().Str("component", "Hub").Logger()

	return &Hub{
		presence: NewPresenceRegistry(),
		conns:    make(map[*Client]struct{}),
		groups:   make(map[string]map[*Client]struct{}),
		events:   make(chan any, eventQueueBuffer),
		stop:     make(chan struct{}),
		logger:   hubLogger,
	}
}

// Start launches the run loop.
func (h *Hub) Start() {
	h.wg.Add(1)
	go h.run()
}

// Shutdown stops the run loop, closes every connection's send queue, and
// clears the registries.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down hub...")

	h.stopOnce.Do(func() {
		close(h.stop)
	})
	h.wg.Wait()

	for client := range h.conns {
		client.closeSend()
	}
	h.conns = make(map[*Client]struct{})
	h.groups = make(map[string]map[*Client]struct{})

	h.logger.Info().Msg("Hub shutdown complete.")
}

// run is the single-writer event loop.
func (h *Hub) run() {
	defer h.wg.Done()

	h.logger.Info().Msg("Hub run loop started.")

	for {
		select {
		case event := <-h.events:
			h.handleEvent(event)

		case <-h.stop:
			h.logger.Info().Msg("Hub run loop stopped.")
			return
		}
	}
}

// handleEvent dispatches one queued operation.
func (h *Hub) handleEvent(event any) {
	switch e := event.(type) {
	case registerEvent:
		h.handleRegister(e.client)

	case unregisterEvent:
		h.handleUnregister(e.client)

	case membershipChange:
		h.handleMembership(e)

	case outboundEvent:
		h.deliver(e)
	}
}

// handleRegister admits a connection: it joins its own mailbox group,
// registers presence, and fires user_online when this is the user's first
// connection.
func (h *Hub) handleRegister(client *Client) {
	h.conns[client] = struct{}{}
	h.addMembership(client, UserGroup(client.principal.ID))

	cameOnline := h.presence.AddConnection(client.principal.ID, client.connID)

	h.logger.Info().
		Str("user_id", client.principal.ID).
		Str("conn_id", client.connID).
		Int("total_conns", len(h.conns)).
		Msg("Connection registered.")

	if cameOnline {
		h.deliverPresenceEvent(EventUserOnline, client.principal.ID)
	}
}

// handleUnregister removes a connection from every group it joined,
// deregisters presence, and fires user_offline when the user's last
// connection closed. Duplicate unregisters are ignored.
func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.conns[client]; !ok {
		return
	}

	for group := range client.groups {
		h.removeMembership(client, group)
	}
	delete(h.conns, client)
	client.closeSend()

	wentOffline := h.presence.RemoveConnection(client.principal.ID, client.connID)

	h.logger.Info().
		Str("user_id", client.principal.ID).
		Str("conn_id", client.connID).
		Int("total_conns", len(h.conns)).
		Msg("Connection unregistered.")

	if wentOffline {
		h.deliverPresenceEvent(EventUserOffline, client.principal.ID)
	}
}

func (h *Hub) handleMembership(change membershipChange) {
	if _, ok := h.conns[change.client]; !ok {
		return
	}

	if change.join {
		h.addMembership(change.client, change.group)
	} else {
		h.removeMembership(change.client, change.group)
	}
}

func (h *Hub) addMembership(client *Client, group string) {
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Client]struct{})
		h.groups[group] = members
	}
	members[client] = struct{}{}
	client.groups[group] = struct{}{}
}

func (h *Hub) removeMembership(client *Client, group string) {
	if members, ok := h.groups[group]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
	delete(client.groups, group)
}

// deliver fans one payload out to every connection in the event's groups.
// A connection joined to several of the target groups receives the payload once.
func (h *Hub) deliver(event outboundEvent) {
	if event.all {
		for client := range h.conns {
			h.enqueueTo(client, event.payload)
		}
		return
	}

	seen := make(map[*Client]struct{})
	for _, group := range event.groups {
		for client := range h.groups[group] {
			if _, dup := seen[client]; dup {
				continue
			}
			seen[client] = struct{}{}
			h.enqueueTo(client, event.payload)
		}
	}
}

func (h *Hub) enqueueTo(client *Client, payload []byte) {
	if !client.enqueue(payload) {
		h.logger.Warn().
			Str("user_id", client.principal.ID).
			Str("conn_id", client.connID).
			Msg("Connection send queue full, dropping event.")
	}
}

// deliverPresenceEvent broadcasts a presence transition to every connection.
func (h *Hub) deliverPresenceEvent(event, userID string) {
	payload, err := EncodeEvent(event, PresenceEvent{
		UserID:        userID,
		OnlineUserIDs: h.presence.OnlineUserIDs(),
	})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("Failed to encode presence event.")
		return
	}

	h.deliver(outboundEvent{all: true, payload: payload})
}

// queue enqueues one operation for the run loop, giving up when the hub is
// stopping.
func (h *Hub) queue(event any) {
	select {
	case h.events <- event:
	case <-h.stop:
	}
}

// Register queues a connection for admission.
func (h *Hub) Register(client *Client) {
	h.queue(registerEvent{client: client})
}

// Unregister queues a connection for removal.
func (h *Hub) Unregister(client *Client) {
	h.queue(unregisterEvent{client: client})
}

// Join adds the connection to a named group. The membership is transient:
// it affects delivery only while the connection stays joined.
func (h *Hub) Join(client *Client, group string) {
	h.queue(membershipChange{client: client, group: group, join: true})
}

// Leave removes the connection from a named group.
func (h *Hub) Leave(client *Client, group string) {
	h.queue(membershipChange{client: client, group: group, join: false})
}

// Broadcast delivers an event to every connection joined to the group.
func (h *Hub) Broadcast(group string, event string, data any) error {
	return h.BroadcastToGroups([]string{group}, event, data)
}

// BroadcastToGroups delivers an event to the union of the groups' members.
func (h *Hub) BroadcastToGroups(groups []string, event string, data any) error {
	payload, err := EncodeEvent(event, data)
	if err != nil {
		return err
	}

	h.queue(outboundEvent{groups: groups, payload: payload})
	return nil
}

// BroadcastToUsers delivers an event to the mailbox groups of the given users.
func (h *Hub) BroadcastToUsers(userIDs []string, event string, data any) error {
	groups := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		groups = append(groups, UserGroup(userID))
	}
	return h.BroadcastToGroups(groups, event, data)
}

// BroadcastAll delivers an event to every registered connection.
func (h *Hub) BroadcastAll(event string, data any) error {
	payload, err := EncodeEvent(event, data)
	if err != nil {
		return err
	}

	h.queue(outboundEvent{all: true, payload: payload})
	return nil
}

// OnlineUserIDs returns a snapshot of the ids of all online users.
func (h *Hub) OnlineUserIDs() []string {
	return h.presence.OnlineUserIDs()
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.presence.IsOnline(userID)
}
