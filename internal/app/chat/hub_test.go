package chat

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/pkg/auth/jwt"
)

// receivedFrame is the decoded shape of an outbound envelope for assertions.
type receivedFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// newTestClient builds a client that never runs its pumps; delivery is
// observed directly on the send queue.
func newTestClient(hub *Hub, userID, connID string) *Client {
	principal := jwt.Principal{ID: userID, Name: "user-" + userID, Email: userID + "@example.com"}
	return NewClient(hub, nil, nil, nil, principal, connID, "198.51.100.10:4242")
}

// nextFrame blocks until the client receives an event or the timeout fires.
func nextFrame(t *testing.T, client *Client) receivedFrame {
	t.Helper()

	select {
	case payload, ok := <-client.send:
		require.True(t, ok, "send queue closed while waiting for an event")

		var frame receivedFrame
		require.NoError(t, json.Unmarshal(payload, &frame))
		return frame

	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an event")
		return receivedFrame{}
	}
}

func decodePresence(t *testing.T, frame receivedFrame) PresenceEvent {
	t.Helper()

	var event PresenceEvent
	require.NoError(t, json.Unmarshal(frame.Data, &event))
	return event
}

func TestHubPresenceTransitions(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Shutdown()

	alice1 := newTestClient(hub, "alice", "conn-a1")
	hub.Register(alice1)

	frame := nextFrame(t, alice1)
	require.Equal(t, EventUserOnline, frame.Event)
	event := decodePresence(t, frame)
	assert.Equal(t, "alice", event.UserID)
	assert.Equal(t, []string{"alice"}, event.OnlineUserIDs)

	// A second connection for the same user must not re-announce: the next
	// event alice1 sees is bob coming online, not alice again.
	alice2 := newTestClient(hub, "alice", "conn-a2")
	hub.Register(alice2)

	bob := newTestClient(hub, "bob", "conn-b1")
	hub.Register(bob)

	frame = nextFrame(t, alice1)
	require.Equal(t, EventUserOnline, frame.Event)
	event = decodePresence(t, frame)
	assert.Equal(t, "bob", event.UserID)
	assert.Equal(t, []string{"alice", "bob"}, event.OnlineUserIDs)

	// Dropping one of alice's two connections emits nothing; dropping bob's
	// only connection does. FIFO per connection proves the ordering.
	hub.Unregister(alice2)
	hub.Unregister(bob)

	frame = nextFrame(t, alice1)
	require.Equal(t, EventUserOffline, frame.Event)
	event = decodePresence(t, frame)
	assert.Equal(t, "bob", event.UserID)
	assert.Equal(t, []string{"alice"}, event.OnlineUserIDs)

	assert.True(t, hub.IsOnline("alice"))
	assert.False(t, hub.IsOnline("bob"))
}

func TestHubGroupBroadcast(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Shutdown()

	alice := newTestClient(hub, "alice", "conn-a1")
	bob := newTestClient(hub, "bob", "conn-b1")
	carol := newTestClient(hub, "carol", "conn-c1")

	hub.Register(alice)
	hub.Register(bob)
	hub.Register(carol)

	// Drain the presence announcements so only the broadcast remains.
	for _, client := range []*Client{alice, bob, carol} {
		for {
			frame := nextFrame(t, client)
			if frame.Event == EventUserOnline {
				event := decodePresence(t, frame)
				if event.UserID == "carol" {
					break
				}
			}
		}
	}

	group := RoomGroup("general")
	hub.Join(alice, group)
	hub.Join(bob, group)

	require.NoError(t, hub.Broadcast(group, EventNewMessage, map[string]string{"content": "hi"}))

	for _, client := range []*Client{alice, bob} {
		frame := nextFrame(t, client)
		assert.Equal(t, EventNewMessage, frame.Event)
	}

	// Carol never joined: the next thing she sees must not be the room event.
	hub.Leave(bob, group)
	require.NoError(t, hub.Broadcast(group, EventNewMessage, map[string]string{"content": "again"}))
	require.NoError(t, hub.BroadcastAll(EventSocketError, SocketErrorEvent{Message: "drain marker"}))

	frame := nextFrame(t, alice)
	assert.Equal(t, EventNewMessage, frame.Event)
	frame = nextFrame(t, alice)
	assert.Equal(t, EventSocketError, frame.Event)

	// Bob left before the second broadcast, carol was never a member: both
	// skip straight to the drain marker.
	for _, client := range []*Client{bob, carol} {
		frame = nextFrame(t, client)
		assert.Equal(t, EventSocketError, frame.Event)
	}
}

func TestHubMailboxDelivery(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Shutdown()

	alice1 := newTestClient(hub, "alice", "conn-a1")
	alice2 := newTestClient(hub, "alice", "conn-a2")
	bob := newTestClient(hub, "bob", "conn-b1")

	hub.Register(alice1)
	hub.Register(alice2)
	hub.Register(bob)

	for _, client := range []*Client{alice1, alice2, bob} {
		for {
			frame := nextFrame(t, client)
			if frame.Event == EventUserOnline && decodePresence(t, frame).UserID == "bob" {
				break
			}
		}
	}

	// A mailbox delivery reaches every session of the user, and listing the
	// same user twice must not double-deliver.
	require.NoError(t, hub.BroadcastToUsers([]string{"alice", "alice", "bob"}, EventNewMessage, map[string]string{"content": "dm"}))
	require.NoError(t, hub.BroadcastAll(EventSocketError, SocketErrorEvent{Message: "drain marker"}))

	for _, client := range []*Client{alice1, alice2, bob} {
		frame := nextFrame(t, client)
		assert.Equal(t, EventNewMessage, frame.Event)
		frame = nextFrame(t, client)
		assert.Equal(t, EventSocketError, frame.Event)
	}
}

func TestHubShutdownClosesSendQueues(t *testing.T) {
	hub := NewHub()
	hub.Start()

	alice := newTestClient(hub, "alice", "conn-a1")
	hub.Register(alice)
	nextFrame(t, alice)

	hub.Shutdown()

	for {
		select {
		case _, ok := <-alice.send:
			if !ok {
				return
			}
		case <-time.After(2 * time.Second):
			t.Fatal("send queue was not closed by shutdown")
		}
	}
}

func TestHubDuplicateUnregisterIgnored(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Shutdown()

	alice := newTestClient(hub, "alice", "conn-a1")
	bob := newTestClient(hub, "bob", "conn-b1")

	hub.Register(alice)
	hub.Register(bob)

	for {
		if f := nextFrame(t, bob); f.Event == EventUserOnline && decodePresence(t, f).UserID == "bob" {
			break
		}
	}

	hub.Unregister(alice)
	hub.Unregister(alice)

	frame := nextFrame(t, bob)
	require.Equal(t, EventUserOffline, frame.Event)
	assert.Equal(t, "alice", decodePresence(t, frame).UserID)

	// The duplicate must not produce a second offline event; a marker
	// broadcast proves the queue moved on.
	require.NoError(t, hub.BroadcastAll(EventSocketError, SocketErrorEvent{Message: "drain marker"}))
	frame = nextFrame(t, bob)
	assert.Equal(t, EventSocketError, frame.Event)
}
