package collaboration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	c1, c2 := newClient(hub, nil), newClient(hub, nil)
	c1.sessionID, c2.sessionID = "s1", "s1"

	hub.Register(c1, "s1")
	hub.Register(c2, "s1")
	assert.Equal(t, 2, hub.RoomSize("s1"))

	hub.Unregister(c1)
	assert.Equal(t, 1, hub.RoomSize("s1"))

	// Last member out drops the room entirely.
	hub.Unregister(c2)
	assert.Equal(t, 0, hub.RoomSize("s1"))
	assert.Empty(t, hub.rooms)
}

func TestHubBroadcastSkipsSender(t *testing.T) {
	hub := NewHub()
	c1, c2 := newClient(hub, nil), newClient(hub, nil)
	c1.sessionID, c2.sessionID = "s1", "s1"
	hub.Register(c1, "s1")
	hub.Register(c2, "s1")

	hub.Broadcast("s1", []byte("hello"), c1)

	select {
	case msg := <-c2.send:
		assert.Equal(t, "hello", string(msg))
	default:
		t.Fatal("c2 should have received the broadcast")
	}

	select {
	case <-c1.send:
		t.Fatal("sender must not receive its own broadcast")
	default:
	}
}

func TestHubBroadcastToEveryone(t *testing.T) {
	hub := NewHub()
	c1, c2 := newClient(hub, nil), newClient(hub, nil)
	c1.sessionID, c2.sessionID = "s1", "s1"
	hub.Register(c1, "s1")
	hub.Register(c2, "s1")

	hub.Broadcast("s1", []byte("all"), nil)

	require.Equal(t, "all", string(<-c1.send))
	require.Equal(t, "all", string(<-c2.send))
}

func TestHubBroadcastIsolatesRooms(t *testing.T) {
	hub := NewHub()
	c1, c2 := newClient(hub, nil), newClient(hub, nil)
	c1.sessionID, c2.sessionID = "s1", "s2"
	hub.Register(c1, "s1")
	hub.Register(c2, "s2")

	hub.Broadcast("s1", []byte("only-s1"), nil)

	require.Equal(t, "only-s1", string(<-c1.send))
	select {
	case <-c2.send:
		t.Fatal("other rooms must not receive the broadcast")
	default:
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := newClient(hub, nil)
	slow.sessionID = "s1"
	hub.Register(slow, "s1")

	// Fill the send buffer so the next broadcast cannot be queued.
	for i := 0; i < sendBufferSize; i++ {
		require.True(t, slow.queue([]byte("x")))
	}

	hub.Broadcast("s1", []byte("overflow"), nil)

	assert.Equal(t, 0, hub.RoomSize("s1"), "slow client must be evicted")
}

func TestHubUnregisterUnjoinedClient(t *testing.T) {
	hub := NewHub()
	c := newClient(hub, nil)

	// A client that never joined a room still gets its channel closed.
	hub.Unregister(c)

	_, open := <-c.send
	assert.False(t, open)
}
