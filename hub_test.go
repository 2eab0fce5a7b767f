package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// awaitMessage pulls from a client's send channel until a message of the
// wanted type arrives, discarding everything else.
func awaitMessage[T any](t *testing.T, c *Client) T {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				t.Fatalf("send channel closed while waiting for %T", *new(T))
			}
			if v, ok := msg.(T); ok {
				return v
			}
		case <-timeout:
			t.Fatalf("no %T arrived", *new(T))
		}
	}
}

func TestHubFirstConnectionBecomesHost(t *testing.T) {
	h := newHub(&Config{playerTimeout: 5 * time.Millisecond}, "testgame")
	go h.run()

	host := &Client{send: make(chan any, 16), playerID: "alice"}
	guest := &Client{send: make(chan any, 16), playerID: "bob"}

	h.register <- host
	info := awaitMessage[SessionInfoMessage](t, host)
	assert.True(t, info.IsHost)
	assert.Equal(t, "alice", info.PlayerID)
	assert.False(t, info.Started)

	h.register <- guest
	info = awaitMessage[SessionInfoMessage](t, guest)
	assert.False(t, info.IsHost)

	// A guest disconnect releases the client but never the host seat.
	h.unreg <- guest
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return len(h.clients) == 1
	}, time.Second, 5*time.Millisecond)

	h.mu.RLock()
	hostID := h.hostID
	h.mu.RUnlock()
	assert.Equal(t, "alice", hostID)
}

func TestHubJoinValidation(t *testing.T) {
	h := newHub(&Config{playerTimeout: time.Minute}, "testgame")
	go h.run()

	alice := &Client{send: make(chan any, 16), playerID: "alice"}
	h.register <- alice

	h.actions <- actionRequest{
		client: alice,
		msg:    ClientMessage{Type: "join", Name: "Alice", MBTI: "wxyz"},
	}
	errMsg := awaitMessage[SimpleMessage](t, alice)
	assert.Equal(t, "join_error", errMsg.Type)

	h.actions <- actionRequest{
		client: alice,
		msg:    ClientMessage{Type: "join", Name: "Alice", MBTI: "intj"},
	}
	roster := awaitMessage[RosterMessage](t, alice)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, "Alice (INTJ)", roster.Players[0])

	// Names are first come, first served.
	bob := &Client{send: make(chan any, 16), playerID: "bob"}
	h.register <- bob
	h.actions <- actionRequest{
		client: bob,
		msg:    ClientMessage{Type: "join", Name: "alice", MBTI: "ESFP"},
	}
	errMsg = awaitMessage[SimpleMessage](t, bob)
	assert.Equal(t, "join_error", errMsg.Type)
}
