package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func newTestClient(hub *Hub, sessionID string, buffer int) *Client {
	return &Client{hub: hub, sessionID: sessionID, send: make(chan []byte, buffer)}
}

func sessionEvent(sessionID string, eventType domain.SessionEventType) domain.SessionEvent {
	return domain.SessionEvent{
		Type:             eventType,
		SessionID:        sessionID,
		SubjectReference: "234123412346",
		Status:           domain.StatusLivenessVerified,
		Confidence:       0.8,
		Attempt:          1,
		Timestamp:        time.Now(),
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.sessions)
	assert.NotNil(t, hub.broadcast)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func TestHub_AddAndRemoveClient(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub, "session-1", 1)

	hub.register <- client
	assert.Eventually(t, func() bool { return hub.GetConnectedClients("session-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.unregister <- client
	assert.Eventually(t, func() bool { return hub.GetConnectedClients("session-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_Publish(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub, "session-1", 10)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients("session-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), sessionEvent("session-1", domain.EventLivenessVerified))

	select {
	case msg := <-client.send:
		var event Event
		require.NoError(t, json.Unmarshal(msg, &event))
		assert.Equal(t, domain.EventLivenessVerified, event.Type)
		assert.Equal(t, "session-1", event.SessionID)
		require.NotNil(t, event.Data)
		assert.InDelta(t, 0.8, event.Data.Confidence, 1e-9)
		assert.NotContains(t, string(msg), "234123412346")
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestHub_SessionIsolation(t *testing.T) {
	hub := runHub(t)
	client1 := newTestClient(hub, "session-1", 10)
	client2 := newTestClient(hub, "session-2", 10)

	hub.register <- client1
	hub.register <- client2
	require.Eventually(t, func() bool {
		return hub.GetConnectedClients("session-1") == 1 && hub.GetConnectedClients("session-2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), sessionEvent("session-1", domain.EventLivenessFailed))

	select {
	case <-client1.send:
	case <-time.After(time.Second):
		t.Fatal("client1 should receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not receive message for session-1")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_TerminalEventClosesStream(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub, "session-1", 10)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients("session-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), sessionEvent("session-1", domain.EventSessionEnded))

	msg, ok := <-client.send
	require.True(t, ok)
	assert.Contains(t, string(msg), string(domain.EventSessionEnded))

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}
	assert.Equal(t, 0, hub.GetConnectedClients("session-1"))
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := runHub(t)
	client := newTestClient(hub, "session-1", 1)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients("session-1") == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish(context.Background(), sessionEvent("session-1", domain.EventLivenessFailed))
	hub.Publish(context.Background(), sessionEvent("session-1", domain.EventLivenessFailed))

	assert.Eventually(t, func() bool { return hub.GetConnectedClients("session-1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestHub_StopClosesClients(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	client := newTestClient(hub, "session-stop", 1)
	hub.register <- client
	require.Eventually(t, func() bool { return hub.GetConnectedClients("session-stop") == 1 }, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case <-hub.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}
	_, open := <-client.send
	assert.False(t, open)
	assert.Equal(t, 0, hub.GetConnectedClients("session-stop"))
}
