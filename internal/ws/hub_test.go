package ws

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"linkup-chat/internal/domain"
	"linkup-chat/internal/presence"
)

// decodedEvent refleja los payloads salientes para las aserciones.
type decodedEvent struct {
	Type    string   `json:"type"`
	Message any      `json:"message"`
	From    string   `json:"from"`
	Online  []string `json:"online"`
}

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), presence.NewRegistry(), "")
}

// newTestClient crea una conexión sin transporte real: los tests leen
// directamente del canal de envío en lugar de correr writePump.
func newTestClient(h *Hub) *Client {
	c := newClient(h, nil)
	h.addClient(c)
	return c
}

func nextEvent(t *testing.T, c *Client) decodedEvent {
	t.Helper()
	select {
	case payload, ok := <-c.send:
		if !ok {
			t.Fatalf("send channel closed")
		}
		var ev decodedEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected an event")
		return decodedEvent{}
	}
}

func expectNoEvent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case payload := <-c.send:
		t.Fatalf("expected no event, got %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_AnnounceBroadcastsStatus(t *testing.T) {
	hub := newTestHub()
	c1 := newTestClient(hub)
	c2 := newTestClient(hub)

	c1.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))

	for _, c := range []*Client{c1, c2} {
		ev := nextEvent(t, c)
		if ev.Type != eventUserStatusChange {
			t.Fatalf("expected user_status_change, got %q", ev.Type)
		}
		if len(ev.Online) != 1 || ev.Online[0] != "alice" {
			t.Fatalf("expected online [alice], got %v", ev.Online)
		}
	}

	c2.handleSignal([]byte(`{"type":"user_connected","user_id":"bob"}`))
	ev := nextEvent(t, c1)
	if len(ev.Online) != 2 || ev.Online[0] != "alice" || ev.Online[1] != "bob" {
		t.Fatalf("expected online [alice bob], got %v", ev.Online)
	}
}

func TestHub_PrivateMessageHintForwarded(t *testing.T) {
	hub := newTestHub()
	alice := newTestClient(hub)
	bob := newTestClient(hub)

	alice.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	bob.handleSignal([]byte(`{"type":"user_connected","user_id":"bob"}`))
	for _, c := range []*Client{alice, bob} {
		nextEvent(t, c)
	}
	nextEvent(t, alice)
	nextEvent(t, bob)

	alice.handleSignal([]byte(`{"type":"private_message","to":"bob","message":"hola"}`))

	ev := nextEvent(t, bob)
	if ev.Type != eventReceiveMessage {
		t.Fatalf("expected receive_message, got %q", ev.Type)
	}
	if ev.Message != "hola" || ev.From != "alice" {
		t.Fatalf("unexpected payload: %+v", ev)
	}
	expectNoEvent(t, alice)
}

func TestHub_SignalToOfflineUserDroppedSilently(t *testing.T) {
	hub := newTestHub()
	alice := newTestClient(hub)

	alice.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	nextEvent(t, alice)

	alice.handleSignal([]byte(`{"type":"private_message","to":"bob","message":"hola"}`))
	alice.handleSignal([]byte(`{"type":"typing","to":"bob"}`))
	expectNoEvent(t, alice)

	// La conexión sigue utilizable después de los descartes.
	alice.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	if ev := nextEvent(t, alice); ev.Type != eventUserStatusChange {
		t.Fatalf("expected connection to stay usable, got %q", ev.Type)
	}
}

func TestHub_TypingForwardedWhenOnline(t *testing.T) {
	hub := newTestHub()
	alice := newTestClient(hub)
	bob := newTestClient(hub)

	alice.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	bob.handleSignal([]byte(`{"type":"user_connected","user_id":"bob"}`))
	nextEvent(t, alice)
	nextEvent(t, alice)
	nextEvent(t, bob)
	nextEvent(t, bob)

	alice.handleSignal([]byte(`{"type":"typing","to":"bob"}`))

	ev := nextEvent(t, bob)
	if ev.Type != eventUserTyping || ev.From != "alice" {
		t.Fatalf("expected user_typing from alice, got %+v", ev)
	}
}

func TestHub_UnannouncedConnectionCannotRelay(t *testing.T) {
	hub := newTestHub()
	stranger := newTestClient(hub)
	bob := newTestClient(hub)

	bob.handleSignal([]byte(`{"type":"user_connected","user_id":"bob"}`))
	nextEvent(t, stranger)
	nextEvent(t, bob)

	stranger.handleSignal([]byte(`{"type":"private_message","to":"bob","message":"hola"}`))
	stranger.handleSignal([]byte(`{"type":"typing","to":"bob"}`))
	expectNoEvent(t, bob)
}

func TestHub_MalformedSignalKeepsConnection(t *testing.T) {
	hub := newTestHub()
	c := newTestClient(hub)

	c.handleSignal([]byte(`{not json`))
	c.handleSignal([]byte(`{"type":"group_message"}`))
	expectNoEvent(t, c)

	c.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	if ev := nextEvent(t, c); ev.Type != eventUserStatusChange {
		t.Fatalf("expected announce after malformed signals to work, got %q", ev.Type)
	}
}

func TestHub_ReannounceStrandsOlderConnection(t *testing.T) {
	hub := newTestHub()
	c1 := newTestClient(hub)
	c2 := newTestClient(hub)

	c1.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	nextEvent(t, c1)
	nextEvent(t, c2)

	c2.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	nextEvent(t, c1)
	nextEvent(t, c2)

	if !hub.Deliver("alice", typingEvent("bob")) {
		t.Fatalf("expected delivery to the newest connection")
	}
	if ev := nextEvent(t, c2); ev.Type != eventUserTyping {
		t.Fatalf("expected newest connection to receive the event, got %q", ev.Type)
	}
	expectNoEvent(t, c1)
}

func TestHub_RemoveClientBroadcastsAndCloses(t *testing.T) {
	hub := newTestHub()
	alice := newTestClient(hub)
	bob := newTestClient(hub)

	alice.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	bob.handleSignal([]byte(`{"type":"user_connected","user_id":"bob"}`))
	nextEvent(t, alice)
	nextEvent(t, alice)
	nextEvent(t, bob)
	nextEvent(t, bob)

	hub.removeClient(bob)

	ev := nextEvent(t, alice)
	if ev.Type != eventUserStatusChange || len(ev.Online) != 1 || ev.Online[0] != "alice" {
		t.Fatalf("expected online [alice] after disconnect, got %+v", ev)
	}

	if _, ok := <-bob.send; ok {
		t.Fatalf("expected closed send channel for removed client")
	}

	if hub.Deliver("bob", typingEvent("alice")) {
		t.Fatalf("expected delivery to disconnected user to fail")
	}

	// Repetir la baja es seguro.
	hub.removeClient(bob)
}

func TestHub_DeliverPersistedMessage(t *testing.T) {
	hub := newTestHub()
	bob := newTestClient(hub)
	bob.handleSignal([]byte(`{"type":"user_connected","user_id":"bob"}`))
	nextEvent(t, bob)

	msg := domain.Message{
		ID:         "m1",
		SenderID:   "alice",
		ReceiverID: "bob",
		Content:    "hola",
		CreatedAt:  time.Now().UTC(),
	}
	if !hub.Deliver("bob", MessageEvent(msg)) {
		t.Fatalf("expected delivery to online receiver")
	}

	ev := nextEvent(t, bob)
	if ev.Type != eventReceiveMessage || ev.From != "alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	payload, ok := ev.Message.(map[string]any)
	if !ok {
		t.Fatalf("expected persisted message payload, got %T", ev.Message)
	}
	if payload["id"] != "m1" || payload["content"] != "hola" || payload["read"] != false {
		t.Fatalf("unexpected message payload: %+v", payload)
	}
}

func TestHub_OnlineSnapshot(t *testing.T) {
	hub := newTestHub()
	alice := newTestClient(hub)
	alice.handleSignal([]byte(`{"type":"user_connected","user_id":"alice"}`))
	nextEvent(t, alice)

	online := hub.Online()
	if len(online) != 1 || online[0] != "alice" {
		t.Fatalf("expected online [alice], got %v", online)
	}
}
