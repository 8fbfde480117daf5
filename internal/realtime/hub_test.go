package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func newTestClient(h *Hub, accountID uint, buffer int) *Client {
	client := &Client{
		hub:       h,
		send:      make(chan []byte, buffer),
		accountID: accountID,
		rooms:     make(map[uint]struct{}),
	}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	return client
}

func recvEnvelope(t *testing.T, client *Client) Envelope {
	t.Helper()
	select {
	case frame := <-client.send:
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
		return Envelope{}
	}
}

// drainBroadcasts blocks until every frame enqueued before it was fanned out,
// by receiving a marker frame sent through the same queue.
func drainBroadcasts(t *testing.T, hub *Hub) {
	t.Helper()
	marker := newTestClient(hub, 900, 1)
	hub.join(marker, 900900)
	hub.Broadcast(900900, "drain", struct{}{})
	recvEnvelope(t, marker)
	hub.leave(marker, 900900)
}

func waitForCount(t *testing.T, hub *Hub, want int, action string) {
	t.Helper()
	deadline := time.After(time.Second)
	for hub.ClientCount() != want {
		select {
		case <-deadline:
			t.Fatalf("count = %d after %s, want %d", hub.ClientCount(), action, want)
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestHubBroadcast_RoomScoped(t *testing.T) {
	hub := startHub(t)
	inRoom := newTestClient(hub, 1, 4)
	alsoInRoom := newTestClient(hub, 2, 4)
	outside := newTestClient(hub, 3, 4)

	hub.join(inRoom, 10)
	hub.join(alsoInRoom, 10)
	hub.join(outside, 11)

	hub.Broadcast(10, chat.EventNewMessage, chat.MessageEventPayload{ConversationID: 10, MessageID: 5})

	for _, client := range []*Client{inRoom, alsoInRoom} {
		env := recvEnvelope(t, client)
		if env.Event != chat.EventNewMessage {
			t.Errorf("event = %s, want %s", env.Event, chat.EventNewMessage)
		}
		var payload chat.MessageEventPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if payload.ConversationID != 10 || payload.MessageID != 5 {
			t.Errorf("payload = %+v", payload)
		}
	}

	select {
	case frame := <-outside.send:
		t.Errorf("client outside the room received %s", frame)
	default:
	}
}

func TestHubLeave_StopsDelivery(t *testing.T) {
	hub := startHub(t)
	client := newTestClient(hub, 1, 4)

	hub.join(client, 10)
	hub.leave(client, 10)

	hub.Broadcast(10, chat.EventReactionAdded, chat.ReactionEventPayload{ConversationID: 10})
	drainBroadcasts(t, hub)

	select {
	case <-client.send:
		t.Error("client received an event after leaving the room")
	default:
	}
}

func TestHubDrop_SlowClient(t *testing.T) {
	hub := startHub(t)
	slow := newTestClient(hub, 1, 1)
	hub.join(slow, 10)

	// First frame fills the buffer, second one must evict the client.
	hub.Broadcast(10, chat.EventNewMessage, chat.MessageEventPayload{ConversationID: 10, MessageID: 1})
	hub.Broadcast(10, chat.EventNewMessage, chat.MessageEventPayload{ConversationID: 10, MessageID: 2})

	waitForCount(t, hub, 0, "slow client eviction")
	hub.mu.RLock()
	_, roomExists := hub.rooms[10]
	hub.mu.RUnlock()
	if roomExists {
		t.Error("empty room was not cleaned up")
	}
}

func TestHubBroadcast_ConcurrentWithSlowClients(t *testing.T) {
	hub := startHub(t)
	const clients = 50
	for i := 0; i < clients; i++ {
		slow := newTestClient(hub, uint(i+1), 1)
		// Pre-filled buffer, so the next frame evicts the client.
		slow.send <- []byte("{}")
		hub.join(slow, 10)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			hub.Broadcast(10, chat.EventNewMessage, chat.MessageEventPayload{ConversationID: 10, MessageID: uint(n)})
		}(i)
	}
	wg.Wait()

	waitForCount(t, hub, 0, "concurrent eviction")
}

func TestTypingRelay_ExcludesSender(t *testing.T) {
	hub := startHub(t)
	sender := newTestClient(hub, 1, 4)
	other := newTestClient(hub, 2, 4)
	hub.join(sender, 10)
	hub.join(other, 10)

	sender.relayTyping(10, true)

	env := recvEnvelope(t, other)
	if env.Event != signalTypingStart {
		t.Errorf("event = %s, want %s", env.Event, signalTypingStart)
	}
	var payload typingEvent
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("bad payload: %v", err)
	}
	if payload.AccountID != 1 || !payload.Typing {
		t.Errorf("payload = %+v", payload)
	}

	select {
	case <-sender.send:
		t.Error("typing relayed back to its sender")
	default:
	}
}

func TestTypingRelay_RequiresJoinedRoom(t *testing.T) {
	hub := startHub(t)
	sender := newTestClient(hub, 1, 4)
	other := newTestClient(hub, 2, 4)
	hub.join(other, 10)

	// Sender never joined room 10.
	sender.relayTyping(10, true)
	drainBroadcasts(t, hub)

	select {
	case <-other.send:
		t.Error("typing relayed from a non member")
	default:
	}
}

func TestHubRun_RegisterUnregister(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	client := &Client{
		hub:       hub,
		send:      make(chan []byte, 1),
		accountID: 1,
		rooms:     make(map[uint]struct{}),
	}
	hub.register <- client
	waitForCount(t, hub, 1, "register")

	hub.unregister <- client
	waitForCount(t, hub, 0, "unregister")

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop on cancel")
	}
}
