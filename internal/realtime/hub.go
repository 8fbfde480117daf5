package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/quangtuanitmo18/qr-order-server/internal/domain/chat"
	"github.com/quangtuanitmo18/qr-order-server/internal/infrastructure/metrics"
)

// Envelope is the wire frame for every socket event, inbound and outbound.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound signal names a client may emit.
const (
	signalJoin        = "join-conversation"
	signalLeave       = "leave-conversation"
	signalTypingStart = "typing-start"
	signalTypingStop  = "typing-stop"
)

// roomSignal is the payload of every inbound signal.
type roomSignal struct {
	ConversationID uint `json:"conversationId"`
}

// typingEvent is relayed to the other members of a room, never persisted.
type typingEvent struct {
	ConversationID uint `json:"conversationId"`
	AccountID      uint `json:"accountId"`
	Typing         bool `json:"typing"`
}

// broadcastFrame is a marshalled envelope queued for room fan-out.
type broadcastFrame struct {
	conversationID uint
	frame          []byte
	exclude        *Client
}

const broadcastQueueSize = 256

// Hub tracks connected clients and their room subscriptions, keyed by
// conversation id, and fans events out to rooms. It satisfies
// chat.Broadcaster so services receive the fan-out capability by injection.
//
// All channel writes to clients happen on the Run goroutine, which also owns
// dropping. A frame can therefore never race a close of a client's send
// channel.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastFrame

	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[uint]map[*Client]struct{}

	logger zerolog.Logger
}

var _ chat.Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Run must be started for registration and delivery to
// work.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastFrame, broadcastQueueSize),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[uint]map[*Client]struct{}),
		logger:     logger.With().Str("component", "realtime-hub").Logger(),
	}
}

// Run processes client registration and room fan-out until the context is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info().Msg("realtime hub started")
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			metrics.SetSocketClients(total)
			h.logger.Debug().Uint("account_id", client.accountID).Int("clients", total).Msg("client connected")
		case client := <-h.unregister:
			h.drop(client)
		case bf := <-h.broadcast:
			h.sendToRoom(bf.conversationID, bf.frame, bf.exclude)
		}
	}
}

// Broadcast delivers the event to every subscriber of the conversation's
// room. Delivery is best effort: slow clients are dropped, and the frame is
// discarded if the queue is full.
func (h *Hub) Broadcast(conversationID uint, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to marshal broadcast payload")
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to marshal broadcast frame")
		return
	}
	metrics.RecordBroadcast(event)
	h.enqueue(conversationID, frame, nil)
}

// enqueue hands a frame to the Run goroutine without blocking the caller.
func (h *Hub) enqueue(conversationID uint, frame []byte, exclude *Client) {
	select {
	case h.broadcast <- broadcastFrame{conversationID: conversationID, frame: frame, exclude: exclude}:
	default:
		h.logger.Warn().Uint("conversation_id", conversationID).Msg("broadcast queue full, dropping frame")
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// sendToRoom writes a frame to every room member except the excluded client.
// Only the Run goroutine calls this.
func (h *Hub) sendToRoom(conversationID uint, frame []byte, exclude *Client) {
	h.mu.RLock()
	room := h.rooms[conversationID]
	members := make([]*Client, 0, len(room))
	for client := range room {
		if client != exclude {
			members = append(members, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range members {
		select {
		case client.send <- frame:
		default:
			// Send buffer full: the client is too slow to keep.
			h.drop(client)
		}
	}
}

// join subscribes the client to a room.
func (h *Hub) join(client *Client, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[conversationID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[conversationID] = room
	}
	room[client] = struct{}{}
	client.rooms[conversationID] = struct{}{}
}

// leave unsubscribes the client from a room.
func (h *Hub) leave(client *Client, conversationID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, conversationID)
}

func (h *Hub) leaveLocked(client *Client, conversationID uint) {
	if room, ok := h.rooms[conversationID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, conversationID)
		}
	}
	delete(client.rooms, conversationID)
}

// drop disconnects a client, removing all its room subscriptions.
func (h *Hub) drop(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for conversationID := range client.rooms {
		h.leaveLocked(client, conversationID)
	}
	remaining := len(h.clients)
	h.mu.Unlock()

	metrics.SetSocketClients(remaining)
	close(client.send)
	h.logger.Debug().Uint("account_id", client.accountID).Int("clients", remaining).Msg("client disconnected")
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()
	for _, client := range clients {
		h.drop(client)
	}
}
